package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/network"

	_ "modernc.org/sqlite"
)

// DatabaseSource reads a local deCONZ zll.db file directly.
type DatabaseSource struct {
	path string
	db   *sql.DB
}

// NewDatabaseSource creates a source for the database at path. An empty
// path selects DefaultDatabasePath.
func NewDatabaseSource(path string) *DatabaseSource {
	return &DatabaseSource{path: path}
}

// DefaultDatabasePath returns where deCONZ keeps its database on this OS.
func DefaultDatabasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "dresden-elektronik", "deCONZ", "zll.db"), nil
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "dresden-elektronik", "deCONZ", "zll.db"), nil
		}
	}
	return filepath.Join(home, ".local", "share", "deCONZ", "zll.db"), nil
}

// Path returns the resolved database path.
func (s *DatabaseSource) Path() string { return s.path }

// Key returns the database path.
func (s *DatabaseSource) Key() string { return "file:" + s.path }

// Connect checks the file exists and opens it read-only.
func (s *DatabaseSource) Connect(ctx context.Context) error {
	if s.path == "" {
		p, err := DefaultDatabasePath()
		if err != nil {
			return &DatabaseNotFoundError{Err: err}
		}
		s.path = p
	}

	if strings.HasPrefix(s.path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return &DatabaseNotFoundError{Path: s.path, Err: err}
		}
		s.path = filepath.Join(home, s.path[1:])
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return &DatabaseNotFoundError{Path: s.path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &DatabaseNotFoundError{Path: s.path, Err: errors.New("not a regular file")}
	}

	dsn := fmt.Sprintf("%s?_pragma=query_only(1)", s.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return &DatabaseNotFoundError{Path: s.path, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &DatabaseNotFoundError{Path: s.path, Err: err}
	}

	s.db = db
	log.Info().Str("path", s.path).Msg("deCONZ database opened")
	return nil
}

// Authenticate is a no-op; the database has no credential.
func (s *DatabaseSource) Authenticate(context.Context, string) error { return nil }

// FetchNetworkParams reads the gateway settings kept in the config2 table.
// Databases without that table yield empty params.
func (s *DatabaseSource) FetchNetworkParams(ctx context.Context) (network.Params, error) {
	if s.db == nil {
		return network.Params{}, &FetchError{Resource: "config2", Err: errors.New("database not open")}
	}

	ok, err := s.hasTable(ctx, "config2")
	if err != nil {
		return network.Params{}, &FetchError{Resource: "config2", Err: err}
	}
	if !ok {
		log.Debug().Msg("No config2 table; network parameters unknown")
		return network.Params{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config2`)
	if err != nil {
		return network.Params{}, &FetchError{Resource: "config2", Err: err}
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return network.Params{}, &FetchError{Resource: "config2", Err: err}
		}
		values[strings.ToLower(key.String)] = value.String
	}
	if err := rows.Err(); err != nil {
		return network.Params{}, &FetchError{Resource: "config2", Err: err}
	}

	var p network.Params
	if ch, err := strconv.Atoi(strings.TrimSpace(values["zigbeechannel"])); err == nil {
		p.Channel = ch
	}
	p.PanID = dbHexField(values["panid"], network.PanIDLength)
	p.ExtPanID = dbHexField(values["extpanid"], network.ExtPanIDLength)
	p.NetworkKey = dbHexField(values["networkkey"], network.NetworkKeyLength)
	p.GatewayName = values["name"]
	p.GatewayVersion = values["swversion"]
	return p, nil
}

// dbHexField accepts values stored either as decimal or as 0x-prefixed hex.
func dbHexField(raw string, length int) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(raw), "0x") {
		if v := network.ParseDecimalField(raw, length); v != "" {
			return v
		}
	}
	return network.ParseHexField(raw, length)
}

// FetchDevices reads every row of the devices table. Only the first two
// columns are interpreted positionally as id and name; a column named
// "type" selects the kind, defaulting to sensor.
func (s *DatabaseSource) FetchDevices(ctx context.Context) ([]device.Record, error) {
	if s.db == nil {
		return nil, &FetchError{Resource: "devices", Err: errors.New("database not open")}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT * FROM devices`)
	if err != nil {
		return nil, &FetchError{Resource: "devices", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &FetchError{Resource: "devices", Err: err}
	}
	if len(cols) < 2 {
		return nil, &FetchError{Resource: "devices", Err: fmt.Errorf("expected at least 2 columns, got %d", len(cols))}
	}
	typeCol := -1
	for i, c := range cols {
		if strings.EqualFold(c, "type") {
			typeCol = i
		}
	}

	records := make([]device.Record, 0)
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &FetchError{Resource: "devices", Err: err}
		}

		kind := device.KindSensor
		if typeCol >= 0 && device.Kind(strings.ToLower(columnString(raw[typeCol]))) == device.KindLight {
			kind = device.KindLight
		}

		rec, err := device.NewRecord(kind, columnString(raw[0]), device.Fields{Name: columnString(raw[1])})
		if err != nil {
			log.Debug().Err(err).Msg("Skipping device row")
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &FetchError{Resource: "devices", Err: err}
	}

	log.Info().Int("devices", len(records)).Msg("Devices read from database")
	return records, nil
}

// Close closes the database.
func (s *DatabaseSource) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *DatabaseSource) hasTable(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return n > 0, err
}

func columnString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
