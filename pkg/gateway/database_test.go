package gateway

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/deconz2z2m/pkg/device"
)

func newZllDB(t *testing.T, stmts ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "zll.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestDatabaseSource_Devices(t *testing.T) {
	path := newZllDB(t,
		`CREATE TABLE devices (id INTEGER PRIMARY KEY, name TEXT, type TEXT, extra BLOB)`,
		`INSERT INTO devices (id, name, type) VALUES (1, 'Flur Bewegung', 'sensor')`,
		`INSERT INTO devices (id, name, type) VALUES (2, NULL, 'light')`,
		`INSERT INTO devices (id, name) VALUES (3, 'Wohnzimmer')`,
	)

	ctx := context.Background()
	src := NewDatabaseSource(path)
	require.NoError(t, src.Connect(ctx))
	defer src.Close()
	require.NoError(t, src.Authenticate(ctx, "ignored"))

	devices, err := src.FetchDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 3)

	assert.Equal(t, "1", devices[0].ID)
	assert.Equal(t, "Flur Bewegung", devices[0].Name)
	assert.Equal(t, device.KindSensor, devices[0].Kind)
	assert.Equal(t, device.KindLight, devices[1].Kind)
	assert.Equal(t, "light_2", devices[1].Name)
	assert.Equal(t, device.KindSensor, devices[2].Kind)
}

func TestDatabaseSource_NetworkParams(t *testing.T) {
	path := newZllDB(t,
		`CREATE TABLE devices (id INTEGER PRIMARY KEY, mac TEXT)`,
		`CREATE TABLE config2 (key TEXT PRIMARY KEY, value TEXT)`,
		`INSERT INTO config2 VALUES ('name', 'Phoscon-GW'), ('zigbeechannel', '20'), ('panid', '6755'), ('networkkey', '0x00112233445566778899aabbccddeeff')`,
	)

	ctx := context.Background()
	src := NewDatabaseSource(path)
	require.NoError(t, src.Connect(ctx))
	defer src.Close()

	params, err := src.FetchNetworkParams(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, params.Channel)
	assert.Equal(t, "1a63", params.PanID)
	assert.Empty(t, params.ExtPanID)
	assert.Equal(t, "00112233445566778899aabbccddeeff", params.NetworkKey)
	assert.Equal(t, "Phoscon-GW", params.GatewayName)
}

func TestDatabaseSource_NoConfigTable(t *testing.T) {
	path := newZllDB(t, `CREATE TABLE devices (id INTEGER PRIMARY KEY, mac TEXT)`)

	ctx := context.Background()
	src := NewDatabaseSource(path)
	require.NoError(t, src.Connect(ctx))
	defer src.Close()

	params, err := src.FetchNetworkParams(ctx)
	require.NoError(t, err)
	assert.Zero(t, params)

	devices, err := src.FetchDevices(ctx)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestDatabaseSource_NotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	err := NewDatabaseSource(path).Connect(context.Background())
	require.Error(t, err)

	var nf *DatabaseNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, path, nf.Path)
	assert.True(t, errors.Is(err, device.ErrDatabaseNotFound))
}

func TestDatabaseSource_DirectoryIsNotADatabase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zll.db"), 0755))

	err := NewDatabaseSource(filepath.Join(dir, "zll.db")).Connect(context.Background())
	assert.True(t, errors.Is(err, device.ErrDatabaseNotFound))
}

func TestDatabaseSource_MissingDevicesTable(t *testing.T) {
	path := newZllDB(t, `CREATE TABLE other (id INTEGER)`)

	ctx := context.Background()
	src := NewDatabaseSource(path)
	require.NoError(t, src.Connect(ctx))
	defer src.Close()

	_, err := src.FetchDevices(ctx)
	assert.True(t, errors.Is(err, device.ErrFetch))
}
