package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := d.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	v, err := d.SchemaVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", v, currentSchemaVersion)
	}
}

func TestGateways_UpsertKeepsCredential(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	store := d.Gateways()

	g := &Gateway{Key: "http://192.168.178.76:4530", Host: "192.168.178.76", Port: 4530, APIKey: "99D54B94DA"}
	if err := store.Upsert(ctx, g); err != nil {
		t.Fatal(err)
	}
	if g.ID == 0 {
		t.Fatal("expected ID to be set")
	}

	again := &Gateway{Key: g.Key, Host: g.Host, Port: g.Port, Name: "Phoscon-GW"}
	if err := store.Upsert(ctx, again); err != nil {
		t.Fatal(err)
	}
	if again.ID != g.ID {
		t.Errorf("upsert created a second row: %d != %d", again.ID, g.ID)
	}

	got, err := store.GetByKey(ctx, g.Key)
	if err != nil {
		t.Fatal(err)
	}
	if got.APIKey != "99D54B94DA" {
		t.Errorf("api key = %q, want it preserved", got.APIKey)
	}
	if got.Name != "Phoscon-GW" {
		t.Errorf("name = %q", got.Name)
	}
	if got.Source != SourceREST {
		t.Errorf("source = %q, want %q", got.Source, SourceREST)
	}
}

func TestGateways_NotFound(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Gateways()

	if _, err := store.GetByKey(ctx, "nope"); !errors.Is(err, ErrGatewayNotFound) {
		t.Errorf("GetByKey err = %v", err)
	}
	if _, err := store.LastUsed(ctx); !errors.Is(err, ErrGatewayNotFound) {
		t.Errorf("LastUsed err = %v", err)
	}
	if err := store.SetAPIKey(ctx, "nope", "key"); !errors.Is(err, ErrGatewayNotFound) {
		t.Errorf("SetAPIKey err = %v", err)
	}
}

func TestGateways_SetAPIKeyAndList(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Gateways()

	for _, key := range []string{"http://a:80", "file:/tmp/zll.db"} {
		if err := store.Upsert(ctx, &Gateway{Key: key}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SetAPIKey(ctx, "http://a:80", "NEWKEY"); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	last, err := store.LastUsed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last.Key != "file:/tmp/zll.db" {
		t.Errorf("last used = %q", last.Key)
	}
}

func TestState_RememberAndReload(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	g := &Gateway{Key: "http://gw:80", Host: "gw", Port: 80}
	p := &NetworkParams{
		Channel:             15,
		PanID:               "1a63",
		ExtPanID:            "00212effff05a1b2",
		NetworkKey:          "01030507090b0d0f00020406080a0c0d",
		ExtPanIDGenerated:   true,
		NetworkKeyGenerated: true,
	}
	if err := d.Remember(ctx, g, p); err != nil {
		t.Fatal(err)
	}

	state, err := d.State(ctx, "http://gw:80")
	if err != nil {
		t.Fatal(err)
	}
	if state.Params == nil {
		t.Fatal("params not stored")
	}
	if state.Params.NetworkKey != p.NetworkKey || !state.Params.NetworkKeyGenerated {
		t.Errorf("params = %+v", state.Params)
	}

	// Second save replaces the row.
	p.Channel = 20
	if err := d.Remember(ctx, g, p); err != nil {
		t.Fatal(err)
	}
	state, err = d.State(ctx, "http://gw:80")
	if err != nil {
		t.Fatal(err)
	}
	if state.Params.Channel != 20 {
		t.Errorf("channel = %d, want 20", state.Params.Channel)
	}
}

func TestState_WithoutParams(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := d.Remember(ctx, &Gateway{Key: "http://gw:80", APIKey: "K"}, nil); err != nil {
		t.Fatal(err)
	}
	state, err := d.State(ctx, "http://gw:80")
	if err != nil {
		t.Fatal(err)
	}
	if state.Params != nil {
		t.Errorf("params = %+v, want nil", state.Params)
	}
	if state.APIKey() != "K" {
		t.Errorf("api key = %q", state.APIKey())
	}
}

func TestRuns_CreateAndRecent(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := d.Runs().Create(ctx, &Run{RunID: "a", OutputPath: "configuration.yaml", Sensors: 2, Lights: 1}); err != nil {
		t.Fatal(err)
	}
	if err := d.Runs().Create(ctx, &Run{RunID: "b", DryRun: true}); err != nil {
		t.Fatal(err)
	}

	runs, err := d.Runs().Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != "b" || !runs[0].DryRun {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[1].Sensors != 2 || runs[1].Lights != 1 || runs[1].GatewayID != 0 {
		t.Errorf("run = %+v", runs[1])
	}
}
