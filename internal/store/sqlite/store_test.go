package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"tradedash/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "indicators.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_SeedsDefaultCatalogue(t *testing.T) {
	s := openTestStore(t)
	defs, err := s.EnabledIndicators(context.Background())
	if err != nil {
		t.Fatalf("EnabledIndicators: %v", err)
	}
	if len(defs) != len(defaultIndicators) {
		t.Fatalf("got %d indicators, want %d", len(defs), len(defaultIndicators))
	}
	// Display order is ascending.
	for i := 1; i < len(defs); i++ {
		if defs[i].DisplayOrder < defs[i-1].DisplayOrder {
			t.Errorf("display order not ascending at %d", i)
		}
	}
}

func TestOpen_SeedIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "indicators.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()

	defs, err := s2.EnabledIndicators(context.Background())
	if err != nil {
		t.Fatalf("EnabledIndicators: %v", err)
	}
	if len(defs) != len(defaultIndicators) {
		t.Errorf("reopen duplicated the seed: %d indicators", len(defs))
	}
}

func TestStore_MACDMetadata(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	defs, err := s.EnabledIndicators(ctx)
	if err != nil {
		t.Fatalf("EnabledIndicators: %v", err)
	}
	var macd *model.Definition
	for i := range defs {
		if defs[i].Code == "MACD" {
			macd = &defs[i]
			break
		}
	}
	if macd == nil {
		t.Fatal("MACD not seeded")
	}

	handler, err := s.HandlerName(ctx, macd.ID)
	if err != nil {
		t.Fatalf("HandlerName: %v", err)
	}
	if handler != "macd" {
		t.Errorf("handler: got %q, want %q", handler, "macd")
	}

	params, err := s.ParamDefs(ctx, macd.ID)
	if err != nil {
		t.Fatalf("ParamDefs: %v", err)
	}
	if len(params) != 3 {
		t.Errorf("got %d params, want 3", len(params))
	}

	series, err := s.SeriesDefs(ctx, macd.ID)
	if err != nil {
		t.Fatalf("SeriesDefs: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("got %d series, want 3", len(series))
	}
	// Histogram derives its value instead of reading a handler field.
	if series[2].Key != "hist" || series[2].ValueExpression != "macd - signal" {
		t.Errorf("histogram series wrong: %+v", series[2])
	}
}

func TestStore_HandlerNameMissingRow(t *testing.T) {
	s := openTestStore(t)
	name, err := s.HandlerName(context.Background(), 99999)
	if err != nil {
		t.Fatalf("HandlerName: %v", err)
	}
	if name != "" {
		t.Errorf("got %q, want empty for missing logic row", name)
	}
}

func TestStore_UserSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	us := model.UserSetting{
		UserID:        7,
		IndicatorCode: "RSI",
		Params:        map[string]any{"period": 21.0},
		Active:        true,
	}
	if err := s.SaveUserSetting(ctx, us); err != nil {
		t.Fatalf("SaveUserSetting: %v", err)
	}

	got, err := s.UserSettings(ctx, 7)
	if err != nil {
		t.Fatalf("UserSettings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d settings, want 1", len(got))
	}
	if got[0].IndicatorCode != "RSI" || !got[0].Active {
		t.Errorf("round trip lost data: %+v", got[0])
	}
	if got[0].Params["period"] != 21.0 {
		t.Errorf("params round trip: %+v", got[0].Params)
	}

	// Upsert replaces, never duplicates.
	us.Active = false
	us.Params = map[string]any{"period": 9.0}
	if err := s.SaveUserSetting(ctx, us); err != nil {
		t.Fatalf("second SaveUserSetting: %v", err)
	}
	got, err = s.UserSettings(ctx, 7)
	if err != nil {
		t.Fatalf("UserSettings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("upsert duplicated: %d rows", len(got))
	}
	if got[0].Active || got[0].Params["period"] != 9.0 {
		t.Errorf("upsert did not replace: %+v", got[0])
	}

	// Other users see nothing.
	other, err := s.UserSettings(ctx, 8)
	if err != nil {
		t.Fatalf("UserSettings: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("settings leaked across users: %+v", other)
	}
}
