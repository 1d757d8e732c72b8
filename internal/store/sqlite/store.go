// Package sqlite implements the indicator configuration store and the user
// preference store on a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"tradedash/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides read access to indicator metadata and read/write access to
// per-user indicator settings.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at dbPath, applies the
// schema and seeds the default indicator set when the tables are empty.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	if err := seedDefaults(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite seed: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS indicators (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			code          TEXT    NOT NULL UNIQUE,
			name          TEXT    NOT NULL,
			chart_type    TEXT    NOT NULL DEFAULT 'overlay',
			default_color TEXT    NOT NULL DEFAULT '#2962FF',
			enabled       INTEGER NOT NULL DEFAULT 1,
			display_order INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS indicator_logic (
			indicator_id INTEGER NOT NULL UNIQUE REFERENCES indicators(id),
			handler      TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS indicator_params (
			indicator_id  INTEGER NOT NULL REFERENCES indicators(id),
			param_key     TEXT    NOT NULL,
			param_type    TEXT    NOT NULL,
			default_value TEXT    NOT NULL,
			param_label   TEXT,
			PRIMARY KEY (indicator_id, param_key)
		);

		CREATE TABLE IF NOT EXISTS indicator_series (
			indicator_id     INTEGER NOT NULL REFERENCES indicators(id),
			series_key       TEXT    NOT NULL,
			series_name      TEXT    NOT NULL,
			series_type      TEXT    NOT NULL DEFAULT 'line',
			color            TEXT,
			y_axis           TEXT    NOT NULL DEFAULT 'right',
			display_order    INTEGER NOT NULL DEFAULT 0,
			value_expression TEXT,
			PRIMARY KEY (indicator_id, series_key)
		);

		CREATE TABLE IF NOT EXISTS user_indicator_settings (
			user_id        INTEGER NOT NULL,
			indicator_code TEXT    NOT NULL,
			params         TEXT,
			is_active      INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, indicator_code)
		);
	`)
	return err
}

// EnabledIndicators returns all enabled definitions ordered for display.
func (s *Store) EnabledIndicators(ctx context.Context) ([]model.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, chart_type, default_color, enabled, display_order
		FROM indicators
		WHERE enabled = 1
		ORDER BY display_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query indicators: %w", err)
	}
	defer rows.Close()

	var defs []model.Definition
	for rows.Next() {
		var d model.Definition
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.ChartType, &d.DefaultColor, &d.Enabled, &d.DisplayOrder); err != nil {
			return nil, fmt.Errorf("sqlite scan indicator: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// ParamDefs returns the parameter definitions of one indicator.
func (s *Store) ParamDefs(ctx context.Context, indicatorID int64) ([]model.ParamDef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT indicator_id, param_key, param_type, default_value, COALESCE(param_label, param_key)
		FROM indicator_params
		WHERE indicator_id = ?
	`, indicatorID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query params: %w", err)
	}
	defer rows.Close()

	var defs []model.ParamDef
	for rows.Next() {
		var d model.ParamDef
		if err := rows.Scan(&d.IndicatorID, &d.Key, &d.Type, &d.Default, &d.Label); err != nil {
			return nil, fmt.Errorf("sqlite scan param: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// SeriesDefs returns the series definitions of one indicator in display order.
func (s *Store) SeriesDefs(ctx context.Context, indicatorID int64) ([]model.SeriesDef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT indicator_id, series_key, series_name, series_type,
		       COALESCE(color, ''), y_axis, display_order, COALESCE(value_expression, '')
		FROM indicator_series
		WHERE indicator_id = ?
		ORDER BY display_order ASC
	`, indicatorID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query series: %w", err)
	}
	defer rows.Close()

	var defs []model.SeriesDef
	for rows.Next() {
		var d model.SeriesDef
		if err := rows.Scan(&d.IndicatorID, &d.Key, &d.Name, &d.Type, &d.Color, &d.YAxis, &d.DisplayOrder, &d.ValueExpression); err != nil {
			return nil, fmt.Errorf("sqlite scan series: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// HandlerName returns the handler binding of one indicator; "" when the
// logic row is missing (the registry treats that as a config error).
func (s *Store) HandlerName(ctx context.Context, indicatorID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT handler FROM indicator_logic WHERE indicator_id = ?`, indicatorID,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite query handler: %w", err)
	}
	return name, nil
}

// UserSettings returns all saved indicator settings of a user.
func (s *Store) UserSettings(ctx context.Context, userID int64) ([]model.UserSetting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, indicator_code, COALESCE(params, '{}'), is_active
		FROM user_indicator_settings
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query user settings: %w", err)
	}
	defer rows.Close()

	var out []model.UserSetting
	for rows.Next() {
		var us model.UserSetting
		var paramsJSON string
		if err := rows.Scan(&us.UserID, &us.IndicatorCode, &paramsJSON, &us.Active); err != nil {
			return nil, fmt.Errorf("sqlite scan user setting: %w", err)
		}
		if err := json.Unmarshal([]byte(paramsJSON), &us.Params); err != nil {
			us.Params = map[string]any{}
		}
		out = append(out, us)
	}
	return out, rows.Err()
}

// SaveUserSetting upserts one user's settings for one indicator.
func (s *Store) SaveUserSetting(ctx context.Context, us model.UserSetting) error {
	paramsJSON, err := json.Marshal(us.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_indicator_settings (user_id, indicator_code, params, is_active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, indicator_code)
		DO UPDATE SET params = excluded.params, is_active = excluded.is_active
	`, us.UserID, us.IndicatorCode, string(paramsJSON), boolToInt(us.Active))
	if err != nil {
		return fmt.Errorf("sqlite save user setting: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
