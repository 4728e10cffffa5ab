package store

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS palette (
		code VARCHAR(16) PRIMARY KEY,
		hex VARCHAR(16) NOT NULL DEFAULT '#CCCCCC',
		series VARCHAR(64) NOT NULL DEFAULT '',
		is_default BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS user_inventory (
		user_id BIGINT NOT NULL,
		code VARCHAR(16) NOT NULL,
		qty BIGINT NOT NULL DEFAULT 0,
		hex VARCHAR(16) NOT NULL DEFAULT '#CCCCCC',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, code)
	)`,

	`CREATE TABLE IF NOT EXISTS user_removed_codes (
		user_id BIGINT NOT NULL,
		code VARCHAR(16) NOT NULL,
		removed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, code)
	)`,

	`CREATE TABLE IF NOT EXISTS user_pattern_categories (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		name VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS user_history (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		code VARCHAR(16) NOT NULL,
		htype VARCHAR(16) NOT NULL,
		qty BIGINT NOT NULL,
		pattern VARCHAR(64),
		pattern_url VARCHAR(512),
		pattern_key VARCHAR(512),
		pattern_category_id BIGINT REFERENCES user_pattern_categories(id) ON DELETE SET NULL,
		source VARCHAR(32),
		batch_id VARCHAR(64),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_user_code_time ON user_history (user_id, code, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_history_user_batch ON user_history (user_id, batch_id)`,
	`CREATE INDEX IF NOT EXISTS idx_history_user_category ON user_history (user_id, pattern_category_id)`,

	`CREATE TABLE IF NOT EXISTS user_todo_patterns (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		pattern VARCHAR(64),
		pattern_url VARCHAR(512) NOT NULL,
		pattern_key VARCHAR(512),
		pattern_category_id BIGINT REFERENCES user_pattern_categories(id) ON DELETE SET NULL,
		items_json TEXT NOT NULL,
		total_qty BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_todo_user_time ON user_todo_patterns (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_todo_user_category ON user_todo_patterns (user_id, pattern_category_id)`,

	`CREATE TABLE IF NOT EXISTS user_settings (
		user_id BIGINT NOT NULL,
		skey VARCHAR(64) NOT NULL,
		svalue VARCHAR(256) NOT NULL,
		PRIMARY KEY (user_id, skey)
	)`,
}

// EnsureSchema creates the tables and indexes this service owns. Safe to
// run on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
