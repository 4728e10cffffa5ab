package store

import "context"

// GetSettings returns the user's settings map.
func (s *Store) GetSettings(ctx context.Context, userID int64) (map[string]string, error) {
	type kv struct {
		Key   string `db:"skey"`
		Value string `db:"svalue"`
	}
	var rows []kv
	err := s.db.SelectContext(ctx, &rows,
		"SELECT skey, svalue FROM user_settings WHERE user_id = $1", userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// PutSetting upserts one setting.
func (s *Store) PutSetting(ctx context.Context, userID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, skey, svalue)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, skey) DO UPDATE SET svalue = EXCLUDED.svalue`,
		userID, key, value)
	return err
}
