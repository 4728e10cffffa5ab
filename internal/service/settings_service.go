package service

import (
	"context"
	"strconv"

	"bead-inventory-service/internal/store"
)

const (
	settingCriticalThreshold = "criticalThreshold"

	// DefaultCriticalThreshold is the low-stock warning level used until
	// the user sets their own.
	DefaultCriticalThreshold = 300
)

// Settings is the user-tunable configuration surface.
type Settings struct {
	CriticalThreshold int64 `json:"criticalThreshold"`
}

// SettingsService reads and writes per-user settings.
type SettingsService struct {
	store *store.Store
}

// NewSettingsService creates a new settings service
func NewSettingsService(store *store.Store) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns the user's settings with defaults applied.
func (s *SettingsService) Get(ctx context.Context, userID int64) (*Settings, error) {
	raw, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &Settings{CriticalThreshold: DefaultCriticalThreshold}
	if v, ok := raw[settingCriticalThreshold]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			out.CriticalThreshold = n
		}
	}
	return out, nil
}

// Update persists the settings the request carries.
func (s *SettingsService) Update(ctx context.Context, userID int64, in *Settings) error {
	if in.CriticalThreshold <= 0 {
		return validationf("invalid criticalThreshold")
	}
	return s.store.PutSetting(ctx, userID, settingCriticalThreshold,
		strconv.FormatInt(in.CriticalThreshold, 10))
}
