package history

import (
	"context"

	"go.uber.org/zap"

	hist "bgscan/internal/domain/history"
)

type SettingsStore interface {
	// LoadSettings reports false when nothing has been saved yet.
	LoadSettings(ctx context.Context) (hist.Settings, bool, error)
	SaveSettings(ctx context.Context, s hist.Settings) error
}

type SettingsUseCase struct {
	store SettingsStore
	log   *zap.SugaredLogger
}

func NewSettingsUseCase(store SettingsStore, log *zap.SugaredLogger) *SettingsUseCase {
	return &SettingsUseCase{store: store, log: log}
}

func (s *SettingsUseCase) Get(ctx context.Context) (hist.Settings, error) {
	stored, ok, err := s.store.LoadSettings(ctx)
	if err != nil {
		return hist.Settings{}, err
	}
	if !ok {
		return hist.DefaultSettings(), nil
	}
	return stored, nil
}

// Update merges patch into the current settings and saves the result.
func (s *SettingsUseCase) Update(ctx context.Context, patch hist.SettingsPatch) (hist.Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return hist.Settings{}, err
	}
	next := current.Apply(patch)
	if err = s.store.SaveSettings(ctx, next); err != nil {
		return hist.Settings{}, err
	}
	s.log.Infow("настройки обновлены", "settings", next)
	return next, nil
}
