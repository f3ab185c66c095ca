package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	hist "bgscan/internal/domain/history"
)

const settingsKey = "bgscan:settings"

type SettingsRepository struct {
	log    *zap.SugaredLogger
	client *redis.Client
}

func NewSettingsRepository(log *zap.SugaredLogger, client *redis.Client) *SettingsRepository {
	return &SettingsRepository{
		log:    log,
		client: client,
	}
}

func (s *SettingsRepository) LoadSettings(ctx context.Context) (hist.Settings, bool, error) {
	val, err := s.client.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return hist.Settings{}, false, nil
	}
	if err != nil {
		s.log.Errorw("failed to read settings from redis", "error", err)
		return hist.Settings{}, false, err
	}

	var settings hist.Settings
	if err = json.Unmarshal(val, &settings); err != nil {
		return hist.Settings{}, false, err
	}
	return settings, true, nil
}

func (s *SettingsRepository) SaveSettings(ctx context.Context, settings hist.Settings) error {
	bytes, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, settingsKey, bytes, 0).Err()
}
