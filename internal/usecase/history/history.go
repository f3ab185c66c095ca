// Package history keeps the bounded list of scanned positions and the
// client settings.
package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bgscan/internal/codec"
	"bgscan/internal/domain/analysis"
	hist "bgscan/internal/domain/history"
	"bgscan/internal/domain/position"
	"bgscan/internal/errors"
)

// HistoryStore persists items keyed by position ID. Upsert replaces an item
// with the same ID; List returns newest first.
type HistoryStore interface {
	Upsert(ctx context.Context, item hist.Item) error
	List(ctx context.Context, limit int) ([]hist.Item, error)
	Get(ctx context.Context, id string) (hist.Item, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	// Trim drops everything but the newest keep items.
	Trim(ctx context.Context, keep int) error
}

type HistoryUseCase struct {
	store HistoryStore
	limit int
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewHistoryUseCase(store HistoryStore, limit int, log *zap.SugaredLogger) *HistoryUseCase {
	if limit <= 0 {
		limit = hist.DefaultLimit
	}
	return &HistoryUseCase{
		store: store,
		limit: limit,
		log:   log,
		now:   time.Now,
	}
}

func (h *HistoryUseCase) Limit() int {
	return h.limit
}

// Add stores p at the front of the history. A position already present moves
// to the front with the new analysis instead of being duplicated.
func (h *HistoryUseCase) Add(ctx context.Context, p position.BoardPosition, a *analysis.PositionAnalysis, imageURI string) (hist.Item, error) {
	if err := p.ValidateStructure(); err != nil {
		return hist.Item{}, err
	}
	if p.ID == "" {
		p = codec.Identify(p)
	}
	item := hist.Item{
		Position: p,
		Analysis: a,
		ImageURI: imageURI,
		SavedAt:  h.now(),
	}
	if err := h.store.Upsert(ctx, item); err != nil {
		return hist.Item{}, fmt.Errorf("%w: save history item: %v", errors.ErrInternal, err)
	}
	if err := h.store.Trim(ctx, h.limit); err != nil {
		h.log.Warnw("не удалось обрезать историю", "limit", h.limit, "error", err)
	}
	h.log.Infow("позиция сохранена в истории", "position_id", p.ID)
	return item, nil
}

func (h *HistoryUseCase) List(ctx context.Context) ([]hist.Item, error) {
	items, err := h.store.List(ctx, h.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %v", errors.ErrInternal, err)
	}
	if items == nil {
		items = []hist.Item{}
	}
	return items, nil
}

func (h *HistoryUseCase) Get(ctx context.Context, id string) (hist.Item, error) {
	return h.store.Get(ctx, id)
}

func (h *HistoryUseCase) Remove(ctx context.Context, id string) error {
	return h.store.Delete(ctx, id)
}

func (h *HistoryUseCase) Clear(ctx context.Context) error {
	return h.store.DeleteAll(ctx)
}
