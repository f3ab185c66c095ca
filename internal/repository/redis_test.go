package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bgscan/internal/codec"
	"bgscan/internal/domain/analysis"
	hist "bgscan/internal/domain/history"
	"bgscan/internal/domain/position"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func startingPosition() position.BoardPosition {
	return codec.Identify(position.New(position.Starting(), time.Unix(0, 0)))
}

func TestAnalysisCacheKeyedBySideToMove(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewAnalysisCache(zap.NewNop().Sugar(), client, time.Hour)
	ctx := context.Background()

	p := startingPosition()
	want := analysis.PositionAnalysis{
		PositionID:     p.ID,
		WinningChances: analysis.WinningChances{Win: 52, Gammon: 12, Backgammon: 1},
		Evaluation:     0.1,
		BestMoves:      []analysis.Move{},
		Confidence:     0.5,
	}
	if _, ok := cache.Get(ctx, p); ok {
		t.Fatal("empty cache reported a hit")
	}
	cache.Put(ctx, p, want)

	key := "bgscan:analysis:white:" + p.ID
	if !mr.Exists(key) {
		t.Fatalf("key %q not written, have %v", key, mr.Keys())
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", ttl)
	}

	got, ok := cache.Get(ctx, p)
	if !ok || got.Evaluation != want.Evaluation || got.WinningChances != want.WinningChances {
		t.Errorf("Get = %+v, %v", got, ok)
	}
	if _, ok := cache.Get(ctx, p.WithToMove(position.Red)); ok {
		t.Error("red to move must not share white's entry")
	}

	mr.FastForward(time.Hour + time.Second)
	if _, ok := cache.Get(ctx, p); ok {
		t.Error("entry outlived its ttl")
	}
}

func TestAnalysisCacheSkipsUnidentifiedAndCorrupt(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewAnalysisCache(zap.NewNop().Sugar(), client, time.Minute)
	ctx := context.Background()

	p := startingPosition()
	anon := p
	anon.ID = ""
	cache.Put(ctx, anon, analysis.PositionAnalysis{})
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("position without ID was cached: %v", keys)
	}

	if err := mr.Set("bgscan:analysis:white:"+p.ID, "{"); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Get(ctx, p); ok {
		t.Error("corrupt entry reported as a hit")
	}
}

func TestSettingsRepository(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewSettingsRepository(zap.NewNop().Sugar(), client)
	ctx := context.Background()

	if _, found, err := repo.LoadSettings(ctx); err != nil || found {
		t.Fatalf("LoadSettings on empty redis = %v, %v", found, err)
	}

	want := hist.DefaultSettings()
	want.FlashEnabled = true
	if err := repo.SaveSettings(ctx, want); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("bgscan:settings") {
		t.Fatalf("settings key missing, have %v", mr.Keys())
	}
	got, found, err := repo.LoadSettings(ctx)
	if err != nil || !found || got != want {
		t.Errorf("LoadSettings = %+v, %v, %v", got, found, err)
	}

	if err = mr.Set("bgscan:settings", "not json"); err != nil {
		t.Fatal(err)
	}
	if _, _, err = repo.LoadSettings(ctx); err == nil {
		t.Error("corrupt settings should be an error")
	}
}
