package storage

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/preprocessing"
	"github.com/plantops/forgeml/trainer"
)

func trainModels(t *testing.T, target string, kinds ...string) []*trainer.TrainedModel {
	t.Helper()
	rows := make([]preprocessing.Row, 30)
	for i := range rows {
		x := float64(i)
		rows[i] = preprocessing.Row{"temp": x, "pressure": 100 - x, target: 3*x + 1}
	}
	p := trainer.DefaultParams()
	p.BoostingRounds, p.CVBoostingRounds = 10, 5
	p.ForestTrees, p.CVForestTrees = 5, 3
	models, err := trainer.Train(rows, trainer.Config{
		Target:    target,
		Features:  []string{"temp", "pressure"},
		TestSplit: 0.2,
		Models:    kinds,
	}, trainer.WithParams(p))
	require.NoError(t, err)
	return models
}

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	models := trainModels(t, "yield", "linear", "gradient_boosting")

	require.NoError(t, s.SaveAll(ctx, models))
	for _, m := range models {
		got, err := s.Get(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, m.Type, got.Type)
		assert.Equal(t, m.Metrics, got.Metrics)
		assert.JSONEq(t, string(m.Params), string(got.Params))
	}

	_, err := s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var tick int64
	s.now = func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&tick, 1)) * time.Minute)
	}

	yield := trainModels(t, "yield", "linear")
	purity := trainModels(t, "purity", "linear")
	require.NoError(t, s.Save(ctx, yield[0]))
	require.NoError(t, s.Save(ctx, purity[0]))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, purity[0].ID, all[0].ID, "newest first")
	assert.Equal(t, trainer.KindLinear, all[0].Kind)

	only, err := s.List(ctx, "yield")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "yield", only[0].Target)

	require.NoError(t, s.Delete(ctx, yield[0].ID))
	assert.True(t, errors.Is(s.Delete(ctx, yield[0].ID), ErrNotFound))

	all, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	m := trainModels(t, "yield", "linear")[0]

	require.NoError(t, s.Save(ctx, m))
	require.NoError(t, s.Save(ctx, m))
	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

type countingLoader struct {
	Loader
	calls int
}

func (c *countingLoader) Load(ctx context.Context, id string) ([]byte, error) {
	c.calls++
	return c.Loader.Load(ctx, id)
}

func TestPredictorCache(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	models := trainModels(t, "yield", "linear", "random_forest", "gradient_boosting")
	require.NoError(t, s.SaveAll(ctx, models))

	loader := &countingLoader{Loader: s}
	cache, err := NewPredictorCache(loader, 2)
	require.NoError(t, err)

	p, err := cache.Get(ctx, models[0].ID)
	require.NoError(t, err)
	again, err := cache.Get(ctx, models[0].ID)
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, 1, loader.calls)

	for _, m := range models[1:] {
		_, err := cache.Get(ctx, m.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())

	_, err = cache.Get(ctx, models[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 4, loader.calls, "evicted predictor is rebuilt")

	cache.Invalidate(models[0].ID)
	assert.Equal(t, 1, cache.Len())

	_, err = cache.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

type staticLoader []byte

func (s staticLoader) Load(context.Context, string) ([]byte, error) { return s, nil }

func TestPredictorCacheRejectsCorruptArtifact(t *testing.T) {
	cache, err := NewPredictorCache(staticLoader(`{"type":"linear"`), 0)
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "x")
	assert.True(t, errors.Is(err, errors.ErrInvalidArtifact))
	assert.Equal(t, 0, cache.Len())
}
