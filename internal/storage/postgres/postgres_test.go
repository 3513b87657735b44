package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/gtil/internal/storage"
	"github.com/cory-johannsen/gtil/internal/storage/postgres"
	"github.com/cory-johannsen/gtil/internal/testutil"
)

func TestHighScoreRepository_RecordTrimsToTen(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	repo := pc.Pool.HighScores()
	ctx := context.Background()

	base := time.Date(1812, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		require.NoError(t, repo.Record(ctx, storage.NewHighScore(i*10, "el_gato", base.Add(time.Duration(i)*time.Minute))))
	}
	top, err := repo.Top(ctx, 20)
	require.NoError(t, err)
	require.Len(t, top, storage.MaxHighScores)
	assert.Equal(t, 120, top[0].Score)
	assert.Equal(t, 30, top[len(top)-1].Score)
	assert.Equal(t, "el_gato", top[0].CharType)
}

func TestHighScoreRepository_DuplicateID(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	repo := pc.Pool.HighScores()
	ctx := context.Background()

	hs := storage.NewHighScore(500, "la_monja", time.Now())
	require.NoError(t, repo.Record(ctx, hs))
	assert.ErrorIs(t, repo.Record(ctx, hs), postgres.ErrDuplicateScore)
}

func TestSettingsRepository_RoundTrip(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	repo := pc.Pool.Settings()
	ctx := context.Background()

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultSettings(), got)

	require.NoError(t, repo.Save(ctx, storage.Settings{Volume: 1.7, AllowedWeapons: map[string]bool{"pistol": true, "sable": true}}))
	require.NoError(t, repo.Save(ctx, storage.Settings{Volume: 0.25, AllowedWeapons: map[string]bool{"rifle": true}}))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.25, got.Volume)
	assert.Equal(t, map[string]bool{"rifle": true}, got.AllowedWeapons)
}

func TestPool_Health(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	assert.NoError(t, pc.Pool.Health(context.Background(), 2*time.Second))
}
