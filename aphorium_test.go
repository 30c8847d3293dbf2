package aphorium

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/emrgen/aphorium/internal/config"
	"github.com/emrgen/aphorium/internal/model"
	"github.com/emrgen/aphorium/internal/service"
	"github.com/emrgen/aphorium/internal/tester"
	"github.com/emrgen/aphorium/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.DSN = filepath.Join(dir, "aphorium.db")
	return cfg
}

func TestEngine_DedupAndLink(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.TODO()

	engine, err := New(cfg)
	require.NoError(t, err)
	defer engine.Close()
	require.NoError(t, engine.Migrate())

	for _, q := range []*model.Quote{
		{ID: 1, Text: "Knowledge is power.", Language: model.LanguageEN},
		{ID: 2, Text: "knowledge is power", Language: model.LanguageEN},
		{ID: 3, Text: "Знание - сила.", Language: model.LanguageRU},
	} {
		require.NoError(t, engine.Store.CreateQuote(ctx, q))
	}

	reports, err := engine.Dedup.Deduplicate(ctx, service.DedupOptions{}, cfg.Languages...)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[0].Merged)

	result, err := engine.Linker.Link(ctx, 1, 3, 90, service.StrategyManual)
	require.NoError(t, err)
	assert.True(t, result.Created)

	unlinked, err := engine.Reporter.Unlinked(ctx, model.LanguageEN, model.LanguageRU)
	require.NoError(t, err)
	assert.Empty(t, unlinked)

	snapshots, err := engine.Reporter.Tombstones(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func TestEngine_WithDBAndProvider(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.TODO()

	provider := translate.ProviderFunc(func(_ context.Context, text, from, to string) (string, error) {
		return "Знание - сила.", nil
	})
	engine, err := New(cfg, WithDB(tester.TestDB(t)), WithProvider(provider))
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Store.CreateQuote(ctx, &model.Quote{ID: 1, Text: "Knowledge is power.", Language: model.LanguageEN}))

	created, err := engine.Linker.Materialize(ctx, 1, model.LanguageRU)
	require.NoError(t, err)
	assert.Equal(t, "Знание - сила.", created.Text)
	assert.True(t, created.HasGroup())
}

func TestEngine_Scheduler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Dedup = ""
	cfg.Schedule.Link = ""
	cfg.Schedule.Purge = "@daily"

	engine, err := New(cfg, WithDB(tester.TestDB(t)))
	require.NoError(t, err)
	defer engine.Close()

	scheduler := engine.Scheduler()
	require.NoError(t, scheduler.Start())
	scheduler.Stop()
}

func TestEngine_BadCompression(t *testing.T) {
	cfg := testConfig(t)
	cfg.Compression = "zstd"

	_, err := New(cfg, WithDB(tester.TestDB(t)))
	assert.Error(t, err)
}
