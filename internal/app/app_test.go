package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hance08/purse/internal/config"
	"github.com/hance08/purse/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoRoot = os.DirFS(filepath.Join("..", ".."))

func TestNewAppWiresSQLite(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "purse.db")
	cfg.Events.Driver = config.EventsNone

	application, cleanup, err := NewApp(context.Background(), cfg, repoRoot)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "none", application.EventSink)

	ctx := context.Background()
	_, _, err = application.Service.Account.CreateAccount(ctx, service.CreateAccountInput{
		ID: "alice", Name: "Alice", Opening: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	bal, err := application.Service.Account.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "10.00", bal.Amount.StringFixed(2))
	assert.FileExists(t, cfg.Database.Path)
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Database.Driver = "oracle"

	_, _, err := NewApp(context.Background(), cfg, repoRoot)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	p, err := ExpandPath("~/purse.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "purse.db"), p)

	p, err = ExpandPath("/tmp/purse.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/purse.db", p)
}

func TestCleanupWritesMetrics(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewDefault()
	cfg.Database.Driver = config.DriverMemory
	cfg.Events.Driver = config.EventsNone
	cfg.Metrics.Textfile = filepath.Join(dir, "purse.prom")

	application, cleanup, err := NewApp(context.Background(), cfg, repoRoot)
	require.NoError(t, err)

	_, _, err = application.Service.Account.CreateAccount(context.Background(), service.CreateAccountInput{
		ID: "alice", Name: "Alice", Opening: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	cleanup()

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "purse_transfers_total")
}
