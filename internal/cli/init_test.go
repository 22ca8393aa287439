package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagihan/internal/config"
	applog "tagihan/internal/log"
	"tagihan/internal/notify"
	"tagihan/internal/storage"
	"tagihan/internal/storage/memory"
)

func testLogger() *applog.Logger {
	return SetupLogger(&config.Config{LogLevel: "error", LogFormat: "text"}, applog.ComponentApp)
}

func TestOpenStore(t *testing.T) {
	logger := testLogger()

	store := OpenStore(logger, &config.Config{DataBackend: "memory"})
	assert.IsType(t, &memory.Store{}, store)

	path := filepath.Join(t.TempDir(), "tagihan.db")
	store = OpenStore(logger, &config.Config{DataBackend: "sqlite", SQLiteDBPath: path})
	t.Cleanup(func() { store.Close() })
	require.IsType(t, &storage.SQLiteRepository{}, store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewSender(t *testing.T) {
	logger := testLogger()

	assert.IsType(t, notify.LogSender{}, NewSender(logger, &config.Config{}))
	assert.IsType(t, &notify.SMTPSender{}, NewSender(logger, &config.Config{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    587,
		SenderEmail: "bills@example.com",
	}))
}

func TestNewGeneratorWithoutKey(t *testing.T) {
	assert.Nil(t, NewGenerator(context.Background(), testLogger(), &config.Config{}))
}
