package config

import (
	"testing"
	"time"

	"github.com/ashendes/store-console/internal/models"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ConsoleAddress())
	assert.Equal(t, "http://localhost:8090", cfg.StoreAPI.BaseURL)
	assert.Equal(t, 10, cfg.Pages.Orders[models.SourceNative])
	assert.Equal(t, 6, cfg.Pages.Orders[models.SourceFulfillment])
	assert.Equal(t, 7, cfg.Pages.Products)
	assert.Equal(t, "/api/cart-orders", cfg.StoreAPI.OrderPaths[models.SourceLegacyCart])
	assert.Equal(t, log.InfoLevel, cfg.Level())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CONSOLE_PORT", "9000")
	t.Setenv("PRODUCTS_PAGE_SIZE", "12")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("BULKHEAD_SIZE", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ConsoleAddress())
	assert.Equal(t, 12, cfg.Pages.Products)
	assert.Equal(t, 3*time.Second, cfg.StoreAPI.Timeout)
	assert.Equal(t, 10, cfg.StoreAPI.BulkheadSize)
	assert.Equal(t, log.DebugLevel, cfg.Level())
}

func TestLoadRejectsBadPageSize(t *testing.T) {
	t.Setenv("FULFILLMENT_PAGE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
}
