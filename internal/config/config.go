package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/patterns"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all configuration for the console and the stand-in store API
type Config struct {
	Console  ConsoleConfig
	StoreAPI StoreAPIConfig
	Pages    PageConfig
	LogLevel string
}

// ConsoleConfig holds the console server settings
type ConsoleConfig struct {
	Port             int
	NotificationSize int
}

// StoreAPIConfig describes how to reach the remote store API
type StoreAPIConfig struct {
	Port           int
	BaseURL        string
	Token          string
	Timeout        time.Duration
	UploadTimeout  time.Duration
	BulkheadSize   int
	OrderPaths     map[models.SourceTag]string
	ProductsPath   string
	CategoriesPath string
}

// PageConfig holds the fixed page size of each view
type PageConfig struct {
	Orders   map[models.SourceTag]int
	Products int
}

// Load reads configuration from the environment, after a best-effort .env load
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment")
	}

	cfg := &Config{
		Console: ConsoleConfig{
			Port:             getEnvAsInt("CONSOLE_PORT", 8080),
			NotificationSize: getEnvAsInt("NOTIFICATION_BUFFER", 100),
		},
		StoreAPI: StoreAPIConfig{
			Port:          getEnvAsInt("STORE_API_PORT", 8090),
			BaseURL:       getEnv("STORE_API_URL", "http://localhost:8090"),
			Token:         getEnv("STORE_API_TOKEN", ""),
			Timeout:       getEnvAsDuration("HTTP_TIMEOUT", patterns.DefaultTimeout),
			UploadTimeout: getEnvAsDuration("UPLOAD_TIMEOUT", patterns.UploadTimeout),
			BulkheadSize:  getEnvAsInt("BULKHEAD_SIZE", 10),
			OrderPaths: map[models.SourceTag]string{
				models.SourceNative:      getEnv("NATIVE_ORDERS_PATH", "/api/orders"),
				models.SourceFulfillment: getEnv("FULFILLMENT_ORDERS_PATH", "/api/shipments"),
				models.SourceLegacyCart:  getEnv("LEGACY_ORDERS_PATH", "/api/cart-orders"),
			},
			ProductsPath:   getEnv("PRODUCTS_PATH", "/api/products"),
			CategoriesPath: getEnv("CATEGORIES_PATH", "/api/categories"),
		},
		Pages: PageConfig{
			Orders: map[models.SourceTag]int{
				models.SourceNative:      getEnvAsInt("ORDERS_PAGE_SIZE", 10),
				models.SourceFulfillment: getEnvAsInt("FULFILLMENT_PAGE_SIZE", 6),
				models.SourceLegacyCart:  getEnvAsInt("LEGACY_PAGE_SIZE", 10),
			},
			Products: getEnvAsInt("PRODUCTS_PAGE_SIZE", 7),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StoreAPI.BaseURL == "" {
		return fmt.Errorf("STORE_API_URL must not be empty")
	}
	for source, size := range c.Pages.Orders {
		if size <= 0 {
			return fmt.Errorf("page size for %s orders must be positive, got %d", source, size)
		}
	}
	if c.Pages.Products <= 0 {
		return fmt.Errorf("PRODUCTS_PAGE_SIZE must be positive, got %d", c.Pages.Products)
	}
	return nil
}

// ConsoleAddress returns the console listen address
func (c *Config) ConsoleAddress() string {
	return fmt.Sprintf(":%d", c.Console.Port)
}

// StoreAPIAddress returns the stand-in store API listen address
func (c *Config) StoreAPIAddress() string {
	return fmt.Sprintf(":%d", c.StoreAPI.Port)
}

// Level parses LogLevel, falling back to info
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.WithField("key", key).Warn("Invalid integer in environment, using default")
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.WithField("key", key).Warn("Invalid duration in environment, using default")
	}
	return fallback
}
