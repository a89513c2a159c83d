package main

import (
	"context"
	"time"

	"github.com/ashendes/store-console/internal/catalog"
	"github.com/ashendes/store-console/internal/clients"
	"github.com/ashendes/store-console/internal/config"
	"github.com/ashendes/store-console/internal/handlers"
	"github.com/ashendes/store-console/internal/metrics"
	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/notify"
	"github.com/ashendes/store-console/internal/orders"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	log.SetLevel(cfg.Level())

	feed := notify.NewFeed(cfg.Console.NotificationSize)
	notifier := notify.LogNotifier{Next: feed}

	// Store API client with circuit breakers and bulkheads
	client := clients.NewStoreClient(cfg.StoreAPI)
	board := orders.NewBoard(client, notifier, cfg.Pages.Orders)
	cat := catalog.NewCatalog(client, notifier, cfg.Pages.Products)

	preload(board, cat, cfg.StoreAPI.Timeout)

	router := gin.Default()

	// Add Prometheus middleware
	router.Use(metrics.PrometheusMiddleware(clients.ServiceName))

	handlers.New(board, cat, feed, client).Register(router)

	log.WithFields(log.Fields{
		"store_api_url": cfg.StoreAPI.BaseURL,
		"address":       cfg.ConsoleAddress(),
	}).Info("Store Console starting")

	if err := router.Run(cfg.ConsoleAddress()); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

// preload fills every collection once; an unreachable store leaves them
// empty until the operator reloads
func preload(board *orders.Board, cat *catalog.Catalog, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*timeout)
	defer cancel()

	for _, source := range models.Sources {
		if _, err := board.Reload(ctx, source); err != nil {
			log.WithField("source", source).WithError(err).Warn("Initial order load failed")
		}
	}
	if _, err := cat.ReloadCategories(ctx); err != nil {
		log.WithError(err).Warn("Initial category load failed")
	}
	if _, err := cat.Reload(ctx); err != nil {
		log.WithError(err).Warn("Initial product load failed")
	}
}
