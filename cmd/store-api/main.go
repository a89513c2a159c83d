package main

import (
	"github.com/ashendes/store-console/internal/config"
	"github.com/ashendes/store-console/internal/upstream"
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

	server := upstream.NewServer(upstream.Paths{
		Orders:     cfg.StoreAPI.OrderPaths,
		Products:   cfg.StoreAPI.ProductsPath,
		Categories: cfg.StoreAPI.CategoriesPath,
	})
	// Add sample orders, categories and products
	server.Seed()

	log.WithField("address", cfg.StoreAPIAddress()).Info("Store API starting")

	if err := server.Router().Run(cfg.StoreAPIAddress()); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
