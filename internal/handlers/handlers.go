// Package handlers exposes the console engine over JSON for the UI.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ashendes/store-console/internal/catalog"
	"github.com/ashendes/store-console/internal/clients"
	"github.com/ashendes/store-console/internal/lifecycle"
	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/mutation"
	"github.com/ashendes/store-console/internal/notify"
	"github.com/ashendes/store-console/internal/orders"
	"github.com/ashendes/store-console/internal/variants"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// CircuitReporter reports the store client's circuit breakers
type CircuitReporter interface {
	Circuits() []clients.CircuitStatus
}

// Handler serves the console API
type Handler struct {
	board    *orders.Board
	catalog  *catalog.Catalog
	feed     *notify.Feed
	circuits CircuitReporter
}

// New creates the console handlers
func New(board *orders.Board, cat *catalog.Catalog, feed *notify.Feed, circuits CircuitReporter) *Handler {
	return &Handler{board: board, catalog: cat, feed: feed, circuits: circuits}
}

// Register mounts every console route on router
func (h *Handler) Register(router *gin.Engine) {
	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/circuit-status", h.getCircuitStatus)
	router.GET("/notifications", h.drainNotifications)

	// Order endpoints
	router.POST("/orders/:source/reload", h.reloadOrders)
	router.GET("/orders/:source", h.listOrders)
	router.GET("/orders/:source/:id", h.getOrder)
	router.POST("/orders/:source/:id/advance", h.advanceOrder)
	router.PUT("/orders/:source/:id/items/:index/status", h.setItemStatus)

	// Catalog endpoints
	router.POST("/products/reload", h.reloadProducts)
	router.GET("/products", h.listProducts)
	router.DELETE("/products/:id", h.deleteProduct)
	router.GET("/categories", h.listCategories)
	router.POST("/categories/reload", h.reloadCategories)

	// Product authoring endpoints
	router.POST("/drafts", h.openDraft)
	router.GET("/drafts/:key", h.getDraft)
	router.PUT("/drafts/:key", h.updateDraft)
	router.DELETE("/drafts/:key", h.discardDraft)
	router.PUT("/drafts/:key/images/:slot", h.setImage)
	router.DELETE("/drafts/:key/images/:slot", h.clearImage)
	router.PUT("/drafts/:key/variants/buffer", h.setVariantBuffer)
	router.POST("/drafts/:key/variants/:action", h.variantAction)
	router.POST("/drafts/:key/submit", h.submitDraft)

	// Export endpoints
	router.GET("/exports/orders/:source", h.exportOrders)
	router.GET("/exports/products", h.exportProducts)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *Handler) getCircuitStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"circuits": h.circuits.Circuits()})
}

func (h *Handler) drainNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.feed.Drain()})
}

// persistContext is the request context without its cancellation
func persistContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// requestConfirm answers a confirmation from the request and remembers
// what was asked
type requestConfirm struct {
	answer bool
	asked  string
}

func (r *requestConfirm) Confirm(_ context.Context, message string) bool {
	r.asked = message
	return r.answer
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

// bindConfirm reads the confirmation flag from ?confirm= or a JSON body
func bindConfirm(c *gin.Context) (*requestConfirm, error) {
	if raw := c.Query("confirm"); raw != "" {
		answer, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, models.NewValidationError("confirm", "confirm must be true or false")
		}
		return &requestConfirm{answer: answer}, nil
	}
	var req confirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, models.NewValidationError("", "Invalid request: "+err.Error())
		}
	}
	return &requestConfirm{answer: req.Confirm}, nil
}

func parseSource(c *gin.Context) (models.SourceTag, bool) {
	source, ok := models.ParseSourceTag(c.Param("source"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "unknown_source",
			"source": c.Param("source"),
		})
	}
	return source, ok
}

func parseIndex(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		respondError(c, models.NewValidationError(name, name+" must be a number"))
		return 0, false
	}
	return n, true
}

// respondError maps the engine's errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var (
		verr      *models.ValidationError
		transport *clients.TransportError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": verr.Field, "message": verr.Message})
	case errors.Is(err, lifecycle.ErrDeclined), errors.Is(err, catalog.ErrDeclined):
		c.JSON(http.StatusConflict, gin.H{"error": "confirmation_required", "message": err.Error()})
	case errors.Is(err, mutation.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "in_flight", "message": err.Error()})
	case errors.Is(err, mutation.ErrReloaded):
		c.JSON(http.StatusConflict, gin.H{"error": "reloaded", "message": err.Error()})
	case errors.Is(err, orders.ErrReadOnlySource),
		errors.Is(err, lifecycle.ErrTerminal),
		errors.Is(err, lifecycle.ErrNoTransition),
		errors.Is(err, orders.ErrStale),
		errors.Is(err, orders.ErrNoLineStatus),
		errors.Is(err, variants.ErrWrongMode):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	case errors.Is(err, mutation.ErrNotFound),
		errors.Is(err, catalog.ErrDraftNotFound),
		errors.Is(err, orders.ErrUnknownSource):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.As(err, &transport):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_failed", "message": transport.Error(), "reason": transport.Reason()})
	default:
		log.WithError(err).Error("Unhandled console error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
	}
}

// respondConfirm answers a declined confirmation with the question to ask
func respondConfirm(c *gin.Context, confirm *requestConfirm, err error) {
	if errors.Is(err, lifecycle.ErrDeclined) || errors.Is(err, catalog.ErrDeclined) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "confirmation_required",
			"message": err.Error(),
			"prompt":  confirm.asked,
		})
		return
	}
	respondError(c, err)
}
