// Package upstream is an in-memory stand-in for the remote store API. It
// serves the three order shapes, products and categories, and carries chaos
// switches so failure and rollback paths can be exercised locally.
package upstream

import (
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ashendes/store-console/internal/metrics"
	"github.com/ashendes/store-console/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// ServiceName labels the stand-in's metrics
const ServiceName = "store-api"

// DefaultChaosRate is the share of requests failed while chaos mode is on
const DefaultChaosRate = 0.3

// Paths are the collection routes, one per order source plus the catalog
type Paths struct {
	Orders     map[models.SourceTag]string
	Products   string
	Categories string
}

// Server holds the in-memory store
type Server struct {
	paths Paths

	mutex      sync.RWMutex
	orders     map[models.SourceTag][]document
	products   []ProductDoc
	categories []CategoryDoc

	chaosMutex    sync.RWMutex
	chaosEnabled  bool
	chaosSlowMode bool
	chaosRate     float64
	slowDelay     func() time.Duration
}

// NewServer creates an empty store serving paths
func NewServer(paths Paths) *Server {
	return &Server{
		paths:     paths,
		orders:    make(map[models.SourceTag][]document),
		chaosRate: DefaultChaosRate,
		slowDelay: func() time.Duration {
			return time.Duration(2000+rand.Intn(3000)) * time.Millisecond
		},
	}
}

// Router builds the gin engine for the store
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.PrometheusMiddleware(ServiceName))

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/status", s.getStatus)

	api := router.Group("")
	api.Use(s.chaos())
	for source, path := range s.paths.Orders {
		h := &orderHandler{server: s, source: source}
		api.GET(path, h.list)
		api.GET(path+"/:id", h.get)
		api.PUT(path+"/:id", h.update)
	}
	api.GET(s.paths.Products, s.listProducts)
	api.POST(s.paths.Products, s.createProduct)
	api.PUT(s.paths.Products+"/:id", s.updateProduct)
	api.DELETE(s.paths.Products+"/:id", s.deleteProduct)
	api.GET(s.paths.Categories, s.listCategories)

	// Chaos engineering endpoints
	router.POST("/chaos/enable", s.enableChaos)
	router.POST("/chaos/disable", s.disableChaos)
	router.POST("/chaos/slow", s.enableSlowMode)
	router.POST("/chaos/slow/disable", s.disableSlowMode)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (s *Server) getStatus(c *gin.Context) {
	s.mutex.RLock()
	counts := gin.H{}
	for source, docs := range s.orders {
		counts[string(source)] = len(docs)
	}
	products := len(s.products)
	s.mutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"service":         ServiceName,
		"status":          "healthy",
		"orders":          counts,
		"products":        products,
		"chaos_enabled":   s.getChaosEnabled(),
		"chaos_slow_mode": s.getSlowMode(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

// chaos fails or delays store requests while the switches are on
func (s *Server) chaos() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.getSlowMode() {
			delay := s.slowDelay()
			log.WithField("delay_ms", delay.Milliseconds()).Debug("Chaos: Simulating slow response")
			select {
			case <-time.After(delay):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}

		if s.getChaosEnabled() && rand.Float64() < s.getChaosRate() {
			log.WithField("path", c.FullPath()).Warn("Chaos: Simulated failure")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "Service temporarily unavailable",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) enableChaos(c *gin.Context) {
	rate := DefaultChaosRate
	if raw := c.Query("rate"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "rate must be between 0 and 1"})
			return
		}
		rate = parsed
	}
	s.chaosMutex.Lock()
	s.chaosEnabled = true
	s.chaosRate = rate
	s.chaosMutex.Unlock()
	metrics.ChaosFailureRate.WithLabelValues(ServiceName).Set(1)

	log.WithField("rate", rate).Info("Chaos mode ENABLED for store API")
	c.JSON(http.StatusOK, gin.H{
		"message": "Chaos mode enabled",
		"info":    strconv.Itoa(int(rate*100)) + "% of requests will fail randomly",
	})
}

func (s *Server) disableChaos(c *gin.Context) {
	s.chaosMutex.Lock()
	s.chaosEnabled = false
	s.chaosSlowMode = false
	s.chaosMutex.Unlock()
	metrics.ChaosFailureRate.WithLabelValues(ServiceName).Set(0)
	metrics.ChaosSlowMode.WithLabelValues(ServiceName).Set(0)

	log.Info("Chaos mode DISABLED for store API")
	c.JSON(http.StatusOK, gin.H{"message": "Chaos mode disabled"})
}

func (s *Server) enableSlowMode(c *gin.Context) {
	s.setSlowMode(true)
	metrics.ChaosSlowMode.WithLabelValues(ServiceName).Set(1)

	log.Info("Slow mode ENABLED for store API")
	c.JSON(http.StatusOK, gin.H{
		"message": "Slow mode enabled",
		"info":    "Requests will have 2-5 second delays",
	})
}

func (s *Server) disableSlowMode(c *gin.Context) {
	s.setSlowMode(false)
	metrics.ChaosSlowMode.WithLabelValues(ServiceName).Set(0)

	log.Info("Slow mode DISABLED for store API")
	c.JSON(http.StatusOK, gin.H{"message": "Slow mode disabled"})
}

func (s *Server) getChaosEnabled() bool {
	s.chaosMutex.RLock()
	defer s.chaosMutex.RUnlock()
	return s.chaosEnabled
}

func (s *Server) getChaosRate() float64 {
	s.chaosMutex.RLock()
	defer s.chaosMutex.RUnlock()
	return s.chaosRate
}

func (s *Server) setSlowMode(enabled bool) {
	s.chaosMutex.Lock()
	defer s.chaosMutex.Unlock()
	s.chaosSlowMode = enabled
}

func (s *Server) getSlowMode() bool {
	s.chaosMutex.RLock()
	defer s.chaosMutex.RUnlock()
	return s.chaosSlowMode
}
