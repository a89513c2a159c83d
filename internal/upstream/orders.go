package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ashendes/store-console/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// document is an order stored in its source's own shape
type document map[string]interface{}

// idKeys are the identifier fields of the known order shapes
var idKeys = []string{"_id", "order_id", "id"}

func (d document) id() string {
	for _, key := range idKeys {
		if v, ok := d[key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// clone deep-copies d through JSON, keeping numbers exact
func (d document) clone() document {
	data, err := json.Marshal(d)
	if err != nil {
		return document{}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out document
	if err := dec.Decode(&out); err != nil {
		return document{}
	}
	return out
}

// UpdateOrderRequest changes an order's status or, for cart orders, its items
type UpdateOrderRequest struct {
	Status    *string       `json:"status"`
	CartItems []CartItemDoc `json:"cartItems" binding:"omitempty,dive"`
}

// CartItemDoc is a cart order line as the legacy store keeps it
type CartItemDoc struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" binding:"gt=0"`
	Category  string          `json:"category,omitempty"`
	Status    string          `json:"status,omitempty"`
}

type orderHandler struct {
	server *Server
	source models.SourceTag
}

// PutOrders replaces the stored orders of source
func (s *Server) PutOrders(source models.SourceTag, docs ...map[string]interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	stored := make([]document, 0, len(docs))
	for _, d := range docs {
		stored = append(stored, document(d).clone())
	}
	s.orders[source] = stored
}

func (h *orderHandler) list(c *gin.Context) {
	h.server.mutex.RLock()
	docs := make([]document, 0, len(h.server.orders[h.source]))
	for _, d := range h.server.orders[h.source] {
		docs = append(docs, d.clone())
	}
	h.server.mutex.RUnlock()

	// each store answers in its own envelope
	switch h.source {
	case models.SourceFulfillment:
		c.JSON(http.StatusOK, gin.H{"data": docs, "count": len(docs)})
	case models.SourceLegacyCart:
		c.JSON(http.StatusOK, gin.H{"orders": docs})
	default:
		c.JSON(http.StatusOK, docs)
	}
}

func (h *orderHandler) get(c *gin.Context) {
	h.server.mutex.RLock()
	doc, _ := h.server.findOrder(h.source, c.Param("id"))
	if doc != nil {
		doc = doc.clone()
	}
	h.server.mutex.RUnlock()

	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *orderHandler) update(c *gin.Context) {
	orderID := c.Param("id")
	if h.source.ReadOnly() {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Shipments are managed by the fulfillment partner",
		})
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request: " + err.Error(),
		})
		return
	}
	if req.Status == nil && req.CartItems == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Nothing to update"})
		return
	}
	if req.CartItems != nil && h.source != models.SourceLegacyCart {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Line items cannot be edited for this order"})
		return
	}

	var status models.OrderStatus
	if req.Status != nil {
		parsed, ok := models.ParseOrderStatus(*req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid status: " + *req.Status})
			return
		}
		status = parsed
	}

	h.server.mutex.Lock()
	doc, _ := h.server.findOrder(h.source, orderID)
	if doc == nil {
		h.server.mutex.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}
	if status != "" {
		doc["status"] = string(status)
	}
	if req.CartItems != nil {
		items := make([]interface{}, 0, len(req.CartItems))
		for _, item := range req.CartItems {
			items = append(items, item)
		}
		doc["cartItems"] = items
	}
	doc["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	updated := doc.clone()
	h.server.replaceOrder(h.source, orderID, updated)
	h.server.mutex.Unlock()

	log.WithFields(log.Fields{
		"order_id": orderID,
		"source":   h.source,
		"status":   status,
	}).Info("Order updated")

	if h.source == models.SourceLegacyCart {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": updated})
}

// findOrder must be called with the mutex held
func (s *Server) findOrder(source models.SourceTag, id string) (document, int) {
	for i, d := range s.orders[source] {
		if d.id() == id {
			return d, i
		}
	}
	return nil, -1
}

// replaceOrder must be called with the write lock held
func (s *Server) replaceOrder(source models.SourceTag, id string, doc document) {
	if _, i := s.findOrder(source, id); i >= 0 {
		s.orders[source][i] = doc
	}
}
