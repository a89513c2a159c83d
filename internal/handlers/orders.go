package handlers

import (
	"net/http"
	"strconv"

	"github.com/ashendes/store-console/internal/export"
	"github.com/ashendes/store-console/internal/lifecycle"
	"github.com/ashendes/store-console/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type orderRow struct {
	Serial int              `json:"serial"`
	Order  models.Order     `json:"order"`
	Action lifecycle.Action `json:"action"`
}

type itemStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Confirm bool   `json:"confirm"`
}

func (h *Handler) reloadOrders(c *gin.Context) {
	source, ok := parseSource(c)
	if !ok {
		return
	}
	result, err := h.board.Reload(c.Request.Context(), source)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// listOrders returns the current page; ?status= filters and ?page= moves
func (h *Handler) listOrders(c *gin.Context) {
	source, ok := parseSource(c)
	if !ok {
		return
	}
	collection, err := h.board.View(source)
	if err != nil {
		respondError(c, err)
		return
	}
	if status, set := c.GetQuery("status"); set {
		if err := h.board.FilterStatus(source, status); err != nil {
			respondError(c, err)
			return
		}
	}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, models.NewValidationError("page", "page must be a number"))
			return
		}
		collection.SetPage(n)
	}

	excluded, err := h.board.Excluded(source)
	if err != nil {
		respondError(c, err)
		return
	}

	page := collection.Page()
	rows := make([]orderRow, 0, len(page.Rows))
	for _, r := range page.Rows {
		row := orderRow{Serial: r.Serial, Order: r.Item}
		if !source.ReadOnly() {
			row.Action = lifecycle.ActionFor(r.Item.Status)
		}
		rows = append(rows, row)
	}
	c.JSON(http.StatusOK, gin.H{
		"source":        source,
		"readOnly":      source.ReadOnly(),
		"currentPage":   page.CurrentPage,
		"pageCount":     page.PageCount,
		"pageSize":      page.PageSize,
		"filteredCount": page.FilteredCount,
		"totalCount":    page.TotalCount,
		"excluded":      excluded,
		"rows":          rows,
	})
}

func (h *Handler) getOrder(c *gin.Context) {
	source, ok := parseSource(c)
	if !ok {
		return
	}
	detail, err := h.board.Order(source, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) advanceOrder(c *gin.Context) {
	source, ok := parseSource(c)
	if !ok {
		return
	}
	confirm, err := bindConfirm(c)
	if err != nil {
		respondError(c, err)
		return
	}
	orderID := c.Param("id")

	order, err := h.board.Advance(persistContext(c), source, orderID, confirm)
	if err != nil {
		log.WithFields(log.Fields{"order_id": orderID, "source": source}).WithError(err).Debug("Status change not applied")
		respondConfirm(c, confirm, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":  order,
		"action": lifecycle.ActionFor(order.Status),
	})
}

func (h *Handler) setItemStatus(c *gin.Context) {
	source, ok := parseSource(c)
	if !ok {
		return
	}
	index, ok := parseIndex(c, "index")
	if !ok {
		return
	}
	var req itemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("status", "Invalid request: "+err.Error()))
		return
	}
	confirm := &requestConfirm{answer: req.Confirm}

	order, err := h.board.SetLineItemStatus(persistContext(c), source, c.Param("id"), index, req.Status, confirm)
	if err != nil {
		respondConfirm(c, confirm, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// exportOrders writes the filtered collection of a source as a workbook
func (h *Handler) exportOrders(c *gin.Context) {
	source, ok := parseSource(c)
	if !ok {
		return
	}
	collection, err := h.board.View(source)
	if err != nil {
		respondError(c, err)
		return
	}
	buf, err := export.Orders(source, collection.Filtered())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+export.FileName(string(source)+" orders"))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
