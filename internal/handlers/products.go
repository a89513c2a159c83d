package handlers

import (
	"net/http"
	"strconv"

	"github.com/ashendes/store-console/internal/export"
	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/view"
	"github.com/gin-gonic/gin"
)

// productPage is a page of the product view with the records the last reload left out
type productPage struct {
	view.Page[models.Product]
	Excluded int `json:"excluded"`
}

func (h *Handler) reloadProducts(c *gin.Context) {
	result, err := h.catalog.Reload(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// listProducts returns the current page; ?search= and ?page= drive the view
func (h *Handler) listProducts(c *gin.Context) {
	products := h.catalog.View()
	if term, set := c.GetQuery("search"); set {
		products.Search(term)
	}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, models.NewValidationError("page", "page must be a number"))
			return
		}
		products.SetPage(n)
	}
	c.JSON(http.StatusOK, productPage{Page: products.Page(), Excluded: h.catalog.Excluded()})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	confirm, err := bindConfirm(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.catalog.Delete(persistContext(c), c.Param("id"), confirm); err != nil {
		respondConfirm(c, confirm, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully!"})
}

func (h *Handler) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalog.Categories()})
}

func (h *Handler) reloadCategories(c *gin.Context) {
	categories, err := h.catalog.ReloadCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// exportProducts writes the filtered product collection as a workbook
func (h *Handler) exportProducts(c *gin.Context) {
	buf, err := export.Products(h.catalog.View().Filtered())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+export.FileName("products"))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
