package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/ashendes/store-console/internal/catalog"
	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/variants"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxImageSize caps a single uploaded image
const maxImageSize = 10 << 20

type openDraftRequest struct {
	ProductID string `json:"productId"`
}

type draftRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Details     string `json:"details"`
	Stock       int    `json:"stock" binding:"gte=0"`
}

type imageURLRequest struct {
	URL string `json:"url" binding:"required"`
}

type variantRequest struct {
	Index    int    `json:"index"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

// openDraft starts a blank draft, or one preloaded from productId
func (h *Handler) openDraft(c *gin.Context) {
	var req openDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewValidationError("", "Invalid request: "+err.Error()))
			return
		}
	}
	var (
		draft *catalog.Draft
		err   error
	)
	if req.ProductID == "" {
		draft = h.catalog.NewDraft()
	} else if draft, err = h.catalog.DraftFrom(req.ProductID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, draft.State())
}

func (h *Handler) draft(c *gin.Context) (*catalog.Draft, bool) {
	draft, err := h.catalog.Draft(c.Param("key"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return draft, true
}

func (h *Handler) getDraft(c *gin.Context) {
	draft, ok := h.draft(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, draft.State())
}

// updateDraft sets the text inputs and, when given, the category by label
func (h *Handler) updateDraft(c *gin.Context) {
	draft, ok := h.draft(c)
	if !ok {
		return
	}
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("", "Invalid request: "+err.Error()))
		return
	}
	if err := draft.SetFields(catalog.Fields{
		Name:        req.Name,
		Description: req.Description,
		Details:     req.Details,
		Stock:       req.Stock,
	}); err != nil {
		respondError(c, err)
		return
	}
	if req.Category != "" {
		if err := draft.SelectCategory(h.catalog.Categories(), req.Category); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, draft.State())
}

func (h *Handler) discardDraft(c *gin.Context) {
	if _, ok := h.draft(c); !ok {
		return
	}
	h.catalog.Discard(c.Param("key"))
	c.Status(http.StatusNoContent)
}

// setImage fills a 1-based slot from a multipart "image" file or a stored URL
func (h *Handler) setImage(c *gin.Context) {
	draft, ok := h.draft(c)
	if !ok {
		return
	}
	slot, ok := parseIndex(c, "slot")
	if !ok {
		return
	}

	var image models.ImageSlot
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		upload, err := readUpload(c)
		if err != nil {
			respondError(c, err)
			return
		}
		image.Upload = upload
	} else {
		var req imageURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewValidationError("images", "Invalid request: "+err.Error()))
			return
		}
		image.URL = req.URL
	}

	if err := draft.SetImage(slot-1, image); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft.State())
}

func (h *Handler) clearImage(c *gin.Context) {
	draft, ok := h.draft(c)
	if !ok {
		return
	}
	slot, ok := parseIndex(c, "slot")
	if !ok {
		return
	}
	if err := draft.SetImage(slot-1, models.ImageSlot{}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft.State())
}

func readUpload(c *gin.Context) (*models.ImageUpload, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, models.NewValidationError("images", "Please choose an image file.")
	}
	if header.Size > maxImageSize {
		return nil, models.NewValidationError("images", "Image is too large.")
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"file": header.Filename,
		"size": len(data),
	}).Debug("Image staged for upload")
	return &models.ImageUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *Handler) setVariantBuffer(c *gin.Context) {
	draft, ok := h.draft(c)
	if !ok {
		return
	}
	var req variantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("", "Invalid request: "+err.Error()))
		return
	}
	_ = draft.EditVariants(func(e *variants.Editor) error {
		e.SetBuffer(req.Quantity, req.Price)
		return nil
	})
	c.JSON(http.StatusOK, draft.State())
}

// variantAction drives the variant editor: add, edit, save, cancel, remove
func (h *Handler) variantAction(c *gin.Context) {
	draft, ok := h.draft(c)
	if !ok {
		return
	}
	var req variantRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewValidationError("", "Invalid request: "+err.Error()))
			return
		}
	}

	var op func(e *variants.Editor) error
	switch c.Param("action") {
	case "add":
		op = func(e *variants.Editor) error { return e.Add(req.Quantity, req.Price) }
	case "edit":
		op = func(e *variants.Editor) error { return e.Edit(req.Index) }
	case "save":
		op = func(e *variants.Editor) error { return e.Save() }
	case "cancel":
		op = func(e *variants.Editor) error { e.Cancel(); return nil }
	case "remove":
		op = func(e *variants.Editor) error { return e.Remove(req.Index) }
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_action", "action": c.Param("action")})
		return
	}

	if err := draft.EditVariants(op); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft.State())
}

func (h *Handler) submitDraft(c *gin.Context) {
	draft, ok := h.draft(c)
	if !ok {
		return
	}
	product, err := h.catalog.Submit(persistContext(c), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}
