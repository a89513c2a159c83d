package upstream

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// maxImages mirrors the number of image slots the console offers
const maxImages = 5

// VariantDoc is a stored quantity label and price
type VariantDoc struct {
	Quantity string          `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ProductDoc is a stored product. Older products carry a single Price and
// Quantity instead of Variants.
type ProductDoc struct {
	ID          string           `json:"_id"`
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	CategoryID  string           `json:"category_id,omitempty"`
	Description string           `json:"description,omitempty"`
	Details     string           `json:"details,omitempty"`
	Stock       int              `json:"stock"`
	Images      []string         `json:"images"`
	Variants    []VariantDoc     `json:"variants,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    string           `json:"quantity,omitempty"`
}

// CategoryDoc is a stored category
type CategoryDoc struct {
	ID       string `json:"_id"`
	Category string `json:"category"`
}

// PutProducts replaces the stored products
func (s *Server) PutProducts(products ...ProductDoc) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.products = append([]ProductDoc(nil), products...)
}

// PutCategories replaces the stored categories
func (s *Server) PutCategories(categories ...CategoryDoc) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.categories = append([]CategoryDoc(nil), categories...)
}

func (s *Server) listProducts(c *gin.Context) {
	s.mutex.RLock()
	products := append([]ProductDoc(nil), s.products...)
	s.mutex.RUnlock()
	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) listCategories(c *gin.Context) {
	s.mutex.RLock()
	categories := append([]CategoryDoc(nil), s.categories...)
	s.mutex.RUnlock()
	c.JSON(http.StatusOK, categories)
}

func (s *Server) createProduct(c *gin.Context) {
	doc, ok := bindProductForm(c)
	if !ok {
		return
	}
	doc.ID = uuid.New().String()

	s.mutex.Lock()
	s.products = append(s.products, doc)
	s.mutex.Unlock()

	log.WithFields(log.Fields{
		"product_id": doc.ID,
		"variants":   len(doc.Variants),
		"images":     len(doc.Images),
	}).Info("Product created")

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Product added successfully!",
		"data":    doc,
	})
}

func (s *Server) updateProduct(c *gin.Context) {
	productID := c.Param("id")
	doc, ok := bindProductForm(c)
	if !ok {
		return
	}
	doc.ID = productID

	s.mutex.Lock()
	index := -1
	for i := range s.products {
		if s.products[i].ID == productID {
			index = i
			break
		}
	}
	if index < 0 {
		s.mutex.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}
	s.products[index] = doc
	s.mutex.Unlock()

	log.WithField("product_id", productID).Info("Product updated")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product updated successfully!",
		"data":    doc,
	})
}

func (s *Server) deleteProduct(c *gin.Context) {
	productID := c.Param("id")

	s.mutex.Lock()
	removed := false
	for i := range s.products {
		if s.products[i].ID == productID {
			s.products = append(s.products[:i:i], s.products[i+1:]...)
			removed = true
			break
		}
	}
	s.mutex.Unlock()

	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}
	log.WithField("product_id", productID).Info("Product deleted")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted successfully!"})
}

// bindProductForm reads the multipart product form; on failure it has
// already written the response
func bindProductForm(c *gin.Context) (ProductDoc, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request: " + err.Error()})
		return ProductDoc{}, false
	}
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	doc := ProductDoc{
		Name:        value("name"),
		Category:    value("category"),
		CategoryID:  value("category_id"),
		Description: value("description"),
		Details:     value("details"),
	}
	if raw := value("stock"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid stock"})
			return ProductDoc{}, false
		}
		doc.Stock = stock
	}
	if raw := value("variants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &doc.Variants); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid variants"})
			return ProductDoc{}, false
		}
	}

	if doc.Name == "" || doc.Category == "" || doc.CategoryID == "" || len(doc.Variants) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please fill in all required fields."})
		return ProductDoc{}, false
	}
	for _, v := range doc.Variants {
		if strings.TrimSpace(v.Quantity) == "" || !v.Price.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Every variant needs a quantity and a positive price"})
			return ProductDoc{}, false
		}
	}

	for _, url := range form.Value["images"] {
		if url = strings.TrimSpace(url); url != "" {
			doc.Images = append(doc.Images, url)
		}
	}
	for _, file := range form.File["images"] {
		doc.Images = append(doc.Images, storedImageURL(file))
	}
	if len(doc.Images) > maxImages {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "At most 5 images are allowed"})
		return ProductDoc{}, false
	}
	return doc, true
}

func storedImageURL(file *multipart.FileHeader) string {
	return "/uploads/" + uuid.New().String() + "-" + file.Filename
}
