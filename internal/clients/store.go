// Package clients is the console's HTTP client for the remote store API.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ashendes/store-console/internal/config"
	"github.com/ashendes/store-console/internal/metrics"
	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/normalize"
	"github.com/ashendes/store-console/internal/patterns"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// ServiceName labels the console's client-side metrics
const ServiceName = "store-console"

// ErrUnknownSource is returned for a source with no configured path
var ErrUnknownSource = errors.New("unknown order source")

// area groups the calls that share one circuit breaker and one bulkhead
type area struct {
	name     string
	circuit  *patterns.CircuitBreakerWrapper
	bulkhead *patterns.Bulkhead
}

// CircuitStatus reports one circuit breaker
type CircuitStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Value int    `json:"value"`
}

// StoreClient calls the store API through a circuit breaker and a bulkhead
// per area. Failed calls are never retried.
type StoreClient struct {
	client         *resty.Client
	uploadClient   *resty.Client
	orderPaths     map[models.SourceTag]string
	productsPath   string
	categoriesPath string
	orders         area
	catalog        area
}

// NewStoreClient creates a client for the configured store API
func NewStoreClient(cfg config.StoreAPIConfig) *StoreClient {
	c := &StoreClient{
		client: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetRetryCount(0), // No automatic retries, we handle via circuit breaker
		uploadClient: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.UploadTimeout).
			SetRetryCount(0),
		orderPaths:     cfg.OrderPaths,
		productsPath:   cfg.ProductsPath,
		categoriesPath: cfg.CategoriesPath,
		orders: area{
			name:     "Orders",
			circuit:  patterns.NewCircuitBreaker("Orders", ServiceName),
			bulkhead: patterns.NewBulkhead(cfg.BulkheadSize, "orders", ServiceName),
		},
		catalog: area{
			name:     "Catalog",
			circuit:  patterns.NewCircuitBreaker("Catalog", ServiceName),
			bulkhead: patterns.NewBulkhead(cfg.BulkheadSize, "catalog", ServiceName),
		},
	}
	if cfg.Token != "" {
		c.client.SetAuthToken(cfg.Token)
		c.uploadClient.SetAuthToken(cfg.Token)
	}
	return c
}

// Circuits returns the state of every circuit breaker
func (c *StoreClient) Circuits() []CircuitStatus {
	out := make([]CircuitStatus, 0, 2)
	for _, a := range []area{c.orders, c.catalog} {
		out = append(out, CircuitStatus{
			Name:  a.name,
			State: a.circuit.GetState(),
			Value: a.circuit.GetStateValue(),
		})
	}
	return out
}

// FetchOrders returns the raw order records of source
func (c *StoreClient) FetchOrders(ctx context.Context, source models.SourceTag) ([]json.RawMessage, error) {
	path, err := c.orderPath(source)
	if err != nil {
		return nil, err
	}
	op := "fetch_" + string(source) + "_orders"
	resp, err := c.call(ctx, c.orders, op, c.client.R(), http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeList(op, resp)
}

// FetchProducts returns the raw product records
func (c *StoreClient) FetchProducts(ctx context.Context) ([]json.RawMessage, error) {
	const op = "fetch_products"
	resp, err := c.call(ctx, c.catalog, op, c.client.R(), http.MethodGet, c.productsPath)
	if err != nil {
		return nil, err
	}
	return decodeList(op, resp)
}

// FetchCategories returns the raw category records
func (c *StoreClient) FetchCategories(ctx context.Context) ([]json.RawMessage, error) {
	const op = "fetch_categories"
	resp, err := c.call(ctx, c.catalog, op, c.client.R(), http.MethodGet, c.categoriesPath)
	if err != nil {
		return nil, err
	}
	return decodeList(op, resp)
}

// PersistOrderStatus asks the store to move order id to status and returns
// the order as the store now has it
func (c *StoreClient) PersistOrderStatus(ctx context.Context, source models.SourceTag, id string, status models.OrderStatus) (models.Order, error) {
	const op = "update_order_status"
	path, err := c.orderPath(source)
	if err != nil {
		return models.Order{}, err
	}
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"status": string(status)})

	resp, err := c.call(ctx, c.orders, op, req, http.MethodPut, path+"/"+url.PathEscape(id))
	if err != nil {
		return models.Order{}, err
	}
	return decodeOrder(op, source, resp)
}

type cartItemPayload struct {
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Category  string `json:"category,omitempty"`
	Status    string `json:"status,omitempty"`
}

// PersistOrderLineItems replaces the line items of a cart order
func (c *StoreClient) PersistOrderLineItems(ctx context.Context, source models.SourceTag, id string, items []models.LineItem) (models.Order, error) {
	const op = "update_order_items"
	path, err := c.orderPath(source)
	if err != nil {
		return models.Order{}, err
	}
	payload := make([]cartItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, cartItemPayload{
			ProductID: item.ProductRef,
			Name:      item.Name,
			Price:     item.UnitPrice.String(),
			Quantity:  item.Quantity,
			Category:  item.Category,
			Status:    item.Status,
		})
	}
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{"cartItems": payload})

	resp, err := c.call(ctx, c.orders, op, req, http.MethodPut, path+"/"+url.PathEscape(id))
	if err != nil {
		return models.Order{}, err
	}
	return decodeOrder(op, source, resp)
}

// PersistProduct creates the product when draft.ID is empty and updates it
// otherwise. Variants travel as a JSON-encoded form field; stored images
// are resent by URL and pending uploads as files.
func (c *StoreClient) PersistProduct(ctx context.Context, draft models.ProductDraft) (models.Product, error) {
	op, method, path := "create_product", http.MethodPost, c.productsPath
	if draft.ID != "" {
		op, method, path = "update_product", http.MethodPut, c.productsPath+"/"+url.PathEscape(draft.ID)
	}

	variants, err := json.Marshal(draft.Variants)
	if err != nil {
		return models.Product{}, fmt.Errorf("encode variants: %w", err)
	}
	req := c.uploadClient.R().SetMultipartFormData(map[string]string{
		"name":        draft.Name,
		"category":    draft.Category,
		"category_id": draft.CategoryID,
		"description": draft.Description,
		"details":     draft.Details,
		"stock":       strconv.Itoa(draft.Stock),
		"variants":    string(variants),
	})
	stored := url.Values{}
	for _, slot := range draft.Images {
		if slot.URL != "" {
			stored.Add("images", slot.URL)
		}
	}
	if len(stored) > 0 {
		req.SetFormDataFromValues(stored)
	}
	for _, upload := range draft.Uploads() {
		contentType := upload.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		req.SetMultipartField("images", upload.FileName, contentType, bytes.NewReader(upload.Data))
	}

	resp, err := c.call(ctx, c.catalog, op, req, method, path)
	if err != nil {
		return models.Product{}, err
	}
	doc, err := document(op, resp)
	if err != nil {
		return models.Product{}, err
	}
	product, err := normalize.NormalizeProduct(doc)
	if err != nil {
		return models.Product{}, &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unusable product in response: %w", err)}
	}
	return product, nil
}

// DeleteProduct deletes product id
func (c *StoreClient) DeleteProduct(ctx context.Context, id string) error {
	const op = "delete_product"
	resp, err := c.call(ctx, c.catalog, op, c.client.R(), http.MethodDelete, c.productsPath+"/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(resp.Body())) == 0 {
		return nil
	}
	_, err = document(op, resp)
	return err
}

func (c *StoreClient) orderPath(source models.SourceTag) (string, error) {
	path, ok := c.orderPaths[source]
	if !ok || path == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	return path, nil
}

// call executes req with bulkhead and circuit breaker patterns. Client-side
// rejections (4xx) are returned without counting against the circuit.
func (c *StoreClient) call(ctx context.Context, a area, op string, req *resty.Request, method, path string) (*resty.Response, error) {
	var resp *resty.Response

	// Execute with bulkhead pattern
	err := a.bulkhead.Execute(ctx, func() error {
		// Execute with circuit breaker pattern
		_, cbErr := a.circuit.Execute(func() (interface{}, error) {
			r, httpErr := req.SetContext(ctx).Execute(method, path)
			if httpErr != nil {
				return nil, &TransportError{Op: op, Err: httpErr}
			}
			if r.IsError() {
				te := &TransportError{Op: op, StatusCode: r.StatusCode(), Message: serverMessage(r.Body())}
				if r.StatusCode() < http.StatusInternalServerError {
					return nil, patterns.Permanent(te)
				}
				return nil, te
			}
			resp = r
			return r, nil
		})

		return patterns.FormatError(a.name, cbErr)
	})

	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) {
			err = &TransportError{Op: op, Err: err}
		}
		metrics.UpstreamCalls.WithLabelValues(op, "failure").Inc()
		log.WithFields(log.Fields{
			"operation": op,
			"method":    method,
			"path":      path,
		}).WithError(err).Warn("Store API call failed")
		return nil, err
	}
	metrics.UpstreamCalls.WithLabelValues(op, "success").Inc()
	return resp, nil
}

// envelope covers the wrappers the store puts around single records
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Order   json.RawMessage `json:"order"`
	Product json.RawMessage `json:"product"`
}

// document unwraps a single record. A body with success=false is a failure
// even when the status code says otherwise.
func document(op string, resp *resty.Response) (json.RawMessage, error) {
	body := resp.Body()
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unreadable response: %w", err)}
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = "the request was not accepted"
		}
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode(), Message: msg}
	}
	for _, raw := range []json.RawMessage{env.Data, env.Order, env.Product} {
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
			return trimmed, nil
		}
	}
	return body, nil
}

const maxReasonLength = 200

var listKeys = []string{"data", "orders", "products", "categories", "items"}

// decodeList accepts a bare array or an object wrapping one
func decodeList(op string, resp *resty.Response) ([]json.RawMessage, error) {
	body := bytes.TrimSpace(resp.Body())
	var list []json.RawMessage
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unreadable list: %w", err)}
		}
		return list, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unreadable response: %w", err)}
	}
	for _, key := range listKeys {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
	}
	return nil, &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: errors.New("no record list in response")}
}

func decodeOrder(op string, source models.SourceTag, resp *resty.Response) (models.Order, error) {
	doc, err := document(op, resp)
	if err != nil {
		return models.Order{}, err
	}
	order, warning, err := normalize.NormalizeOrder(source, doc)
	if err != nil {
		return models.Order{}, &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unusable order in response: %w", err)}
	}
	if warning != nil {
		metrics.TotalMismatches.WithLabelValues(string(source)).Inc()
		log.WithFields(log.Fields{
			"order_id": warning.OrderID,
			"source":   source,
		}).Warn(warning.String())
	}
	return order, nil
}

// serverMessage pulls the human-readable reason out of an error body
func serverMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxReasonLength {
			msg = msg[:maxReasonLength]
		}
		return msg
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}
