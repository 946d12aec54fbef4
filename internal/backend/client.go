package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"grocery-storefront/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxErrorBody = 64 << 10

// Client talks to the remote store REST backend. Every cart call returns the
// full cart snapshot the backend responded with.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New builds a Client. httpClient usually carries an AuthTransport.
func New(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

type addLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

func (c *Client) GetCart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodGet, "/api/cart/", nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddLine is not idempotent: repeating it adds the quantity again.
func (c *Client) AddLine(ctx context.Context, productID int64, quantity int) (*domain.Cart, error) {
	var cart domain.Cart
	body := addLineRequest{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/api/cart/items/", nil, body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) UpdateLine(ctx context.Context, lineID int64, quantity int) (*domain.Cart, error) {
	var cart domain.Cart
	path := fmt.Sprintf("/api/cart/items/%d/", lineID)
	if err := c.do(ctx, http.MethodPut, path, nil, updateLineRequest{Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) DeleteLine(ctx context.Context, lineID int64) (*domain.Cart, error) {
	var cart domain.Cart
	path := fmt.Sprintf("/api/cart/items/%d/", lineID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) ClearCart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodDelete, "/api/cart/clear/", nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// ListProducts fetches the unfiltered-by-term catalog listing. Term is ignored.
func (c *Client) ListProducts(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error) {
	var page domain.ProductPage
	if err := c.do(ctx, http.MethodGet, "/api/products/", productParams(q, false), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) SearchProducts(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error) {
	var page domain.ProductPage
	if err := c.do(ctx, http.MethodGet, "/api/products/search/", productParams(q, true), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories/", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func productParams(q domain.ProductQuery, withTerm bool) url.Values {
	v := url.Values{}
	if withTerm {
		v.Set("q", strings.TrimSpace(q.Term))
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.InStock != nil {
		v.Set("in_stock", strconv.FormatBool(*q.InStock))
	}
	return v
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	var raw []byte
	if in != nil {
		var err error
		raw, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(raw)), nil
		}
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method), zap.String("path", path),
			zap.String("request_id", requestID), zap.Error(err))
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeAPIError(resp.StatusCode, errBody)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decode " + method + " " + path, Err: err}
	}
	return nil
}
