package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"catalog-be/internal/logger"
	"catalog-be/internal/product"
	"catalog-be/internal/upload"
	"catalog-be/internal/utils"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-success answer from the catalog API. Message is the
// server's error text, or a generic one when the body carried none.
type APIError struct {
	Status  int
	Message string
	Fields  []string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the catalog HTTP API, e.g. "http://localhost:8080/api".
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context, opts product.ListOptions) ([]product.Product, error) {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("category", opts.Category)
	set("search", opts.Search)
	set("minPrice", opts.MinPrice)
	set("maxPrice", opts.MaxPrice)
	set("sortBy", opts.SortBy)
	set("limit", opts.Limit)

	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []product.Product
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, "Failed to fetch products"); err != nil {
		return nil, err
	}
	return out, nil
}

// Get accepts either a product key or a slug.
func (c *Client) Get(ctx context.Context, identifier string) (*product.Product, error) {
	var out product.Product
	if err := c.doJSON(ctx, http.MethodGet, productPath(identifier), nil, &out, "Failed to fetch product"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Related(ctx context.Context, identifier string, limit int) ([]product.Product, error) {
	path := productPath(identifier) + "/related"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []product.Product
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, "Failed to fetch related products"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, in product.CreateInput) (*product.Product, error) {
	var out product.Product
	if err := c.doJSON(ctx, http.MethodPost, "/products", in, &out, "Failed to create product"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, identifier string, in product.UpdateInput) (*product.Product, error) {
	var out product.Product
	if err := c.doJSON(ctx, http.MethodPut, productPath(identifier), in, &out, "Failed to update product"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, identifier string) error {
	return c.doJSON(ctx, http.MethodDelete, productPath(identifier), nil, nil, "Failed to delete product")
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, &out, "Failed to fetch categories"); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends r as the multipart "file" field and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*upload.Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out upload.Result
	if err := c.do(req, &out, "Failed to upload image"); err != nil {
		return nil, err
	}
	return &out, nil
}

func productPath(identifier string) string {
	return "/products/" + url.PathEscape(identifier)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, fallback string) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, fallback)
}

func (c *Client) do(req *http.Request, out any, fallback string) error {
	log := logger.FromCtx(req.Context()).With(
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("catalog request failed", zap.Error(err))
		return fmt.Errorf("%s: %w", fallback, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %w", fallback, err)
	}

	var env struct {
		utils.Envelope
		Data json.RawMessage `json:"data"`
	}
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 300 || decodeErr != nil || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Message: fallback}
		if decodeErr == nil {
			if env.Error != "" {
				apiErr.Message = env.Error
			}
			apiErr.Fields = env.Fields
		}
		log.Debug("catalog request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
