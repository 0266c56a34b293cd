// Package httpapi talks to the storefront's inventory REST API
// (GET /stock/{id} and GET /products/{id}).
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	domproduct "example.com/shoecart/internal/domain/product"
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tracer     trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse inventory url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("inventory url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		tracer: otel.Tracer("example.com/shoecart/internal/infra/inventory/httpapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type stockResponse struct {
	ID     int64 `json:"id"`
	Amount int64 `json:"amount"`
}

type productResponse struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

func (c *Client) GetStock(ctx context.Context, id int64) (domproduct.Stock, error) {
	var resp stockResponse
	if err := c.get(ctx, "stock", id, &resp); err != nil {
		return domproduct.Stock{}, err
	}
	if resp.ID == 0 {
		resp.ID = id
	}
	return domproduct.Stock{ID: resp.ID, Amount: resp.Amount}, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (domproduct.Product, error) {
	var resp productResponse
	if err := c.get(ctx, "products", id, &resp); err != nil {
		return domproduct.Product{}, err
	}
	if resp.ID == 0 {
		resp.ID = id
	}
	return domproduct.Product{
		ID:    resp.ID,
		Title: resp.Title,
		Price: resp.Price,
		Image: resp.Image,
	}, nil
}

func (c *Client) get(ctx context.Context, resource string, id int64, dst any) error {
	target := c.baseURL.JoinPath(resource, strconv.FormatInt(id, 10))

	ctx, span := c.tracer.Start(ctx, "inventory.get "+resource, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.url", target.String()),
		attribute.String("http.method", http.MethodGet),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "build inventory request")
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(err, "inventory %s/%d", resource, id)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		span.SetStatus(codes.Error, resp.Status)
		return domproduct.ErrProductNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		err := fmt.Errorf("inventory %s/%d returned status %s", resource, id, resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "decode inventory %s/%d", resource, id)
	}
	return nil
}
