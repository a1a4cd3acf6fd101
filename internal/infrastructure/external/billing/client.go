// Package billing is the HTTP client of the invoicing backend.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/garyjia/factura-chat/internal/application/port"
	"github.com/garyjia/factura-chat/internal/domain/entity"
	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// Client talks to the /api endpoints of the billing backend
type Client struct {
	http     *http.Client
	endpoint *url.URL
	logger   *zap.Logger
}

type generateRequest struct {
	InvoiceData entity.InvoiceRecord `json:"invoiceData"`
}

type voucherTypesResponse struct {
	Success      bool                     `json:"success"`
	VoucherTypes []entity.VoucherTypeInfo `json:"voucherTypes"`
	Error        string                   `json:"error,omitempty"`
}

// New creates a client for the backend at endpoint (scheme and host, optionally a path prefix)
func New(endpoint string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid billing endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %q is not supported", u.Scheme)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:     &http.Client{Timeout: timeout},
		endpoint: u,
		logger:   logger,
	}, nil
}

// SetHTTPTransport replaces the round tripper, e.g. for a custom CA
func (c *Client) SetHTTPTransport(transport http.RoundTripper) {
	c.http.Transport = transport
}

// Submit posts the record to /api/generate-invoice. Transport failures and rejected
// invoices both come back as an unsuccessful result so the chat can show the reason.
func (c *Client) Submit(ctx context.Context, record entity.InvoiceRecord) (*entity.InvoiceResult, error) {
	body, err := json.Marshal(generateRequest{InvoiceData: record})
	if err != nil {
		return nil, fmt.Errorf("encode invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("generate-invoice"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Billing backend unreachable", zap.Error(err))
		return &entity.InvoiceResult{Success: false, Error: err.Error()}, nil
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := errorMessage(res)
		c.logger.Warn("Invoice rejected by backend", zap.Int("status", res.StatusCode), zap.String("error", msg))
		return &entity.InvoiceResult{Success: false, Error: msg}, nil
	}

	var result entity.InvoiceResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return &entity.InvoiceResult{Success: false, Error: fmt.Sprintf("respuesta inválida: %v", err)}, nil
	}
	if !result.Success && result.Error == "" {
		result.Error = "Error desconocido"
	}
	return &result, nil
}

// CheckHealth probes /api/health; an unreachable backend is reported as unhealthy, not as an error
func (c *Client) CheckHealth(ctx context.Context) (*entity.HealthStatus, error) {
	var status entity.HealthStatus
	if err := c.getJSON(ctx, "health", &status); err != nil {
		c.logger.Info("Billing backend health check failed", zap.Error(err))
		return &entity.HealthStatus{Success: false, Error: err.Error()}, nil
	}
	return &status, nil
}

// AuthorityStatus fetches /api/afip-status
func (c *Client) AuthorityStatus(ctx context.Context) (*entity.AuthorityStatus, error) {
	var status entity.AuthorityStatus
	if err := c.getJSON(ctx, "afip-status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// VoucherTypes fetches /api/voucher-types
func (c *Client) VoucherTypes(ctx context.Context) ([]entity.VoucherTypeInfo, error) {
	var res voucherTypesResponse
	if err := c.getJSON(ctx, "voucher-types", &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("voucher types: %s", res.Error)
	}
	return res.VoucherTypes, nil
}

func (c *Client) url(path string) string {
	return c.endpoint.JoinPath("api", path).String()
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("unable to create request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to perform HTTP request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", res.Status)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// errorMessage prefers the backend's own error text over the bare status
func errorMessage(res *http.Response) string {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("HTTP error! status: %d", res.StatusCode)
}

var (
	_ port.InvoicingService = (*Client)(nil)
	_ port.AuthorityInfo    = (*Client)(nil)
)
