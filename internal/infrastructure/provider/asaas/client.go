package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/provider"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const (
	providerName   = "asaas"
	defaultTimeout = 30 * time.Second
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Client talks to the Asaas REST API (v3)
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates an Asaas client. A zero timeout means 30s.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// GetProviderName returns the provider name
func (c *Client) GetProviderName() string {
	return providerName
}

type errorResponse struct {
	Errors []provider.ErrorDetail `json:"errors"`
}

// do sends one request and returns the raw body of a 2xx answer.
// Transport failures become TransientError, non-2xx answers GatewayError.
func (c *Client) do(ctx context.Context, operation, method, path string, body interface{}) ([]byte, error) {
	started := time.Now()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, &provider.GatewayError{
				GatewayCode: "MARSHAL_ERROR",
				Message:     "Failed to prepare request: " + err.Error(),
			}
		}
		reader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &provider.GatewayError{
			GatewayCode: "REQUEST_ERROR",
			Message:     "Failed to create request: " + err.Error(),
		}
	}
	httpReq.Header.Set("access_token", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "raceflow-payment")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		metrics.ObserveGateway(operation, "transient", started)
		c.logger.Warn("Asaas request failed without response",
			zap.String("operation", operation),
			zap.String("path", path),
			zap.Error(err))
		return nil, &provider.TransientError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveGateway(operation, "transient", started)
		return nil, &provider.TransientError{Op: method + " " + path, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveGateway(operation, "error", started)
		gwErr := parseError(resp.StatusCode, respBody)
		c.logger.Error("Asaas request rejected",
			zap.String("operation", operation),
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", gwErr.Message))
		return nil, gwErr
	}

	metrics.ObserveGateway(operation, "ok", started)
	return respBody, nil
}

// parseError joins the descriptions of the gateway's error list.
func parseError(statusCode int, body []byte) *provider.GatewayError {
	gwErr := &provider.GatewayError{StatusCode: statusCode}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Errors) > 0 {
		gwErr.Details = errResp.Errors
		gwErr.GatewayCode = errResp.Errors[0].Code
		descriptions := make([]string, 0, len(errResp.Errors))
		for _, e := range errResp.Errors {
			if e.Description != "" {
				descriptions = append(descriptions, e.Description)
			}
		}
		gwErr.Message = strings.Join(descriptions, "; ")
	}

	if gwErr.Message == "" {
		gwErr.Message = fmt.Sprintf("Asaas returned %d %s", statusCode, http.StatusText(statusCode))
	}
	return gwErr
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{dateLayout, dateTimeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
