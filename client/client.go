// Package client is a typed Go client of the housing portal REST API.
// Forms validate their required fields before issuing any request.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string // per-field validation messages
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, joinFields(e.Fields))
}

// ValidationError lists the fields a form refused to submit.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	return "invalid form: " + joinFields(e)
}

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, ", ")
}

// Client talks to the portal API under baseURL (e.g. "https://portal.example.com/api").
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, logger: logger}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var errBody map[string]interface{}
	req := c.http.R().
		SetContext(ctx).
		SetError(&errBody)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("portal API call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := newAPIError(resp.StatusCode(), errBody)
		c.logger.Debug("portal API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", apiErr.StatusCode),
			zap.String("msg", apiErr.Message),
		)
		return apiErr
	}
	return nil
}

func newAPIError(code int, body map[string]interface{}) *APIError {
	apiErr := &APIError{StatusCode: code, Message: http.StatusText(code)}
	if msg, ok := body["error"].(string); ok && len(body) == 1 {
		apiErr.Message = msg
		return apiErr
	}
	if msg, ok := body["message"].(string); ok && len(body) == 1 {
		apiErr.Message = msg
		return apiErr
	}
	for k, v := range body {
		if apiErr.Fields == nil {
			apiErr.Fields = make(map[string]string, len(body))
		}
		apiErr.Fields[k] = fmt.Sprint(v)
	}
	return apiErr
}
