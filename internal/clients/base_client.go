package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"evmobile/internal/models"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// TokenSource yields the current bearer credential, empty when logged out.
type TokenSource interface {
	AccessToken() string
}

// DeviceIDHeader is attached to every request.
const DeviceIDHeader = "X-Device-Id"

// BaseClient sends JSON requests and unwraps the {code, data} envelope.
type BaseClient struct {
	baseURL  string
	client   HTTPDoer
	tokens   TokenSource
	deviceID string
	logger   *zap.Logger
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer, tokens TokenSource, deviceID string, logger *zap.Logger) *BaseClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		tokens:   tokens,
		deviceID: deviceID,
		logger:   logger,
	}
}

func (c *BaseClient) buildURL(path string, query url.Values) string {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		path = c.baseURL + path
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path
}

// Get issues a GET and decodes the envelope data into out.
func (c *BaseClient) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, http.MethodGet, c.buildURL(path, query), nil, out)
}

// Post issues a POST with a JSON body and decodes the envelope data into out.
func (c *BaseClient) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, c.buildURL(path, nil), body, out)
}

// Do executes the request. Network failures become *TransportError, non-success
// envelopes become *BusinessError.
func (c *BaseClient) Do(ctx context.Context, method, target string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("clients: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("clients: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.deviceID != "" {
		req.Header.Set(DeviceIDHeader, c.deviceID)
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return newTransportError(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return newTransportError(resp.StatusCode, err)
	}
	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Code == "" {
		if resp.StatusCode >= 300 {
			return &TransportError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &TransportError{Status: resp.StatusCode, Message: "malformed response envelope"}
	}
	if !env.Success() {
		return &BusinessError{Code: env.Code, Message: env.Message, Data: env.Data}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("clients: decode data: %w", err)
	}
	return nil
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
