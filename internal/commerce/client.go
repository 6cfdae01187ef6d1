package commerce

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

	apperrors "github.com/imrishuroy/storefront-checkout/pkg/errors"
)

// HeaderCorrelationID is forwarded on every call when present in the context.
const HeaderCorrelationID = "X-Correlation-Id"

type correlationKey struct{}

// WithCorrelationID attaches a correlation id that the client forwards downstream.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id set by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationKey{}).(string); ok {
		return v
	}
	return ""
}

// Client calls the remote commerce API with a bearer credential.
type Client struct {
	baseURL    *url.URL
	tokens     TokenProvider
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a commerce API client. timeout <= 0 uses 15s.
func NewClient(baseURL string, tokens TokenProvider, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid commerce base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid commerce base url %q: scheme and host required", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    u,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// errorBody is the shape the API uses for failures; either field may carry the message.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return apperrors.E(apperrors.KindAuthRequired, op, err)
	}
	if token == "" {
		return &apperrors.Error{Kind: apperrors.KindAuthRequired, Op: op, Message: "no credential available"}
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	rel, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return fmt.Errorf("%s: build path: %w", op, err)
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cid := CorrelationID(ctx); cid != "" {
		req.Header.Set(HeaderCorrelationID, cid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("commerce request failed", zap.String("op", op), zap.String("path", path), zap.Error(err))
		return apperrors.E(apperrors.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(op, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.E(apperrors.KindNetwork, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) statusError(op, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}

	kind := apperrors.KindRejected
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = apperrors.KindAuthRequired
	case resp.StatusCode == http.StatusNotFound:
		kind = apperrors.KindNotFound
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		kind = apperrors.KindNetwork
	}

	c.logger.Warn("commerce request rejected",
		zap.String("op", op),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("message", msg),
	)
	return &apperrors.Error{
		Kind:    kind,
		Op:      op,
		Message: msg,
		Err:     fmt.Errorf("commerce api returned %d", resp.StatusCode),
	}
}
