// Package gateway implements the HTTP client for the remote verification
// backend. It owns the wire contract and the transport-versus-content
// split: an answered rejection carries the backend's classification, an
// unanswered call surfaces as a transport error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"gemnet/internal/capture"
	"gemnet/internal/registration/models"
	dErrors "gemnet/pkg/domain-errors"
	"gemnet/pkg/platform/circuit"
)

const (
	// DefaultTimeout bounds every gateway call. Verification is slow on the
	// backend side; past this the call is declared dead.
	DefaultTimeout = 30 * time.Second

	// DefaultPrefix is the path prefix the backend mounts its API under.
	DefaultPrefix = "/api"

	// maxResponseSize limits response bodies to prevent memory exhaustion.
	maxResponseSize = 1 * 1024 * 1024 // 1MB
)

// envelope is the backend's response wrapper for every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// nicRejection is the data payload of a failed NIC verification.
type nicRejection struct {
	Error       string   `json:"error"`
	UserMessage string   `json:"userMessage"`
	Suggestions []string `json:"suggestions"`
}

// Client calls the remote verification backend over HTTP.
type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *circuit.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithPrefix overrides the backend's API path prefix.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBreaker guards calls with a circuit breaker. While the breaker is open
// every call fails immediately with a transport error instead of waiting out
// the full timeout against a backend that is already known dead.
func WithBreaker(breaker *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = breaker
	}
}

// New constructs a gateway client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     DefaultPrefix,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + c.prefix + path
}

// Register creates the account and returns the backend user ID.
func (c *Client) Register(ctx context.Context, info models.PersonalInfo) (string, error) {
	body, err := json.Marshal(info)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "encode registration request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/auth/register"), bytes.NewReader(body))
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "build registration request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	env, err := c.do(req)
	if err != nil {
		return "", err
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "registration rejected"
		}
		return "", dErrors.New(dErrors.CodeContentRejected, msg)
	}

	userID, err := decodeUserID(env.Data)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeTransport, "registration response missing user id", err)
	}
	return userID, nil
}

// VerifyFace submits the live face capture for the registered user.
func (c *Client) VerifyFace(ctx context.Context, userID string, image capture.Image) error {
	env, err := c.postImage(ctx, "/auth/verify-face/"+userID, "faceImage", image)
	if err != nil {
		return err
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "face verification rejected"
		}
		return dErrors.New(dErrors.CodeContentRejected, msg)
	}
	return nil
}

// VerifyNIC submits the NIC document photo. An answered rejection comes back
// as a classified NICFailure with a nil error; a dead call comes back as a
// transport error for the caller to present as a connectivity problem.
func (c *Client) VerifyNIC(ctx context.Context, userID string, image capture.Image) (*models.NICFailure, error) {
	env, err := c.postImage(ctx, "/auth/verify-nic/"+userID, "nicImage", image)
	if err != nil {
		return nil, err
	}
	if env.Success {
		return nil, nil
	}

	var rejection nicRejection
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &rejection); err != nil {
			c.logger.WarnContext(ctx, "unreadable verification rejection payload", "error", err)
		}
	}
	if rejection.UserMessage == "" {
		rejection.UserMessage = env.Message
	}
	failure := models.ClassifyNICFailure(models.FailureCode(rejection.Error), rejection.UserMessage, rejection.Suggestions)
	return &failure, nil
}

// Health reports whether the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/auth/health"), nil)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "build health request", err)
	}
	// Health checks bypass the open check so a recovered backend can close
	// the breaker again.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return dErrors.Wrap(dErrors.CodeTransport, "verification backend unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.recordFailure(ctx)
		return dErrors.Newf(dErrors.CodeTransport, "verification backend unhealthy: status %d", resp.StatusCode)
	}
	c.recordSuccess(ctx)
	return nil
}

// postImage uploads a single image as a multipart form.
func (c *Client) postImage(ctx context.Context, path, field string, image capture.Image) (*envelope, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, image.Name)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "build upload form", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "write upload form", err)
	}
	if err := writer.Close(); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "finish upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), &buf)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "build upload request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

// do executes the request and decodes the response envelope. Any outcome
// without a parseable envelope is a transport error, no matter the status.
func (c *Client) do(req *http.Request) (*envelope, error) {
	if err := c.checkBreaker(req.Context()); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(req.Context())
		return nil, dErrors.Wrap(dErrors.CodeTransport, "verification backend unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.recordFailure(req.Context())
		return nil, dErrors.Wrap(dErrors.CodeTransport, "read backend response", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.recordFailure(req.Context())
		return nil, dErrors.Newf(dErrors.CodeTransport, "malformed backend response: status %d", resp.StatusCode)
	}

	// A rejection still counts as a success here: the backend answered.
	c.recordSuccess(req.Context())
	return &env, nil
}

func (c *Client) checkBreaker(ctx context.Context) error {
	if c.breaker != nil && c.breaker.IsOpen() {
		c.logger.DebugContext(ctx, "call short-circuited", "breaker", c.breaker.Name())
		return dErrors.New(dErrors.CodeTransport, "verification backend unavailable")
	}
	return nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "circuit breaker opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "circuit breaker closed", "breaker", c.breaker.Name())
	}
}

// decodeUserID accepts both shapes the backend has used for the register
// payload: a bare string and an object with a userId field.
func decodeUserID(data json.RawMessage) (string, error) {
	var direct string
	if err := json.Unmarshal(data, &direct); err == nil && direct != "" {
		return direct, nil
	}
	var wrapped struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.UserID != "" {
		return wrapped.UserID, nil
	}
	return "", fmt.Errorf("no user id in payload")
}
