package opencloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEntryNotFound    = errors.New("datastore entry not found")
	ErrVersionConflict  = errors.New("datastore entry version conflict")
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrTransport        = errors.New("open cloud request failed")
	ErrMessageTooLarge  = errors.New("message exceeds size limit")
)

// maxErrorBody caps how much of an error response is kept for logging.
const maxErrorBody = 512

// StatusError is returned when Open Cloud answers with a status the caller
// does not handle. It matches ErrUnexpectedStatus with errors.Is.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d: %s", ErrUnexpectedStatus, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client carries the credentials and HTTP client shared by the Open Cloud APIs.
type Client struct {
	apiKey     string
	universeID uint64
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Open Cloud client for one universe.
// A zero timeout leaves requests bounded only by their context.
func NewClient(apiKey string, universeID uint64, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		universeID: universeID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("opencloud"),
	}
}

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// do executes a single request with the API key attached.
// Transport failures are wrapped with ErrTransport.
func (c *Client) do(
	ctx context.Context, method, url string, body []byte, headers map[string]string,
) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	c.logger.Debug("Open Cloud request",
		zap.String("method", method),
		zap.String("url", req.URL.Path),
		zap.Int("status", resp.StatusCode))

	return &response{
		status: resp.StatusCode,
		header: resp.Header,
		body:   respBody,
	}, nil
}

// statusError builds a StatusError from an unhandled response.
func statusError(resp *response) error {
	body := resp.body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	return &StatusError{
		StatusCode: resp.status,
		Body:       string(body),
	}
}
