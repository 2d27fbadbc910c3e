package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response body is kept in a
// StatusError.
const maxErrorBody = 4 << 10

// Request describes the HTTP request that opens an SSE stream.
type Request struct {
	// Method defaults to GET when Body is empty and POST otherwise.
	Method string

	URL string

	// ContentType is sent only when Body is non-empty.
	ContentType string

	Body []byte

	// Header holds extra request headers.
	Header http.Header

	// FollowRedirects lets the client follow 3xx responses. When false a
	// redirect is reported as a StatusError.
	FollowRedirects bool
}

// StatusError is returned by OpenHTTP when the server answers with a
// non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "unexpected response status: " + e.Status
	}
	return fmt.Sprintf("unexpected response status: %s: %s", e.Status, e.Body)
}

// OpenHTTP sends req and returns the response body as a chunk source.
// The caller owns the returned body and must close it.
//
// A nil client uses a client without a timeout: streams are long-lived and
// cancellation is expected to come from ctx or from closing the body.
func OpenHTTP(ctx context.Context, client *http.Client, req Request) (io.ReadCloser, error) {
	if req.URL == "" {
		return nil, errors.New("stream URL is required")
	}

	if client == nil {
		client = &http.Client{}
	}
	if !req.FollowRedirects {
		c := *client
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		client = &c
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
		if len(req.Body) > 0 {
			method = http.MethodPost
		}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating stream request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if httpReq.Header.Get("Cache-Control") == "" {
		httpReq.Header.Set("Cache-Control", "no-cache")
	}
	if len(req.Body) > 0 && req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	return resp.Body, nil
}

// ParseHeaders turns "Key: Value" strings into an http.Header.
func ParseHeaders(lines []string) (http.Header, error) {
	h := make(http.Header, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Key: Value\"", line)
		}
		h.Add(key, strings.TrimSpace(value))
	}
	return h, nil
}
