package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Options struct {
	MaxSize int
	Timeout time.Duration
}

// A thing capable of fetching a document over HTTP.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string, options Options) ([]byte, error)
}

// GetterFunc adapts a function to the Getter interface.
type GetterFunc func(ctx context.Context, url string, headers map[string]string, options Options) ([]byte, error)

func (f GetterFunc) Get(ctx context.Context, url string, headers map[string]string, options Options) ([]byte, error) {
	return f(ctx, url, headers, options)
}

// StatusError means the upstream answered with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d", e.StatusCode)
}

// HTTPGet fetches a URL. Every request is bounded by options.Timeout; a
// hanging upstream can't stall the caller indefinitely.
func HTTPGet(ctx context.Context, url string, headers map[string]string, options Options) ([]byte, error) {
	client := &http.Client{
		Timeout: options.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range headers {
		req.Header.Add(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if options.MaxSize > 0 {
		reader = io.LimitReader(resp.Body, int64(options.MaxSize))
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return body, nil
}
