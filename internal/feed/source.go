package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Source opens the upstream event stream. The returned body yields SSE
// frames until it fails or ctx is cancelled.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// HTTPSource reads a text/event-stream endpoint.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Open issues the streaming GET request.
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream %s: %w", s.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("open stream %s: status %d", s.URL, resp.StatusCode)
	}
	return resp.Body, nil
}
