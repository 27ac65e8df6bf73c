package server

import (
	"context"
	"net/http"
	"time"
)

// WaitForHealthy polls the /health endpoint until it returns 200 OK or
// the context is cancelled. baseURL is the server's base URL, e.g.
// "http://localhost:9090".
func WaitForHealthy(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: time.Second}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			resp, err := client.Get(baseURL + "/health")
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}
