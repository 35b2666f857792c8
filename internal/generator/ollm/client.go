// Package ollm provides the HTTP client for an OLLM inference daemon.
package ollm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"ollm-bridge/internal/generator"
)

const (
	generatePath = "/api/generate"

	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second

	// Fragment lines are small, but a single fragment may still carry a large
	// paragraph of text.
	maxFragmentLineBytes = 1 << 20
)

// Client calls the OLLM daemon's generate endpoint and implements
// generator.Generator.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for the daemon at baseURL. headerTimeout
// bounds how long the daemon may take to start answering; the response body
// itself streams with no overall deadline.
func NewClient(baseURL string, headerTimeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: generation can legitimately outlive any fixed
		// deadline while fragments keep arriving.
		httpClient: &http.Client{Transport: transport},
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt []string `json:"prompt"`
	Stream bool     `json:"stream"`
}

// fragmentRecord is one newline-delimited JSON record from the daemon.
type fragmentRecord struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends the prompt to the daemon and returns a stream of text
// fragments. The daemon always answers with a newline-delimited fragment
// stream; the caller decides whether to drain it eagerly or incrementally.
// Cancelling ctx stops the fragment pump and releases the connection.
func (c *Client) Generate(ctx context.Context, model string, prompt []string, stream bool) (*generator.Stream, error) {
	body, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call generator: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	fragments := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(fragments)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxFragmentLineBytes)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var record fragmentRecord
			if err := json.Unmarshal(line, &record); err != nil {
				errs <- fmt.Errorf("decode fragment: %w", err)
				return
			}

			if record.Response != "" {
				select {
				case fragments <- record.Response:
				case <-ctx.Done():
					return
				}
			}

			if record.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			errs <- fmt.Errorf("read fragment stream: %w", err)
		}
	}()

	return generator.NewStream(fragments, errs), nil
}
