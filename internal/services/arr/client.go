package arr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// client is the shared HTTP layer for the Lidarr and Readarr v1 APIs
type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

func newClient(hostURL, apiKey string, logger *logrus.Logger) *client {
	return &client{
		baseURL: strings.TrimRight(hostURL, "/") + "/api/v1",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (c *client) do(method, path string, query url.Values, body interface{}, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// doGet performs a GET with exponential backoff. Reads are retried because the
// wanted sweep should survive a briefly restarting media manager; writes are
// not, to avoid duplicate commands.
func (c *client) doGet(path string, query url.Values, out interface{}) error {
	operation := func() error {
		return c.do(http.MethodGet, path, query, nil, out)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	return backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		c.logger.WithError(err).WithField("retry_in", wait).Debug("Retrying API request")
	})
}

func (c *client) doPost(path string, body interface{}, out interface{}) error {
	return c.do(http.MethodPost, path, nil, body, out)
}

func (c *client) doPut(path string, body interface{}, out interface{}) error {
	return c.do(http.MethodPut, path, nil, body, out)
}
