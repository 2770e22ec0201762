package slskd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client wraps the slskd HTTP API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new slskd client
func NewClient(hostURL, apiKey, urlBase string, logger *logrus.Logger) (*Client, error) {
	if hostURL == "" {
		return nil, fmt.Errorf("slskd host URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("slskd API key is required")
	}

	base := strings.TrimRight(hostURL, "/")
	if urlBase != "" && urlBase != "/" {
		base += "/" + strings.Trim(urlBase, "/")
	}

	return &Client{
		baseURL: base + "/api/v0",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}, nil
}

// HostURL returns the base address of the daemon, for user-facing log lines
func (c *Client) HostURL() string {
	return strings.TrimSuffix(c.baseURL, "/api/v0")
}

func (c *Client) do(method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slskd API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slskd API returned status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode slskd response: %w", err)
		}
	}

	return nil
}

// Version retrieves the daemon version string
func (c *Client) Version() (string, error) {
	var version string
	if err := c.do(http.MethodGet, "/application/version", nil, &version); err != nil {
		return "", err
	}
	return version, nil
}

type searchRequest struct {
	SearchText             string `json:"searchText"`
	SearchTimeout          int    `json:"searchTimeout"`
	FilterResponses        bool   `json:"filterResponses"`
	MaximumPeerQueueLength int    `json:"maximumPeerQueueLength"`
	MinimumPeerUploadSpeed int    `json:"minimumPeerUploadSpeed"`
}

// SearchText submits a text search with the configured limits. Response
// filtering is delegated to the daemon.
func (c *Client) SearchText(query string, timeout, maxPeerQueue, minPeerUploadSpeed int) (*Search, error) {
	request := searchRequest{
		SearchText:             query,
		SearchTimeout:          timeout,
		FilterResponses:        true,
		MaximumPeerQueueLength: maxPeerQueue,
		MinimumPeerUploadSpeed: minPeerUploadSpeed,
	}

	var search Search
	if err := c.do(http.MethodPost, "/searches", request, &search); err != nil {
		return nil, fmt.Errorf("failed to start search: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"search_id": search.ID,
		"query":     query,
	}).Debug("Started slskd search")

	return &search, nil
}

// SearchState retrieves the current state of a search
func (c *Client) SearchState(id string) (string, error) {
	var search Search
	if err := c.do(http.MethodGet, "/searches/"+id, nil, &search); err != nil {
		return "", err
	}
	return search.State, nil
}

// SearchResponses retrieves all peer responses gathered by a search
func (c *Client) SearchResponses(id string) ([]SearchResponse, error) {
	var responses []SearchResponse
	if err := c.do(http.MethodGet, "/searches/"+id+"/responses", nil, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}

// DeleteSearch removes a search record from the daemon
func (c *Client) DeleteSearch(id string) error {
	return c.do(http.MethodDelete, "/searches/"+id, nil, nil)
}

// UserDirectory fetches one peer's directory listing. Depending on the daemon
// version the response is either a single object or a one-element array, so
// both shapes are handled.
func (c *Client) UserDirectory(username, directory string) (*Directory, error) {
	request := map[string]string{"directoryName": directory}

	var raw json.RawMessage
	path := "/users/" + url.PathEscape(username) + "/directory"
	if err := c.do(http.MethodPost, path, request, &raw); err != nil {
		return nil, err
	}

	var dirs []Directory
	if err := json.Unmarshal(raw, &dirs); err == nil {
		if len(dirs) == 0 {
			return nil, fmt.Errorf("empty directory response from user %s", username)
		}
		return &dirs[0], nil
	}

	var dir Directory
	if err := json.Unmarshal(raw, &dir); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}
	return &dir, nil
}

// Enqueue requests a download of the given files from a peer
func (c *Client) Enqueue(username string, files []File) error {
	requests := make([]map[string]interface{}, 0, len(files))
	for _, file := range files {
		requests = append(requests, map[string]interface{}{
			"filename": file.Filename,
			"size":     file.Size,
		})
	}

	path := "/transfers/downloads/" + url.PathEscape(username)
	if err := c.do(http.MethodPost, path, requests, nil); err != nil {
		return fmt.Errorf("failed to enqueue downloads from %s: %w", username, err)
	}
	return nil
}

// CancelDownload cancels a single transfer
func (c *Client) CancelDownload(username, id string) error {
	path := "/transfers/downloads/" + url.PathEscape(username) + "/" + id
	return c.do(http.MethodDelete, path, nil, nil)
}

// Downloads retrieves the transfer state for one peer
func (c *Client) Downloads(username string) (*UserDownloads, error) {
	var downloads UserDownloads
	path := "/transfers/downloads/" + url.PathEscape(username)
	if err := c.do(http.MethodGet, path, nil, &downloads); err != nil {
		return nil, err
	}
	return &downloads, nil
}

// AllDownloads retrieves the transfer state for every peer
func (c *Client) AllDownloads() ([]UserDownloads, error) {
	var downloads []UserDownloads
	if err := c.do(http.MethodGet, "/transfers/downloads", nil, &downloads); err != nil {
		return nil, err
	}
	return downloads, nil
}

// RemoveCompletedDownloads clears finished transfers from the daemon
func (c *Client) RemoveCompletedDownloads() error {
	return c.do(http.MethodDelete, "/transfers/downloads/all/completed", nil, nil)
}
