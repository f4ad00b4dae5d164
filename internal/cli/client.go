package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Client talks to the data service API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client against the given service URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// apiResponse is the service's standard response wrapper.
type apiResponse struct {
	Data      json.RawMessage `json:"data"`
	Success   bool            `json:"success"`
	Timestamp string          `json:"timestamp"`
	Error     string          `json:"error"`
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected response (%s): %s", resp.Status, string(body))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if parsed.Error != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, parsed.Error)
		}
		return nil, fmt.Errorf("request failed: %s", resp.Status)
	}
	return parsed.Data, nil
}

// UploadCSV uploads a CSV file for one domain type.
func (c *Client) UploadCSV(path, dataType, batchID, operationalTime string) (json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	mw.WriteField("data_type", dataType)
	mw.WriteField("batch_id", batchID)
	if operationalTime != "" {
		mw.WriteField("operational_time", operationalTime)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/data/upload/csv", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

// UploadSheets triggers the simulated spreadsheet sync for a demo period.
func (c *Client) UploadSheets(batchID, operationalTime string) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]string{
		"batch_id":         batchID,
		"operational_time": operationalTime,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/data/upload/sheets", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// Reset restores the baseline dataset.
func (c *Client) Reset() (json.RawMessage, error) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/data/reset", nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Status fetches the demo state and record counts.
func (c *Client) Status() (json.RawMessage, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/data/status", nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}
