// Package openproject provides the project-management collaborator client.
package openproject

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/burjnawas/sitecoord/internal/models"
)

// Client talks to an OpenProject instance over its v3 API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an OpenProject client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// workPackagesResponse is the v3 collection shape we consume.
type workPackagesResponse struct {
	Embedded struct {
		Elements []workPackage `json:"elements"`
	} `json:"_embedded"`
}

type workPackage struct {
	ID        int    `json:"id"`
	Subject   string `json:"subject"`
	StartDate string `json:"startDate"`
	DueDate   string `json:"dueDate"`
	Links     struct {
		Status struct {
			Title string `json:"title"`
		} `json:"status"`
	} `json:"_links"`
}

// InProgressWorkPackages fetches all work packages and returns those with
// status "in progress". Only in-progress work appears in reports.
func (c *Client) InProgressWorkPackages(ctx context.Context) ([]models.WorkPackage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/work_packages", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// OpenProject API keys authenticate as Basic apikey:<key>.
	token := base64.StdEncoding.EncodeToString([]byte("apikey:" + c.apiKey))
	req.Header.Set("Authorization", "Basic "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("work packages request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("openproject API error: status %d: %s", resp.StatusCode, body)
	}

	var parsed workPackagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var active []models.WorkPackage
	for _, pkg := range parsed.Embedded.Elements {
		status := strings.ToLower(pkg.Links.Status.Title)
		if status != "in progress" {
			continue
		}
		active = append(active, models.WorkPackage{
			ID:        pkg.ID,
			Subject:   pkg.Subject,
			Status:    status,
			StartDate: pkg.StartDate,
			DueDate:   pkg.DueDate,
		})
	}
	return active, nil
}
