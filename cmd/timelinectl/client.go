// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// apiClient is a thin HTTP client for a running cmd/timelined process,
// mirroring the teacher's own createClient()/slurm.SlurmClient split: one
// small struct carrying the base URL and credentials, with one method per
// virtual-table operation rather than a hand-rolled request builder at
// every call site.
type apiClient struct {
	baseURL  string
	tenant   string
	username string
	password string
	http     *http.Client
}

func newAPIClient(baseURL, tenant, username, password string) *apiClient {
	return &apiClient{baseURL: baseURL, tenant: tenant, username: username, password: password, http: &http.Client{}}
}

func (c *apiClient) do(method, path string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	url := fmt.Sprintf("%s/tenants/%s%s", c.baseURL, c.tenant, path)
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling timelined: %w", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding timelined response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("timelined returned %d: %v", resp.StatusCode, out["error"])
	}
	return out, nil
}

func (c *apiClient) CreateResource(body any) (map[string]any, error) { return c.do(http.MethodPost, "/resources", body) }
func (c *apiClient) UpdateResource(id string, body any) (map[string]any, error) {
	return c.do(http.MethodPut, "/resources/"+id, body)
}
func (c *apiClient) DeleteResource(id string) (map[string]any, error) {
	return c.do(http.MethodDelete, "/resources/"+id, nil)
}
func (c *apiClient) CreateRule(body any) (map[string]any, error) { return c.do(http.MethodPost, "/rules", body) }
func (c *apiClient) UpdateRule(id string, body any) (map[string]any, error) {
	return c.do(http.MethodPut, "/rules/"+id, body)
}
func (c *apiClient) DeleteRule(id string) (map[string]any, error) {
	return c.do(http.MethodDelete, "/rules/"+id, nil)
}
func (c *apiClient) CreateBookings(body any) (map[string]any, error) {
	return c.do(http.MethodPost, "/bookings", body)
}
func (c *apiClient) DeleteBooking(id string) (map[string]any, error) {
	return c.do(http.MethodDelete, "/bookings/"+id, nil)
}
func (c *apiClient) PlaceHold(body any) (map[string]any, error) { return c.do(http.MethodPost, "/holds", body) }
func (c *apiClient) ReleaseHold(id string) (map[string]any, error) {
	return c.do(http.MethodDelete, "/holds/"+id, nil)
}

func (c *apiClient) Availability(query string) (map[string]any, error) {
	return c.do(http.MethodGet, "/availability?"+query, nil)
}
