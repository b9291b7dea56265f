// Package platforms holds clients for the secondary lead-data APIs of
// source platforms whose webhooks only carry a lead reference.
package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GraphClient fetches full lead records from a Graph-style ads API given
// the leadgen id delivered in the webhook.
type GraphClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGraphClient(baseURL string, timeout time.Duration) *GraphClient {
	return &GraphClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type fieldDatum struct {
	Name   string `json:"name"`
	Values []any  `json:"values"`
}

type graphLead struct {
	ID          string       `json:"id"`
	CreatedTime string       `json:"created_time"`
	FieldData   []fieldDatum `json:"field_data"`
}

// FetchLead retrieves a lead by id and flattens its field_data entries
// into a plain payload the field mapper can walk.
func (c *GraphClient) FetchLead(ctx context.Context, leadID, accessToken string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/%s?access_token=%s", c.baseURL, url.PathEscape(leadID), url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lead fetch for %s returned status %d", leadID, resp.StatusCode)
	}
	var lead graphLead
	if err := json.NewDecoder(resp.Body).Decode(&lead); err != nil {
		return nil, err
	}
	payload := make(map[string]any, len(lead.FieldData)+2)
	payload["id"] = lead.ID
	payload["created_time"] = lead.CreatedTime
	for _, field := range lead.FieldData {
		switch len(field.Values) {
		case 0:
		case 1:
			payload[field.Name] = field.Values[0]
		default:
			payload[field.Name] = field.Values
		}
	}
	return payload, nil
}
