package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"edge-worker/worker/domain"
)

const DefaultCloudflareEndpoint = "https://api.cloudflare.com/client/v4/graphql"

const topPathsQuery = `query TopPaths($zoneTag: string, $since: Time, $until: Time, $limit: uint64!) {
  viewer {
    zones(filter: {zoneTag: $zoneTag}) {
      httpRequestsAdaptiveGroups(
        filter: {datetime_geq: $since, datetime_lt: $until}
        limit: $limit
        orderBy: [sum_requests_DESC]
      ) {
        dimensions { clientRequestPath }
        sum { requests }
      }
    }
  }
}`

type CloudflareOptions struct {
	Endpoint string
	APIToken string
	ZoneID   string

	// Timeout por consulta. 0 usa 15s.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// CloudflareAnalytics consulta a API GraphQL de analytics da Cloudflare
// (httpRequestsAdaptiveGroups agrupado por clientRequestPath).
type CloudflareAnalytics struct {
	endpoint string
	token    string
	zoneID   string
	timeout  time.Duration
	client   *http.Client
}

func NewCloudflareAnalytics(opts CloudflareOptions) *CloudflareAnalytics {
	c := &CloudflareAnalytics{
		endpoint: opts.Endpoint,
		token:    opts.APIToken,
		zoneID:   opts.ZoneID,
		timeout:  opts.Timeout,
		client:   opts.HTTPClient,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultCloudflareEndpoint
	}
	if c.timeout <= 0 {
		c.timeout = 15 * time.Second
	}
	if c.client == nil {
		c.client = &http.Client{}
	}
	return c
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type topPathsResponse struct {
	Data *struct {
		Viewer struct {
			Zones []struct {
				Groups []struct {
					Dimensions struct {
						ClientRequestPath string `json:"clientRequestPath"`
					} `json:"dimensions"`
					Sum struct {
						Requests int64 `json:"requests"`
					} `json:"sum"`
				} `json:"httpRequestsAdaptiveGroups"`
			} `json:"zones"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *CloudflareAnalytics) TopPaths(ctx context.Context, q domain.TopPathsQuery) ([]domain.PathCount, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(graphqlRequest{
		Query: topPathsQuery,
		Variables: map[string]any{
			"zoneTag": c.zoneID,
			"since":   q.Since.UTC().Format(time.RFC3339),
			"until":   q.Until.UTC().Format(time.RFC3339),
			"limit":   q.Limit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", domain.ErrAnalyticsFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrAnalyticsFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalyticsFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrAnalyticsFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrAnalyticsFailed, resp.StatusCode, snippet(body))
	}

	var out topPathsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrAnalyticsFailed, err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("%w: graphql: %s", domain.ErrAnalyticsFailed, strings.Join(msgs, "; "))
	}

	records := []domain.PathCount{}
	if out.Data == nil || len(out.Data.Viewer.Zones) == 0 {
		return records, nil
	}
	for _, g := range out.Data.Viewer.Zones[0].Groups {
		records = append(records, domain.PathCount{
			Path:     g.Dimensions.ClientRequestPath,
			Requests: g.Sum.Requests,
		})
	}
	return records, nil
}

func snippet(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
