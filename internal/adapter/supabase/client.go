package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
)

const maxErrorBody = 512

// Client implements domain.RecordStore against a Supabase PostgREST endpoint.
type Client struct {
	http   *resty.Client
	table  string
	logger *slog.Logger
}

// NewClient creates a PostgREST client for one table. baseURL is the project
// URL, e.g. https://xyz.supabase.co; key is the anon or service key.
func NewClient(baseURL, key, table string, timeout time.Duration, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/rest/v1").
		SetTimeout(timeout).
		SetHeader("apikey", key).
		SetAuthToken(key).
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient, table: table, logger: logger}
}

// Select runs q against the configured table. Queries that filter or sort
// on the DATE column are resolved by calendar day, see selectByCalendar.
func (c *Client) Select(ctx context.Context, q domain.Query) ([]domain.RawRecord, error) {
	if usesDateColumn(q) {
		return c.selectByCalendar(ctx, q)
	}
	return c.get(ctx, queryParams(q))
}

func (c *Client) get(ctx context.Context, params url.Values) ([]domain.RawRecord, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/" + url.PathEscape(c.table))
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", c.table, err)
	}

	if resp.StatusCode() != http.StatusOK {
		body := resp.Body()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("supabase API error: status %d: %s", resp.StatusCode(), body)
	}

	rows, err := decodeRows(resp.Body())
	if err != nil {
		return nil, err
	}
	c.logger.Debug("supabase select", "table", c.table, "params", params.Encode(), "rows", len(rows))
	return rows, nil
}

// queryParams renders q in PostgREST's URL grammar:
// select=DATE&DATE=gte.01-01-2024&DATE=lte.31-01-2024&order=DATE.asc&limit=1
func queryParams(q domain.Query) url.Values {
	params := url.Values{}
	if q.SelectsAll() {
		params.Set("select", "*")
	} else {
		params.Set("select", strings.Join(q.Columns, ","))
	}
	for _, f := range q.Filters {
		params.Add(f.Column, string(f.Op)+"."+f.Value)
	}
	if q.Order != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		params.Set("order", q.Order+"."+dir)
	}
	if q.Max > 0 {
		params.Set("limit", strconv.Itoa(q.Max))
	}
	return params
}

// decodeRows keeps numbers as json.Number so large or precise values are not
// rounded before normalization.
func decodeRows(body []byte) ([]domain.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var rows []domain.RawRecord
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rows == nil {
		rows = []domain.RawRecord{}
	}
	return rows, nil
}
