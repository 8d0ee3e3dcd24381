package supabase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
)

const (
	testKey           = "anon-key"
	testTable         = "pacific_garnet"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testKey, testTable, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Select_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/"+testTable, r.URL.Path)
		assert.Equal(t, testKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Empty(t, q.Get("order"))
		assert.Empty(t, q.Get("limit"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `[
			{"DATE": "01-01-2024", "CARGO_ONBOARDQUANTITY": 85000, "BF": "4"},
			{"DATE": "02-01-2024", "CARGO_ONBOARDQUANTITY": 0.1234567890123456789, "Event": null}
		]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	rows, err := c.Select(context.Background(), domain.NewQuery())

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "01-01-2024", rows[0]["DATE"])
	assert.Equal(t, json.Number("85000"), rows[0]["CARGO_ONBOARDQUANTITY"])
	assert.Equal(t, "4", rows[0]["BF"])
	assert.Equal(t, json.Number("0.1234567890123456789"), rows[1]["CARGO_ONBOARDQUANTITY"])
	assert.Nil(t, rows[1]["Event"])
}

func TestClient_Select_NonDateColumnsPassThrough(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "id,BF", q.Get("select"))
		assert.Equal(t, "eq.V1000", q.Get("id"))
		assert.Equal(t, "id.desc", q.Get("order"))
		assert.Equal(t, "1", q.Get("limit"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `[{"id":"V1000","BF":"4"}]`)
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL).Select(context.Background(), domain.NewQuery().
		Select("id", "BF").
		Eq("id", "V1000").
		OrderBy("id", true).
		Limit(1))

	require.NoError(t, err)
	assert.Equal(t, []domain.RawRecord{{"id": "V1000", "BF": "4"}}, rows)
	assert.Equal(t, int32(1), requests.Load())
}

// dateServer answers DATE-only selects with days and every other select
// with rowsFor(DATE filter).
func dateServer(t *testing.T, days []string, rowsFor func(filter string) string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		assert.Empty(t, q.Get("order"), "DATE text must not be ordered server-side")
		assert.Empty(t, q.Get("limit"))
		w.Header().Set(headerContentType, contentTypeJSON)

		if q.Get("select") == domain.DateColumn {
			assert.Empty(t, q.Get(domain.DateColumn))
			_ = json.NewEncoder(w).Encode(dayRecords(days))
			return
		}
		_, _ = io.WriteString(w, rowsFor(q.Get(domain.DateColumn)))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func dayRecords(days []string) []map[string]string {
	out := make([]map[string]string, len(days))
	for i, d := range days {
		out[i] = map[string]string{domain.DateColumn: d}
	}
	return out
}

func rowDates(rows []domain.RawRecord) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r[domain.DateColumn]
	}
	return out
}

func TestClient_Select_RangeAcrossMonthBoundary(t *testing.T) {
	days := []string{"15-02-2024", "25-01-2024", "05-02-2024", "24-01-2024", "31-01-2024"}
	srv, requests := dateServer(t, days, func(filter string) string {
		assert.Equal(t, "in.(25-01-2024,05-02-2024,31-01-2024)", filter)
		return `[{"DATE":"05-02-2024"},{"DATE":"25-01-2024"},{"DATE":"31-01-2024"}]`
	})

	rows, err := testClient(srv.URL).Select(context.Background(), domain.NewQuery().
		Gte(domain.DateColumn, "25-01-2024").
		Lte(domain.DateColumn, "05-02-2024").
		OrderBy(domain.DateColumn, false))

	require.NoError(t, err)
	assert.Equal(t, []any{"25-01-2024", "31-01-2024", "05-02-2024"}, rowDates(rows))
	assert.Equal(t, int32(2), requests.Load())
}

func TestClient_Select_LatestByCalendarDay(t *testing.T) {
	srv, _ := dateServer(t, []string{"31-01-2024", "15-02-2024", "01-02-2024"}, func(filter string) string {
		assert.Equal(t, "in.(15-02-2024)", filter)
		return `[{"DATE":"15-02-2024","CARGO_ONBOARDQUANTITY":85000}]`
	})

	rows, err := testClient(srv.URL).Select(context.Background(),
		domain.NewQuery().OrderBy(domain.DateColumn, true).Limit(1))

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "15-02-2024", rows[0]["DATE"])
	assert.Equal(t, json.Number("85000"), rows[0]["CARGO_ONBOARDQUANTITY"])
}

func TestClient_Select_DatesOnlyIsOneRequest(t *testing.T) {
	srv, requests := dateServer(t, []string{"31-01-2024", "15-02-2024", "01-02-2024", "15-02-2024"}, func(string) string {
		t.Error("rows must not be fetched for a DATE-only query")
		return `[]`
	})

	rows, err := testClient(srv.URL).Select(context.Background(), domain.NewQuery().
		Select(domain.DateColumn).
		OrderBy(domain.DateColumn, true).
		Limit(3))

	require.NoError(t, err)
	assert.Equal(t, []any{"15-02-2024", "15-02-2024", "01-02-2024"}, rowDates(rows))
	assert.Equal(t, int32(1), requests.Load())
}

func TestClient_Select_EmptyDateWindow(t *testing.T) {
	srv, requests := dateServer(t, []string{"01-01-2024", "02-01-2024"}, func(string) string {
		t.Error("rows must not be fetched for an empty window")
		return `[]`
	})

	rows, err := testClient(srv.URL).Select(context.Background(),
		domain.NewQuery().Eq(domain.DateColumn, "15-01-2024"))

	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.Equal(t, int32(1), requests.Load())
}

func TestClient_Select_EmptyResult(t *testing.T) {
	for _, body := range []string{`[]`, `null`} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(headerContentType, contentTypeJSON)
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			rows, err := testClient(srv.URL).Select(context.Background(), domain.NewQuery())
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Empty(t, rows)
		})
	}
}

func TestClient_Select_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"42703","message":"column pacific_garnet.DAT does not exist"}`+strings.Repeat(" ", 1024))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Select(context.Background(), domain.NewQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "42703")
	assert.Less(t, len(err.Error()), 600)
}

func TestClient_Select_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{not json`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Select(context.Background(), domain.NewQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Select_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).Select(ctx, domain.NewQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "select from "+testTable)
}

func TestQueryParams(t *testing.T) {
	params := queryParams(domain.NewQuery())
	assert.Equal(t, "select=%2A", params.Encode())

	params = queryParams(domain.NewQuery().Select("DATE", "BF").Limit(10))
	assert.Equal(t, "DATE,BF", params.Get("select"))
	assert.Equal(t, "10", params.Get("limit"))
	assert.Empty(t, params.Get("order"))
}
