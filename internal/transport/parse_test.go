package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eshaffer321/calimoto-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSessionExpiry(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       bool
	}{
		{"parse code 209 on 400", 400, `{"code":209,"error":"Invalid session token"}`, true},
		{"phrase on 401", 401, `Invalid Session`, true},
		{"code on 403", 403, `error 209`, true},
		{"400 without marker", 400, `{"code":141,"error":"bad query"}`, false},
		{"marker on 500", 500, `{"code":209}`, false},
		{"marker on 404", 404, `invalid session`, false},
		{"empty body", 401, ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSessionExpiry(tt.statusCode, tt.body))
		})
	}
}

func TestPost_SendsPlainTextJSON(t *testing.T) {
	var gotContentType, gotUserAgent, gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotUserAgent = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"results":[{"objectId":"r1"}]}`))
	}))
	defer server.Close()

	tr := NewParseTransport(&Options{BaseURL: server.URL})

	var result struct {
		Results []map[string]interface{} `json:"results"`
	}
	err := tr.Post(context.Background(), "/parse/classes/tblRoutes", map[string]interface{}{
		"_method": "GET",
		"limit":   10000,
	}, nil, &result)

	require.NoError(t, err)
	assert.Equal(t, "text/plain", gotContentType)
	assert.Equal(t, types.UserAgent, gotUserAgent)
	assert.Equal(t, "/parse/classes/tblRoutes", gotPath)
	assert.Equal(t, "GET", gotBody["_method"])
	assert.Equal(t, float64(10000), gotBody["limit"])
	require.Len(t, result.Results, 1)
	assert.Equal(t, "r1", result.Results[0]["objectId"])
}

func TestPost_ExtraHeaders(t *testing.T) {
	var origin string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin = r.Header.Get("Origin")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr := NewParseTransport(&Options{BaseURL: server.URL})
	err := tr.Post(context.Background(), "/parse/login", map[string]string{}, map[string]string{
		"Origin": "https://calimoto.com",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "https://calimoto.com", origin)
}

func TestPost_SessionExpiryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":209,"error":"Invalid session token"}`))
	}))
	defer server.Close()

	tr := NewParseTransport(&Options{BaseURL: server.URL})
	err := tr.Post(context.Background(), "/parse/classes/tblTracks", map[string]string{}, nil, nil)

	require.Error(t, err)
	var apiErr *types.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.True(t, apiErr.Expired)
	assert.Contains(t, apiErr.URL, "/parse/classes/tblTracks")
	assert.ErrorIs(t, err, types.ErrSessionExpired)
	assert.ErrorIs(t, err, types.ErrAPI)
}

func TestPost_PlainAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer server.Close()

	tr := NewParseTransport(&Options{BaseURL: server.URL})
	err := tr.Post(context.Background(), "/parse/classes/tblRoutes", map[string]string{}, nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrAPI)
	assert.NotErrorIs(t, err, types.ErrSessionExpired)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestGet_ReturnsAnyStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, types.UserAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`nope`))
	}))
	defer server.Close()

	tr := NewParseTransport(&Options{BaseURL: server.URL})
	resp, err := tr.Get(context.Background(), server.URL+"/bundle.js")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "nope", string(resp.Body))
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/points.json":
			_, _ = w.Write([]byte(`{"points":[[47.1,11.2],[47.3,11.4]]}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	tr := NewParseTransport(&Options{BaseURL: server.URL})

	var result struct {
		Points [][]json.Number `json:"points"`
	}
	require.NoError(t, tr.GetJSON(context.Background(), server.URL+"/points.json", &result))
	require.Len(t, result.Points, 2)
	assert.Equal(t, json.Number("11.4"), result.Points[1][1])

	err := tr.GetJSON(context.Background(), server.URL+"/missing.json", &result)
	var apiErr *types.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.MethodGet, apiErr.Method)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestHooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var requests, responses int32
	tr := NewParseTransport(&Options{
		BaseURL: server.URL,
		Hooks: &types.Hooks{
			OnRequest: func(ctx context.Context, req *http.Request) {
				atomic.AddInt32(&requests, 1)
			},
			OnResponse: func(ctx context.Context, resp *http.Response, d time.Duration) {
				atomic.AddInt32(&responses, 1)
			},
		},
	})

	_, err := tr.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	assert.Equal(t, int32(1), atomic.LoadInt32(&responses))
}

func TestRetryConfig_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := NewParseTransport(&Options{
		BaseURL: server.URL,
		RetryConfig: &types.RetryConfig{
			MaxRetries: 2,
			RetryWait:  time.Millisecond,
			MaxWait:    5 * time.Millisecond,
		},
	})

	var result struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, tr.Post(context.Background(), "/parse/classes/tblRoutes", map[string]string{}, nil, &result))
	assert.True(t, result.OK)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNoRetryByDefault(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tr := NewParseTransport(&Options{BaseURL: server.URL})
	err := tr.Post(context.Background(), "/parse/classes/tblRoutes", map[string]string{}, nil, nil)

	assert.ErrorIs(t, err, types.ErrAPI)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPostRaw_ReturnsAnyStatus(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"objectId":"u1"}`))
	}))
	defer server.Close()

	tr := NewParseTransport(&Options{BaseURL: server.URL})

	resp, err := tr.PostRaw(context.Background(), "/parse/login", map[string]string{"username": "a"}, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"objectId":"u1"}`, string(resp.Body))
	assert.Equal(t, "text/plain", gotContentType)
}
