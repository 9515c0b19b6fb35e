package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlkit/sdk/planerr"
)

func TestJSONClientRejectsNonJSONContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>planner portal</html>"))
	}))
	defer srv.Close()

	c := NewJSONClient(srv.Client(), testLogger())
	_, err := c.GetJSON(context.Background(), srv.URL, RequestOptions{FriendlyName: "solve"})
	require.Error(t, err)
	assert.True(t, planerr.HasCode(err, planerr.ErrCodeTransport))
	assert.Contains(t, err.Error(), "expected application/json")
}

func TestJSONClientAcceptsJSONWithCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewJSONClient(srv.Client(), testLogger())
	raw, err := c.GetJSON(context.Background(), srv.URL, RequestOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestJSONClientSendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewJSONClient(srv.Client(), testLogger())
	opts := RequestOptions{Headers: map[string]string{"Authorization": "Bearer abc"}}
	_, err := c.PostJSON(context.Background(), srv.URL, map[string]string{"domain": "d"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		authenticated bool
		wantCode      string
	}{
		{name: "200 ok", status: 200},
		{name: "201 created", status: 201},
		{name: "202 accepted", status: 202},
		{name: "400 authenticated", status: 400, authenticated: true, wantCode: planerr.ErrCodeAuthFailed},
		{name: "401 authenticated", status: 401, authenticated: true, wantCode: planerr.ErrCodeInvalidToken},
		{name: "400 anonymous", status: 400, wantCode: planerr.ErrCodeTransport},
		{name: "401 anonymous", status: 401, wantCode: planerr.ErrCodeTransport},
		{name: "500", status: 500, authenticated: true, wantCode: planerr.ErrCodeTransport},
		{name: "203 is already a failure", status: 203, wantCode: planerr.ErrCodeTransport},
	}

	c := NewJSONClient(nil, testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.classifyStatus(tt.status, RequestOptions{Authenticated: tt.authenticated})
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, planerr.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestJSONClientConnectionFailure(t *testing.T) {
	c := NewJSONClient(nil, testLogger())
	_, err := c.GetJSON(context.Background(), "http://127.0.0.1:1/solve", RequestOptions{FriendlyName: "solve"})
	require.Error(t, err)
	assert.True(t, planerr.HasCode(err, planerr.ErrCodeTransport))
}
