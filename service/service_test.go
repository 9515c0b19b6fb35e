package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlkit/sdk/parser"
	"github.com/pddlkit/sdk/planerr"
	"github.com/pddlkit/sdk/types"
)

// recordingCallbacks captures everything a planning run reports, in order.
type recordingCallbacks struct {
	outputs []string
	plans   []*types.Plan
	metas   []PlannerMetadata
}

func (r *recordingCallbacks) HandleOutput(text string) {
	r.outputs = append(r.outputs, text)
}

func (r *recordingCallbacks) HandlePlan(plan *types.Plan) {
	r.plans = append(r.plans, plan)
}

func (r *recordingCallbacks) ProvidePlannerOptions(meta PlannerMetadata) {
	r.metas = append(r.metas, meta)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRequest(cfg types.RunConfiguration) *types.PlanningRequest {
	return &types.PlanningRequest{
		RequestID:     "req-1",
		DomainName:    "logistics",
		DomainText:    "(define (domain logistics))",
		ProblemName:   "p01",
		ProblemText:   "(define (problem p01))",
		Configuration: cfg,
	}
}

// newTestCall builds the per-invocation state a reconciler test needs,
// without going through Service.Plan.
func newTestCall(cfg types.RunConfiguration) (*Call, *recordingCallbacks) {
	rec := &recordingCallbacks{}
	call := &Call{
		Request:   testRequest(cfg),
		URL:       "http://planner.test/solve",
		Parser:    parser.NewAccumulator(parser.Options{}),
		Callbacks: rec,
		Logger:    testLogger(),
	}
	return call, rec
}

func TestServicePlanRoundTrip(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","result":{"output":"search done","plan":[{"name":"(load c1 t1)","time":0},{"name":"(drive t1 d1 d2)","time":1}]}}`))
	}))
	defer srv.Close()

	svc := New(NewSolveVariant(srv.URL),
		WithLogger(testLogger()),
		WithHTTPClient(srv.Client()))

	rec := &recordingCallbacks{}
	req := testRequest(types.RunConfiguration{AuthenticationToken: "tok-123"})

	plans, err := svc.Plan(context.Background(), req, nil, rec)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Len(t, plans[0].Steps, 2)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotContentType)

	// The announcement precedes all service output.
	require.NotEmpty(t, rec.outputs)
	assert.Contains(t, rec.outputs[0], `domain "logistics"`)
	assert.Contains(t, rec.outputs[0], `problem "p01"`)
	assert.Contains(t, rec.outputs, "search done")

	require.Len(t, rec.metas, 1)
	assert.Equal(t, "solve", rec.metas[0].ServiceName)
	assert.Equal(t, srv.URL, rec.metas[0].URL)
	assert.Equal(t, "req-1", rec.metas[0].RequestID)
	assert.Equal(t, types.FormatJSON, rec.metas[0].PlanFormat)
}

func TestServicePlanSkipsNetworkWithoutRequestBody(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	// The packaged dialect has nothing to send without a package name.
	svc := New(NewPackageVariant(srv.URL),
		WithLogger(testLogger()),
		WithHTTPClient(srv.Client()))

	rec := &recordingCallbacks{}
	plans, err := svc.Plan(context.Background(), testRequest(types.RunConfiguration{}), nil, rec)
	require.NoError(t, err)
	require.NotNil(t, plans)
	assert.Empty(t, plans)
	assert.Zero(t, hits, "no network call may happen without a request body")
	assert.Empty(t, rec.plans)
	require.NotEmpty(t, rec.outputs, "the announcement still fires")
}

func TestServicePlanValidatesRequest(t *testing.T) {
	svc := New(NewSolveVariant("http://planner.test/solve"), WithLogger(testLogger()))

	req := testRequest(types.RunConfiguration{})
	req.DomainText = ""

	_, err := svc.Plan(context.Background(), req, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty domain")
}

func TestServicePlanAssignsRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","result":{}}`))
	}))
	defer srv.Close()

	svc := New(NewSolveVariant(srv.URL),
		WithLogger(testLogger()),
		WithHTTPClient(srv.Client()))

	rec := &recordingCallbacks{}
	req := testRequest(types.RunConfiguration{})
	req.RequestID = ""

	_, err := svc.Plan(context.Background(), req, nil, rec)
	require.NoError(t, err)
	require.Len(t, rec.metas, 1)
	assert.NotEmpty(t, rec.metas[0].RequestID)
}

func TestServicePlanAuthenticationErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		token       string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "401 with token",
			status:      http.StatusUnauthorized,
			token:       "bad-token",
			wantCode:    planerr.ErrCodeInvalidToken,
			wantMessage: "Invalid token. Please configure a valid authentication token.",
		},
		{
			name:        "400 with token",
			status:      http.StatusBadRequest,
			token:       "bad-token",
			wantCode:    planerr.ErrCodeAuthFailed,
			wantMessage: "Authentication failed. Please check your authentication token.",
		},
		{
			name:        "401 without token",
			status:      http.StatusUnauthorized,
			wantCode:    planerr.ErrCodeTransport,
			wantMessage: "service returned status 401",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			svc := New(NewSolveVariant(srv.URL),
				WithLogger(testLogger()),
				WithHTTPClient(srv.Client()))

			rec := &recordingCallbacks{}
			cfg := types.RunConfiguration{AuthenticationToken: tt.token}

			plans, err := svc.Plan(context.Background(), testRequest(cfg), nil, rec)
			require.Error(t, err)
			assert.True(t, planerr.HasCode(err, tt.wantCode), "got %v", err)
			assert.True(t, strings.Contains(err.Error(), tt.wantMessage), "got %v", err)
			assert.Nil(t, plans)
			assert.Empty(t, rec.plans)
		})
	}
}
