package sdk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddlkit/sdk/service"
	"github.com/pddlkit/sdk/types"
	"github.com/pddlkit/sdk/validate"
)

type recordingCallbacks struct {
	outputs []string
	plans   []*types.Plan
}

func (r *recordingCallbacks) HandleOutput(text string) { r.outputs = append(r.outputs, text) }

func (r *recordingCallbacks) HandlePlan(plan *types.Plan) { r.plans = append(r.plans, plan) }

func (r *recordingCallbacks) ProvidePlannerOptions(service.PlannerMetadata) {}

// memCache is an in-memory cache.Cache for tests.
type memCache struct {
	entries map[string][]*types.Plan
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]*types.Plan{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]*types.Plan, bool, error) {
	plans, ok := m.entries[key]
	return plans, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, plans []*types.Plan) error {
	m.entries[key] = plans
	return nil
}

func (m *memCache) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solveServer(t *testing.T, hits *int, response string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const solveOK = `{"status":"ok","result":{"output":"done","plan":[{"name":"(go)","time":0}]}}`

var (
	domainDoc  = Document{Name: "logistics", Text: "(define (domain logistics))"}
	problemDoc = Document{Name: "p01", Text: "(define (problem p01))"}
)

func TestNewClientRequiresService(t *testing.T) {
	_, err := NewClient(WithLogger(testLogger()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoServiceConfigured))
}

func TestNewClientRejectsBadTimeouts(t *testing.T) {
	_, err := NewClient(
		WithSolveService("http://planner.test/solve"),
		WithTimeouts(types.TimeoutConfig{Min: 100, Max: 10}),
		WithLogger(testLogger()),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestClientPlan(t *testing.T) {
	srv := solveServer(t, nil, solveOK)

	client, err := NewClient(
		WithSolveService(srv.URL),
		WithHTTPClient(srv.Client()),
		WithLogger(testLogger()),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	rec := &recordingCallbacks{}
	plans, err := client.Plan(context.Background(), domainDoc, problemDoc, nil, rec)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "go", plans[0].Steps[0].ActionName)
	assert.Contains(t, rec.outputs, "done")
}

func TestClientPlanReplaysFromCache(t *testing.T) {
	hits := 0
	srv := solveServer(t, &hits, solveOK)

	client, err := NewClient(
		WithSolveService(srv.URL),
		WithHTTPClient(srv.Client()),
		WithCache(newMemCache()),
		WithLogger(testLogger()),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	first, err := client.Plan(ctx, domainDoc, problemDoc, nil, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, hits)

	rec := &recordingCallbacks{}
	second, err := client.Plan(ctx, domainDoc, problemDoc, nil, rec)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, hits, "a cache hit must not touch the network")
	require.Len(t, rec.plans, 1, "cached plans are replayed through HandlePlan")

	// A different problem misses the cache.
	_, err = client.Plan(ctx, domainDoc, Document{Name: "p02", Text: "(define (problem p02))"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestClientDoesNotCacheEmptyResults(t *testing.T) {
	// A poll that has not reached a terminal state yields no plans; caching
	// it would pin the "still searching" answer for the TTL.
	hits := 0
	srv := solveServer(t, &hits, `{"status":{"status":"SEARCHING_BETTER_PLAN"},"plans":[]}`)

	client, err := NewClient(
		WithRequestService(srv.URL),
		WithHTTPClient(srv.Client()),
		WithCache(newMemCache()),
		WithLogger(testLogger()),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	first, err := client.Plan(ctx, domainDoc, problemDoc, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, first)
	assert.Equal(t, 1, hits)

	second, err := client.Plan(ctx, domainDoc, problemDoc, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 2, hits, "an empty result must not be served from the cache")
}

func TestClientMergesDefaults(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(solveOK))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(
		WithSolveService(srv.URL),
		WithHTTPClient(srv.Client()),
		WithDefaults(types.RunConfiguration{AuthenticationToken: "default-token", Timeout: 30}),
		WithLogger(testLogger()),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	// A partial override keeps unset fields from the defaults.
	_, err = client.Plan(context.Background(), domainDoc, problemDoc,
		&types.RunConfiguration{Timeout: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer default-token", gotAuth)
}

func TestClientWithValidator(t *testing.T) {
	srv := solveServer(t, nil, solveOK)

	v, err := validate.New(validate.Options{PlanRules: []string{"steps > 5"}})
	require.NoError(t, err)

	client, err := NewClient(
		WithSolveService(srv.URL),
		WithHTTPClient(srv.Client()),
		WithValidator(v),
		WithLogger(testLogger()),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	// Violations are logged, never returned as errors.
	plans, err := client.Plan(context.Background(), domainDoc, problemDoc, nil, nil)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestClientFromConfigFile(t *testing.T) {
	srv := solveServer(t, nil, solveOK)

	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solve:\n  url: "+srv.URL+"/solve\n"), 0o644))

	client, err := NewClient(
		WithConfigFile(path),
		WithHTTPClient(srv.Client()),
		WithLogger(testLogger()),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	plans, err := client.Plan(context.Background(), domainDoc, problemDoc, nil, nil)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestIsAuthenticationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(
		WithSolveService(srv.URL),
		WithHTTPClient(srv.Client()),
		WithDefaults(types.RunConfiguration{AuthenticationToken: "bad"}),
		WithLogger(testLogger()),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	_, err = client.Plan(context.Background(), domainDoc, problemDoc, nil, nil)
	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))
	assert.False(t, IsContractViolation(err))
}
