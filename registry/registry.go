// Package registry provides discovery of planning-service endpoints.
//
// Planning deployments often run several solver services side by side: a
// synchronous /solve endpoint, an asynchronous /request endpoint, and one or
// more packaged-solver previews. Services self-register an EndpointInfo
// entry under an etcd namespace; clients resolve a planner by name instead
// of hardcoding URLs, and can watch for endpoints appearing and vanishing.
//
// Registrations are held by etcd leases with a TTL and renewed every TTL/3,
// so crashed services disappear from discovery automatically.
package registry

import (
	"context"
	"time"
)

// EndpointInfo describes one registered planning-service endpoint.
type EndpointInfo struct {
	// Variant is the service dialect: "solve", "request", or "package".
	Variant string `json:"variant"`

	// Name identifies the planner (e.g. "lama", "optic", "tfd").
	Name string `json:"name"`

	// Version is the planner's version string.
	Version string `json:"version,omitempty"`

	// InstanceID uniquely identifies this instance, so several replicas
	// of the same planner can register concurrently.
	InstanceID string `json:"instance_id"`

	// URL is the HTTP endpoint planning requests are posted to.
	URL string `json:"url"`

	// Metadata carries planner-specific attributes, e.g. supported PDDL
	// requirements or plan formats.
	Metadata map[string]string `json:"metadata,omitempty"`

	// RegisteredAt is when this instance registered.
	RegisteredAt time.Time `json:"registered_at"`
}

// Registry is the endpoint registration and discovery interface.
// Implementations must be safe for concurrent use.
type Registry interface {
	// Register adds an endpoint to the registry and keeps it alive with
	// lease renewals until Deregister or Close.
	Register(ctx context.Context, info EndpointInfo) error

	// Deregister removes an endpoint. Deregistering an unknown instance
	// is a no-op.
	Deregister(ctx context.Context, info EndpointInfo) error

	// Discover returns all instances of a named planner for a dialect.
	Discover(ctx context.Context, variant, name string) ([]EndpointInfo, error)

	// DiscoverAll returns every endpoint registered for a dialect.
	DiscoverAll(ctx context.Context, variant string) ([]EndpointInfo, error)

	// Resolve picks one instance of a named planner, preferring the
	// most recently registered.
	Resolve(ctx context.Context, variant, name string) (EndpointInfo, error)

	// Watch emits the full endpoint list for a dialect whenever it
	// changes, starting with the current state. The channel closes when
	// ctx ends or the registry is closed.
	Watch(ctx context.Context, variant string) (<-chan []EndpointInfo, error)

	// Close stops lease renewals and releases the connection.
	Close() error
}

// TLSConfig configures mutual TLS for the etcd connection.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty"`
}

// Config configures the etcd-backed registry client.
type Config struct {
	// Endpoints lists the etcd cluster members.
	Endpoints []string

	// Namespace prefixes all registry keys. Default: "pddlkit".
	Namespace string

	// TTL is the registration lease in seconds. Default: 30.
	TTL int

	// TLS enables mutual TLS towards etcd.
	TLS *TLSConfig
}
