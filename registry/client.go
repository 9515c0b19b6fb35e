package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Client implements Registry against an etcd cluster.
//
// Lease management is automatic: each registration gets its own lease,
// renewed every TTL/3 in a background goroutine until Deregister or Close.
//
// Example usage:
//
//	client, err := registry.NewClient(registry.Config{
//	    Endpoints: []string{"localhost:2379"},
//	    Namespace: "pddlkit",
//	    TTL:       30,
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Thread-safety: all methods are safe for concurrent use.
type Client struct {
	client    *clientv3.Client
	namespace string
	ttl       int

	mu        sync.RWMutex
	leases    map[string]clientv3.LeaseID
	cancelFns map[string]context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

// NewClient connects to the etcd cluster and verifies connectivity.
// The client must be closed with Close to stop lease renewals.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("registry endpoints cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "pddlkit"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: 5 * time.Second,
	}

	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsConfig, err := clientTLS(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		clientCfg.TLS = tlsConfig
	}

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := cli.Get(ctx, "health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &Client{
		client:    cli,
		namespace: namespace,
		ttl:       ttl,
		leases:    make(map[string]clientv3.LeaseID),
		cancelFns: make(map[string]context.CancelFunc),
	}, nil
}

// Register implements Registry. Re-registering the same InstanceID replaces
// the entry and restarts its lease renewal.
func (c *Client) Register(ctx context.Context, info EndpointInfo) error {
	if info.Variant == "" || info.Name == "" || info.InstanceID == "" || info.URL == "" {
		return fmt.Errorf("endpoint info requires variant, name, instance_id, and url")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	if cancelFn, exists := c.cancelFns[info.InstanceID]; exists {
		cancelFn()
		delete(c.cancelFns, info.InstanceID)
	}

	leaseResp, err := c.client.Grant(ctx, int64(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	if info.RegisteredAt.IsZero() {
		info.RegisteredAt = time.Now().UTC()
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal endpoint info: %w", err)
	}

	key := c.buildKey(info.Variant, info.Name, info.InstanceID)
	if _, err := c.client.Put(ctx, key, string(data), clientv3.WithLease(leaseResp.ID)); err != nil {
		return fmt.Errorf("failed to register endpoint: %w", err)
	}

	c.leases[info.InstanceID] = leaseResp.ID

	keepaliveCtx, cancel := context.WithCancel(context.Background())
	c.cancelFns[info.InstanceID] = cancel

	c.wg.Add(1)
	go c.keepalive(keepaliveCtx, leaseResp.ID)

	return nil
}

// Deregister implements Registry by revoking the instance's lease, which
// deletes the entry immediately.
func (c *Client) Deregister(ctx context.Context, info EndpointInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	if cancelFn, exists := c.cancelFns[info.InstanceID]; exists {
		cancelFn()
		delete(c.cancelFns, info.InstanceID)
	}

	leaseID, exists := c.leases[info.InstanceID]
	if !exists {
		return nil
	}

	if _, err := c.client.Revoke(ctx, leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}

	delete(c.leases, info.InstanceID)
	return nil
}

// Discover implements Registry.
func (c *Client) Discover(ctx context.Context, variant, name string) ([]EndpointInfo, error) {
	prefix := fmt.Sprintf("/%s/planners/%s/%s/", c.namespace, variant, name)
	return c.list(ctx, prefix)
}

// DiscoverAll implements Registry.
func (c *Client) DiscoverAll(ctx context.Context, variant string) ([]EndpointInfo, error) {
	prefix := fmt.Sprintf("/%s/planners/%s/", c.namespace, variant)
	return c.list(ctx, prefix)
}

// Resolve implements Registry, returning the most recently registered
// instance of the named planner.
func (c *Client) Resolve(ctx context.Context, variant, name string) (EndpointInfo, error) {
	instances, err := c.Discover(ctx, variant, name)
	if err != nil {
		return EndpointInfo{}, err
	}
	if len(instances) == 0 {
		return EndpointInfo{}, fmt.Errorf("no %s endpoint registered for planner %q", variant, name)
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].RegisteredAt.After(instances[j].RegisteredAt)
	})
	return instances[0], nil
}

// Watch implements Registry. The initial endpoint list is delivered
// immediately; subsequent lists follow every change under the dialect's
// prefix.
func (c *Client) Watch(ctx context.Context, variant string) (<-chan []EndpointInfo, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, fmt.Errorf("registry client is closed")
	}
	c.mu.RUnlock()

	prefix := fmt.Sprintf("/%s/planners/%s/", c.namespace, variant)

	out := make(chan []EndpointInfo, 1)

	initial, err := c.list(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out <- initial

	watchCh := c.client.Watch(ctx, prefix, clientv3.WithPrefix())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case resp, ok := <-watchCh:
				if !ok || resp.Canceled {
					return
				}
				current, err := c.list(ctx, prefix)
				if err != nil {
					continue
				}
				select {
				case out <- current:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close stops all lease renewals and closes the etcd connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	for id, cancelFn := range c.cancelFns {
		cancelFn()
		delete(c.cancelFns, id)
	}
	c.mu.Unlock()

	c.wg.Wait()
	return c.client.Close()
}

func (c *Client) list(ctx context.Context, prefix string) ([]EndpointInfo, error) {
	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to query registry: %w", err)
	}

	instances := make([]EndpointInfo, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var info EndpointInfo
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			// Skip entries written by incompatible versions.
			continue
		}
		instances = append(instances, info)
	}
	return instances, nil
}

// keepalive renews the lease every TTL/3 until its context is canceled.
func (c *Client) keepalive(ctx context.Context, leaseID clientv3.LeaseID) {
	defer c.wg.Done()

	interval := time.Duration(c.ttl) * time.Second / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			renewCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := c.client.KeepAliveOnce(renewCtx, leaseID)
			cancel()
			if err != nil {
				// Lease may already be revoked; stop renewing.
				if strings.Contains(err.Error(), "lease not found") {
					return
				}
			}
		}
	}
}

func (c *Client) buildKey(variant, name, instanceID string) string {
	return fmt.Sprintf("/%s/planners/%s/%s/%s", c.namespace, variant, name, instanceID)
}
