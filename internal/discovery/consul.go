package discovery

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"

	consul "github.com/hashicorp/consul/api"
)

const ttlCheck = 5 * time.Second

// Consul is a Resolver and Registry backed by a Consul agent.
type Consul struct {
	client *consul.Client
}

// NewConsul connects to the Consul agent at addr.
func NewConsul(addr string) (*Consul, error) {
	cfg := consul.DefaultConfig()
	cfg.Address = addr
	client, err := consul.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	return &Consul{client: client}, nil
}

// Register creates a service record with a TTL health check.
func (c *Consul) Register(ctx context.Context, instanceID, serviceName, hostPort string) error {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return fmt.Errorf("invalid host:port %q: %w", hostPort, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return c.client.Agent().ServiceRegisterOpts(&consul.AgentServiceRegistration{
		ID:      instanceID,
		Name:    serviceName,
		Address: host,
		Port:    port,
		Check: &consul.AgentServiceCheck{
			CheckID:                        checkID(instanceID),
			TTL:                            ttlCheck.String(),
			DeregisterCriticalServiceAfter: "1m",
		},
	}, consul.ServiceRegisterOpts{}.WithContext(ctx))
}

// Deregister removes a service record.
func (c *Consul) Deregister(ctx context.Context, instanceID, _ string) error {
	return c.client.Agent().ServiceDeregisterOpts(instanceID, (&consul.QueryOptions{}).WithContext(ctx))
}

// ReportHealthyState passes the TTL check of an instance.
func (c *Consul) ReportHealthyState(instanceID, _ string) error {
	return c.client.Agent().UpdateTTL(checkID(instanceID), "", consul.HealthPassing)
}

// Resolve picks a random healthy instance of serviceName.
func (c *Consul) Resolve(ctx context.Context, serviceName string) (string, error) {
	entries, _, err := c.client.Health().Service(serviceName, "", true, (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("query consul for %s: %w", serviceName, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, serviceName)
	}
	entry := entries[rand.Intn(len(entries))]
	host := entry.Service.Address
	if host == "" {
		host = entry.Node.Address
	}
	return BaseURL(net.JoinHostPort(host, strconv.Itoa(entry.Service.Port))), nil
}

// Heartbeat reports healthy state every interval until ctx is done.
func Heartbeat(ctx context.Context, registry Registry, instanceID, serviceName string, interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := registry.ReportHealthyState(instanceID, serviceName); err != nil && onErr != nil {
			onErr(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func checkID(instanceID string) string {
	return "service:" + instanceID
}
