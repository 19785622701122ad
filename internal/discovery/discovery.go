package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no healthy address is known for a service.
var ErrNotFound = errors.New("discovery: no service addresses found")

// Resolver maps a logical service name to the base URL of one of its instances.
type Resolver interface {
	Resolve(ctx context.Context, serviceName string) (string, error)
}

// Registry is implemented by discovery backends that services can register with.
type Registry interface {
	Register(ctx context.Context, instanceID, serviceName, hostPort string) error
	Deregister(ctx context.Context, instanceID, serviceName string) error
	ReportHealthyState(instanceID, serviceName string) error
}

// GenerateInstanceID returns a unique instance id for serviceName.
func GenerateInstanceID(serviceName string) string {
	return fmt.Sprintf("%s-%s", serviceName, uuid.NewString())
}

// BaseURL turns a host:port or URL into a base URL without a trailing slash.
func BaseURL(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if addr == "" {
		return ""
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return addr
}

// Static resolves service names from a fixed table.
type Static struct {
	addrs map[string]string
}

// NewStatic builds a Static resolver; addresses may be host:port or full URLs.
func NewStatic(addrs map[string]string) *Static {
	table := make(map[string]string, len(addrs))
	for name, addr := range addrs {
		table[name] = BaseURL(addr)
	}
	return &Static{addrs: table}
}

// Resolve returns the configured base URL for serviceName.
func (s *Static) Resolve(_ context.Context, serviceName string) (string, error) {
	addr, ok := s.addrs[serviceName]
	if !ok || addr == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, serviceName)
	}
	return addr, nil
}
