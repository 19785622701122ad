package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/goodmovies/internal/discovery"
	"github.com/Clark-Hu/goodmovies/internal/logging"
)

var (
	// ErrNotFound is returned when an upstream answers 404.
	ErrNotFound = errors.New("upstream: not found")
	// ErrEmptyResponse is returned when an upstream answers 2xx without a usable body.
	ErrEmptyResponse = errors.New("upstream: empty response")
)

const maxErrorBody = 4 << 10

// StatusError reports an unexpected upstream status code.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d: %s", e.Service, e.StatusCode, e.Body)
}

// NewHTTPClient builds the http.Client shared by upstream clients.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// jsonGetter resolves a logical service per call and issues JSON GET requests against it.
type jsonGetter struct {
	service  string
	resolver discovery.Resolver
	client   *http.Client
	logger   *zap.Logger
}

func newJSONGetter(service string, resolver discovery.Resolver, client *http.Client, logger *zap.Logger) jsonGetter {
	if client == nil {
		client = NewHTTPClient(5 * time.Second)
	}
	return jsonGetter{
		service:  service,
		resolver: resolver,
		client:   client,
		logger:   logging.OrNop(logger).With(zap.String("upstream", service)),
	}
}

// get fetches base+path and decodes the JSON body into dst.
func (g jsonGetter) get(ctx context.Context, path string, dst any) error {
	base, err := g.resolver.Resolve(ctx, g.service)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", g.service, err)
	}
	endpoint, err := url.Parse(base + path)
	if err != nil {
		return fmt.Errorf("build %s url: %w", g.service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	g.logger.Debug("calling upstream", zap.String("url", endpoint.String()))
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", g.service, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		g.logger.Warn("unexpected upstream status", zap.Int("status", resp.StatusCode), zap.String("path", path))
		return &StatusError{Service: g.service, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", g.service, err)
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", g.service, err)
	}
	return nil
}
