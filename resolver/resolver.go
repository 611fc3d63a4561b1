package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/evanofslack/ddns-sync/metrics"
)

// ErrDiscoveryUnavailable means every configured discovery endpoint failed.
// Non-fatal; the next scheduled pass resolves again.
var ErrDiscoveryUnavailable = errors.New("no discovery endpoint reachable")

type Version string

const (
	IPv4 Version = "ipv4"
	IPv6 Version = "ipv6"
)

// Default endpoint lists, ordered by preference. IPv4 and IPv6 discovery use
// distinct lists since some services answer on one protocol only.
var (
	DefaultIPv4Endpoints = []string{
		"https://api.ipify.org",
		"https://ident.me",
		"https://ifconfig.me/ip",
	}
	DefaultIPv6Endpoints = []string{
		"https://api6.ipify.org",
		"https://ident.me",
		"https://ifconfig.me/ip",
	}
)

const (
	defaultAttemptTimeout = 5 * time.Second
	maxBodySize           = 256
)

// ResolvedAddress is the public address observed for one reconciliation pass,
// along with the endpoint that reported it. It is never reused across passes.
type ResolvedAddress struct {
	Addr   netip.Addr
	Source string
}

type Httper interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver discovers the caller's public address by querying plain-text echo
// services in order until one returns a valid address of the requested family.
type Resolver struct {
	endpoints map[Version][]string
	timeout   time.Duration
	http      Httper
	metrics   *metrics.Metrics
}

func New(ipv4, ipv6 []string, timeout time.Duration, m *metrics.Metrics) *Resolver {
	if len(ipv4) == 0 {
		ipv4 = DefaultIPv4Endpoints
	}
	if len(ipv6) == 0 {
		ipv6 = DefaultIPv6Endpoints
	}
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	return &Resolver{
		endpoints: map[Version][]string{IPv4: ipv4, IPv6: ipv6},
		timeout:   timeout,
		http:      &http.Client{},
		metrics:   m,
	}
}

// Resolve tries each endpoint for the requested version once, returning the
// first syntactically valid address. No endpoint is retried within a single
// call, which bounds worst-case latency to len(endpoints) * timeout.
func (r *Resolver) Resolve(ctx context.Context, version Version) (ResolvedAddress, error) {
	for _, endpoint := range r.endpoints[version] {
		addr, err := r.fetch(ctx, endpoint, version)
		if err != nil {
			r.metrics.IncResolveAttempt(string(version), false)
			slog.Debug("Discovery endpoint failed", "endpoint", endpoint, "version", version, "error", err)
			continue
		}
		r.metrics.IncResolveAttempt(string(version), true)
		slog.Debug("Resolved public address", "address", addr, "source", endpoint, "version", version)
		return ResolvedAddress{Addr: addr, Source: endpoint}, nil
	}
	return ResolvedAddress{}, fmt.Errorf("%w: %s, tried %d endpoints",
		ErrDiscoveryUnavailable, version, len(r.endpoints[version]))
}

func (r *Resolver) fetch(ctx context.Context, endpoint string, version Version) (netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return netip.Addr{}, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return netip.Addr{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return netip.Addr{}, fmt.Errorf("discovery request, status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("read discovery response, err=%w", err)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(string(body)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse address from %s, err=%w", endpoint, err)
	}
	if !matchesVersion(addr, version) {
		return netip.Addr{}, fmt.Errorf("address %s is not %s", addr, version)
	}
	return addr, nil
}

func matchesVersion(addr netip.Addr, version Version) bool {
	if version == IPv6 {
		return addr.Is6() && !addr.Is4In6()
	}
	return addr.Is4() || addr.Is4In6()
}
