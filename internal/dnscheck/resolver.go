// Package dnscheck verifies DNS ownership and routing of external domains.
package dnscheck

import (
	"context"
	"net"
	"time"
)

// Resolver is the DNS lookup capability used by the verifier. Tests supply a
// fake; production uses NetResolver.
type Resolver interface {
	LookupTXT(ctx context.Context, host string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupA(ctx context.Context, host string) ([]string, error)
	LookupAAAA(ctx context.Context, host string) ([]string, error)
}

// NetResolver implements Resolver on top of the system resolver. Every lookup
// carries a bounded timeout so an unresponsive nameserver cannot hang a
// verification call.
type NetResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewNetResolver creates a NetResolver with the given per-lookup timeout.
func NewNetResolver(timeout time.Duration) *NetResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NetResolver{
		resolver: net.DefaultResolver,
		timeout:  timeout,
	}
}

func (r *NetResolver) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// LookupTXT resolves TXT records for host.
func (r *NetResolver) LookupTXT(ctx context.Context, host string) ([]string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.resolver.LookupTXT(ctx, host)
}

// LookupCNAME resolves the canonical name for host.
func (r *NetResolver) LookupCNAME(ctx context.Context, host string) (string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.resolver.LookupCNAME(ctx, host)
}

// LookupA resolves IPv4 addresses for host.
func (r *NetResolver) LookupA(ctx context.Context, host string) ([]string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	ips, err := r.resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		out = append(out, ip.String())
	}
	return out, nil
}

// LookupAAAA resolves IPv6 addresses for host.
func (r *NetResolver) LookupAAAA(ctx context.Context, host string) ([]string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	ips, err := r.resolver.LookupIP(ctx, "ip6", host)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		out = append(out, ip.String())
	}
	return out, nil
}
