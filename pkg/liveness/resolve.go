package liveness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Resolver turns a hostname into one IPv4 address
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// DNSResolver queries A records directly and falls back to the system
// resolver when no nameserver answers.
type DNSResolver struct {
	client   *dns.Client
	servers  []string
	fallback *net.Resolver
}

// NewDNSResolver uses servers ("ip:port"), or the ones in /etc/resolv.conf
// when none are given.
func NewDNSResolver(timeout time.Duration, servers ...string) *DNSResolver {
	if len(servers) == 0 {
		servers = systemServers()
	}
	return &DNSResolver{
		client:   &dns.Client{Timeout: timeout},
		servers:  servers,
		fallback: net.DefaultResolver,
	}
}

func systemServers() []string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	return servers
}

var errNoSuchHost = errors.New("no such host")

// Resolve returns the first A record for host
func (r *DNSResolver) Resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	m := &dns.Msg{}
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil || resp == nil {
			lastErr = err
			continue
		}

		if resp.Rcode == dns.RcodeNameError {
			return "", errNoSuchHost
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%s from %s", dns.RcodeToString[resp.Rcode], server)
			continue
		}

		for _, ans := range resp.Answer {
			if a, ok := ans.(*dns.A); ok {
				return a.A.String(), nil
			}
		}
		return "", errors.New("no A record")
	}

	if r.fallback == nil {
		if lastErr == nil {
			lastErr = errors.New("no nameserver configured")
		}
		return "", lastErr
	}
	return r.lookupSystem(ctx, host)
}

func (r *DNSResolver) lookupSystem(ctx context.Context, host string) (string, error) {
	addrs, err := r.fallback.LookupIPAddr(ctx, host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return "", errNoSuchHost
		}
		return "", err
	}
	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", errors.New("no IPv4 address")
}
