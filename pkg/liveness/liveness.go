package liveness

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/who0xac/reconify/pkg/logging"
)

// ResolutionError means a subdomain did not resolve
type ResolutionError struct {
	Subdomain string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("Subdomain %s unresolvable: %v", e.Subdomain, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ConnectivityError means a resolved subdomain failed the HTTP/TCP check
type ConnectivityError struct {
	Subdomain string
	IP        string
	Reason    string
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("Subdomain %s (%s) failed HTTP/TCP check: %s", e.Subdomain, e.IP, e.Reason)
}

// ErrNotChecked marks candidates whose check was cut short by the context
var ErrNotChecked = errors.New("not checked")

// Result is the verdict for one candidate
type Result struct {
	Subdomain string
	IP        string
	Err       error
}

// Kept reports whether the subdomain resolved and passed the probe
func (r Result) Kept() bool {
	return r.Err == nil && r.IP != ""
}

// Checked reports whether the verdict is real. An unchecked candidate says
// nothing about the subdomain and must not be recorded as dead.
func (r Result) Checked() bool {
	return !errors.Is(r.Err, ErrNotChecked)
}

// Prober checks that a host answers on the web port
type Prober interface {
	Probe(ctx context.Context, host string) error
}

// WebProber issues GET http://host/ without following redirects and accepts
// only 200 and 301, then confirms a raw TCP connect on the same port.
type WebProber struct {
	Port    int
	client  *http.Client
	dialer  *net.Dialer
	timeout time.Duration
}

// NewWebProber creates a prober for port 80
func NewWebProber(timeout time.Duration) *WebProber {
	return &WebProber{
		Port: 80,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
				},
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		dialer:  &net.Dialer{Timeout: timeout},
		timeout: timeout,
	}
}

// Probe returns nil when host is live
func (p *WebProber) Probe(ctx context.Context, host string) error {
	addr := host
	if p.Port != 80 {
		addr = net.JoinHostPort(host, strconv.Itoa(p.Port))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/", nil)
	if err != nil {
		return fmt.Errorf("HTTP error: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP error: %v", err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMovedPermanently {
		return fmt.Errorf("HTTP status code %d", resp.StatusCode)
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(p.Port)))
	if err != nil {
		return fmt.Errorf("TCP error: %v", err)
	}
	conn.Close()
	return nil
}

// Options configures a Checker
type Options struct {
	Workers int
	Rate    float64
	Logger  logrus.FieldLogger
}

// Checker filters candidate subdomains on a bounded, rate-limited pool
type Checker struct {
	resolver Resolver
	prober   Prober
	workers  int
	limiter  *rate.Limiter
	log      logrus.FieldLogger
}

// NewChecker creates a Checker. A rate of 0 disables pacing.
func NewChecker(resolver Resolver, prober Prober, opts Options) *Checker {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Checker{
		resolver: resolver,
		prober:   prober,
		workers:  workers,
		limiter:  rate.NewLimiter(limit, workers),
		log:      log,
	}
}

// Check returns one Result per candidate, in input order
func (c *Checker) Check(ctx context.Context, subdomains []string) []Result {
	results := make([]Result, len(subdomains))

	g := new(errgroup.Group)
	g.SetLimit(c.workers)

	for i, sub := range subdomains {
		i, sub := i, sub
		g.Go(func() error {
			results[i] = c.checkOne(ctx, sub)
			return nil
		})
	}
	g.Wait()

	return results
}

func (c *Checker) checkOne(ctx context.Context, sub string) Result {
	res := Result{Subdomain: sub}

	if err := c.limiter.Wait(ctx); err != nil {
		res.Err = notChecked(ctx, err)
		return res
	}

	ip, err := c.resolver.Resolve(ctx, sub)
	if ctx.Err() != nil {
		res.Err = notChecked(ctx, err)
		return res
	}
	if err != nil {
		res.Err = &ResolutionError{Subdomain: sub, Err: err}
		c.log.Debugf("%s: %v", sub, err)
		return res
	}
	res.IP = ip

	if err := c.prober.Probe(ctx, sub); err != nil {
		if ctx.Err() != nil {
			res.Err = notChecked(ctx, err)
			return res
		}
		res.Err = &ConnectivityError{Subdomain: sub, IP: ip, Reason: err.Error()}
		c.log.Debugf("%s (%s): %v", sub, ip, err)
		return res
	}

	c.log.Debugf("%s (%s) is live", sub, ip)
	return res
}

func notChecked(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return fmt.Errorf("%w: %v", ErrNotChecked, err)
}
