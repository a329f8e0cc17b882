package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JasonVinion/Pengu/internal/dialer"
	"github.com/JasonVinion/Pengu/internal/model"
	"github.com/JasonVinion/Pengu/internal/scheduler"
)

// Checker wires the protocol dialers, the anonymity classifier and the
// optional enrichment steps into per-endpoint tasks for the scheduler.
type Checker struct {
	cfg     model.Config
	probe   dialer.Probe
	timeout time.Duration
}

// New validates the run configuration. These are the only fatal errors in
// the system; everything past this point is captured per-endpoint.
func New(cfg model.Config) (*Checker, error) {
	probe, err := dialer.ParseProbe(cfg.ProbeTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid probe target: %w", err)
	}
	if cfg.TimeoutSeconds <= 0 {
		return nil, errors.New("per-endpoint timeout must be positive")
	}
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Ceiling > 0 && cfg.Concurrency > cfg.Ceiling {
		cfg.Concurrency = cfg.Ceiling
	}
	return &Checker{
		cfg:     cfg,
		probe:   probe,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

// Concurrency reports the worker count after clamping.
func (c *Checker) Concurrency() int { return c.cfg.Concurrency }

// RunBatch validates all endpoints under bounded concurrency and returns
// the result stream in completion order. Exactly one result is emitted
// per endpoint unless the context is cancelled mid-run.
func (c *Checker) RunBatch(ctx context.Context, endpoints []model.ProxyEndpoint) <-chan model.ProxyResult {
	// The scheduler's watchdog must cover every retry attempt.
	perTask := c.timeout * time.Duration(c.cfg.Retries)
	if c.cfg.CheckCapabilities {
		perTask += c.timeout
	}
	return scheduler.Run(ctx, endpoints, c.cfg.Concurrency, perTask, c.checkOne)
}

// checkOne attempts an endpoint up to cfg.Retries times, stopping at the
// first working attempt. The latency of that first success is kept.
func (c *Checker) checkOne(ctx context.Context, ep model.ProxyEndpoint) model.ProxyResult {
	var res model.ProxyResult
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		res = c.checkOnce(ctx, ep)
		if res.Status == model.StatusWorking || ctx.Err() != nil {
			break
		}
	}
	return res
}

func (c *Checker) checkOnce(ctx context.Context, ep model.ProxyEndpoint) model.ProxyResult {
	res := model.ProxyResult{
		Endpoint:  ep,
		Status:    model.StatusFailed,
		Anonymity: model.AnonymityUnknown,
	}

	d, ok := dialer.ForScheme(ep.Scheme)
	if !ok {
		res.Error = fmt.Sprintf("no dialer for scheme %q", ep.Scheme)
		return res
	}

	start := time.Now()
	out, derr := d.Dial(ctx, ep, c.probe, c.timeout)
	if derr != nil {
		if derr.Code == dialer.CodeTimeout {
			res.Status = model.StatusTimeout
		}
		res.Error = derr.Error()
		return res
	}
	if out.StatusCode != http.StatusOK {
		res.Error = fmt.Sprintf("probe target returned %d", out.StatusCode)
		return res
	}

	res.Status = model.StatusWorking
	res.LatencyMs = time.Since(start).Milliseconds()

	// A garbled echo downgrades classification, never the dial verdict.
	if echo, err := ParseEcho(out.Body); err == nil {
		res.ExitIP = echo.SeenIP()
		res.Anonymity = Classify(echo, c.cfg.RealClientIP)
	}

	if c.cfg.Resolver != nil && res.ExitIP != "" {
		if info, err := c.cfg.Resolver.Lookup(res.ExitIP); err == nil {
			res.Country = info.Country
			res.City = info.City
			res.ISP = info.ISP
		}
	}
	if res.ExitIP != "" {
		res.FraudScore = EstimateFraudScore(res.ExitIP, res.ISP)
	}

	if c.cfg.CheckCapabilities && ep.Scheme == model.SchemeSOCKS5 {
		res.Capabilities = probeCapabilities(ctx, ep, c.timeout)
	}

	return res
}

// DiscoverClientIP asks the probe target for our unproxied address. The
// answer feeds the transparent-proxy comparison in Classify.
func DiscoverClientIP(ctx context.Context, probeTarget string, timeout time.Duration) (string, error) {
	p, err := dialer.ParseProbe(probeTarget)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("http://%s%s", p.HostPort(), p.Path)

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(rctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reach probe target directly: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	echo, err := ParseEcho(body)
	if err != nil {
		return "", err
	}
	return echo.SeenIP(), nil
}
