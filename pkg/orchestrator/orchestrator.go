// Package orchestrator walks an ordered candidate list, invoking the
// completion gateway for each backend under a per-attempt deadline until one
// succeeds. Every attempt, successful or not, feeds the health registry, so
// circuit breakers advance as a side effect of real traffic.
//
// Attempts within one turn are strictly sequential. Parallel fan-out would
// multiply cost for no availability gain the breaker cooldown doesn't
// already provide.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"conversa-hq/orbit/pkg/config"
	"conversa-hq/orbit/pkg/gateway"
	"conversa-hq/orbit/pkg/health"
)

// Options carries per-turn dispatch parameters.
type Options struct {
	// Emergency tightens the per-attempt deadline.
	Emergency bool

	// ImageCount is the number of images on the turn, used for the vision
	// cost surcharge.
	ImageCount int
}

// Orchestrator dispatches turns across candidate backends.
type Orchestrator struct {
	cfg                  config.OrchestratorConfig
	backends             map[string]config.BackendConfig
	gateway              gateway.Gateway
	registry             *health.Registry
	visionTokensPerImage int
	logger               *slog.Logger
}

// New creates an orchestrator. visionTokensPerImage is the assumed vision
// token load per attached image, used when pricing completions on turns
// with images.
func New(cfg config.OrchestratorConfig, backends map[string]config.BackendConfig, gw gateway.Gateway, registry *health.Registry, visionTokensPerImage int) *Orchestrator {
	return &Orchestrator{
		cfg:                  cfg,
		backends:             backends,
		gateway:              gw,
		registry:             registry,
		visionTokensPerImage: visionTokensPerImage,
		logger:               slog.Default().With("component", "orchestrator"),
	}
}

// Dispatch tries each candidate in order and returns the first success.
// When every candidate fails or is rejected by its breaker, it returns an
// *AllFailedError listing each attempt. The context bounds the whole turn;
// each attempt additionally gets its own deadline.
func (o *Orchestrator) Dispatch(ctx context.Context, candidates []string, req *gateway.Request) (*Result, error) {
	return o.DispatchWithOptions(ctx, candidates, req, Options{})
}

// DispatchWithOptions is Dispatch with explicit per-turn options.
func (o *Orchestrator) DispatchWithOptions(ctx context.Context, candidates []string, req *gateway.Request, opts Options) (*Result, error) {
	attemptTimeout := o.cfg.AttemptTimeout
	if opts.Emergency {
		attemptTimeout = o.cfg.EmergencyAttemptTimeout
	}

	failed := make([]AttemptError, 0, len(candidates))

	for _, backend := range candidates {
		if err := ctx.Err(); err != nil {
			failed = append(failed, AttemptError{Backend: backend, Err: err, Skipped: true})
			continue
		}

		if !o.registry.Allow(backend) {
			o.logger.Debug("candidate rejected by breaker", "backend", backend)
			failed = append(failed, AttemptError{Backend: backend, Skipped: true})
			continue
		}

		backendCfg := o.backends[backend]
		attemptReq := *req
		attemptReq.Model = backendCfg.Model

		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		start := time.Now()
		completion, err := o.gateway.Complete(attemptCtx, backend, &attemptReq)
		latency := time.Since(start)
		cancel()

		if err != nil {
			o.registry.RecordFailure(backend, latency)
			o.logger.Warn("attempt failed",
				"backend", backend,
				"latency", latency,
				"timeout", gateway.IsTimeout(err),
				"error", err,
			)
			failed = append(failed, AttemptError{Backend: backend, Err: err, Latency: latency})
			continue
		}

		cost := backendCfg.Cost(completion.Usage.InputTokens, completion.Usage.OutputTokens) +
			backendCfg.VisionSurcharge(opts.ImageCount, o.visionTokensPerImage)

		o.registry.RecordSuccess(backend, latency, cost)
		o.logger.Info("attempt succeeded",
			"backend", backend,
			"latency", latency,
			"cost", cost,
			"failovers", len(failed),
		)

		return &Result{
			Text:         completion.Text,
			Backend:      backend,
			Cost:         cost,
			Latency:      latency,
			InputTokens:  completion.Usage.InputTokens,
			OutputTokens: completion.Usage.OutputTokens,
			Failures:     failed,
		}, nil
	}

	return nil, &AllFailedError{Attempts: failed}
}
