// Package metrics provides metrics recording for LLM client operations.
package metrics

import (
	"context"
	"time"
)

// Recorder defines the interface for recording LLM operation metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, phase string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

type phaseKey struct{}

// WithPhase labels LLM calls made with ctx (plan, tasks, execute, review, ...).
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

// PhaseFrom returns the phase label attached to ctx, or "other".
func PhaseFrom(ctx context.Context) string {
	if p, ok := ctx.Value(phaseKey{}).(string); ok && p != "" {
		return p
	}
	return "other"
}
