package coordinator

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"miseagent"
)

// Fallback sends each prompt to the primary model and, when that fails, once
// to the secondary.
type Fallback struct {
	primary   LLM
	secondary LLM
	used      metric.Int64Counter
}

func NewFallback(primary, secondary LLM) *Fallback {
	f := &Fallback{primary: primary, secondary: secondary}
	f.used, _ = otel.Meter(miseagent.TracerNameCoordinator).Int64Counter("llm_fallbacks_total",
		metric.WithDescription("Total number of model calls answered by the fallback provider"))
	return f
}

func (f *Fallback) Invoke(ctx context.Context, prompt Prompt) (Response, error) {
	res, err := f.primary.Invoke(ctx, prompt)
	if err == nil || f.secondary == nil {
		return res, err
	}
	if ctx.Err() != nil {
		return Response{}, err
	}

	slog.Warn("LLM_CLIENT: Primary model failed, trying fallback", "error", err)
	f.used.Add(ctx, 1)

	res, ferr := f.secondary.Invoke(ctx, prompt)
	if ferr != nil {
		return Response{}, errors.Join(err, ferr)
	}
	return res, nil
}
