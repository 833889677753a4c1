package genai

import (
	"context"
	"time"

	"github.com/garyellow/uni-assistant-go/internal/metrics"
)

// meteredGenerator records call counts and latency per provider and role.
type meteredGenerator struct {
	inner   Generator
	metrics *metrics.Metrics
}

// Instrument wraps gen so every call is recorded in m.
// A nil m returns gen unchanged.
func Instrument(gen Generator, m *metrics.Metrics) Generator {
	if gen == nil || m == nil {
		return gen
	}
	return &meteredGenerator{inner: gen, metrics: m}
}

func (g *meteredGenerator) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := g.inner.Generate(ctx, req)
	status := "success"
	if err != nil {
		status = string(ClassifyError(err))
	}
	g.metrics.RecordLLM(g.inner.Provider().String(), string(req.Options.Role), status, time.Since(start).Seconds())
	return out, err
}

func (g *meteredGenerator) Provider() Provider {
	return g.inner.Provider()
}
