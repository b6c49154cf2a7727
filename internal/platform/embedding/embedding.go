// Package embedding produces vector representations of note text for
// semantic search. Generation is best effort: a note is never rejected
// because its embedding could not be computed.
package embedding

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"
)

// Vectorizer computes a fixed-dimension embedding for a piece of text.
type Vectorizer interface {
	Vectorize(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

type job struct {
	ctx    context.Context
	text   string
	result chan []float32
}

// Generator serializes embedding work through a fixed pool of workers so a
// burst of note writes cannot fan out into unbounded concurrent model calls.
// The vectorizer itself is built lazily on first use; model initialization is
// too slow to pay at server startup.
type Generator struct {
	factory func() (Vectorizer, error)
	logger  zerolog.Logger
	workers int

	initOnce sync.Once
	vec      Vectorizer
	initErr  error
	jobs     chan job
}

// NewGenerator builds a Generator around a lazily-invoked vectorizer factory.
func NewGenerator(factory func() (Vectorizer, error), workers int, logger zerolog.Logger) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{
		factory: factory,
		logger:  logger.With().Str("component", "embedding").Logger(),
		workers: workers,
	}
}

func (g *Generator) init() {
	g.vec, g.initErr = g.factory()
	if g.initErr != nil {
		g.logger.Error().Err(g.initErr).Msg("embedding model initialization failed")
		return
	}
	g.jobs = make(chan job)
	for i := 0; i < g.workers; i++ {
		go g.worker()
	}
	g.logger.Info().Int("workers", g.workers).Int("dimensions", g.vec.Dimensions()).Msg("embedding model ready")
}

func (g *Generator) worker() {
	for j := range g.jobs {
		vec, err := g.vec.Vectorize(j.ctx, j.text)
		if err != nil {
			g.logger.Warn().Err(err).Msg("embedding generation failed")
			vec = nil
		}
		j.result <- vec
	}
}

// Embed returns the embedding for text, or nil when the model is
// uninitialized, the context expires, or the vectorizer fails. Callers treat
// nil as "no embedding": the note stays writable, it just will not match in
// semantic search.
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	g.initOnce.Do(g.init)
	if g.initErr != nil || ctx.Err() != nil {
		return nil
	}

	j := job{ctx: ctx, text: text, result: make(chan []float32, 1)}
	select {
	case g.jobs <- j:
	case <-ctx.Done():
		return nil
	}
	select {
	case vec := <-j.result:
		return vec
	case <-ctx.Done():
		return nil
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is empty, zero-norm, or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
