/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	"context"

	"go.uber.org/zap"
)

// Outcome is what a Stage decided about a candidate.
type Outcome int

const (
	// Continue defers the decision to the next stage.
	Continue Outcome = iota
	Accepted
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "continue"
	}
}

// Result is a stage decision.
type Result struct {
	Outcome Outcome
	Stage   string
	Match   string
	Reason  error
}

// Stage is one step of the classification pipeline.
type Stage interface {
	Name() string
	Evaluate(ctx context.Context, raw string) Result
}

// LocalStage accepts names found in the gazetteer.
type LocalStage struct {
	Gazetteer *Gazetteer
}

func (LocalStage) Name() string { return "local" }

func (s LocalStage) Evaluate(_ context.Context, raw string) Result {
	if canonical, ok := s.Gazetteer.Lookup(raw); ok {
		return Result{Outcome: Accepted, Match: canonical}
	}

	return Result{Outcome: Continue}
}

// MononymGateStage rejects single words that cannot be a known mononym,
// before any network traffic.
type MononymGateStage struct {
	Gazetteer *Gazetteer
}

func (MononymGateStage) Name() string { return "mononym-gate" }

func (s MononymGateStage) Evaluate(_ context.Context, raw string) Result {
	if s.Gazetteer.IsAdmissibleSingleName(raw) {
		return Result{Outcome: Continue}
	}

	return Result{Outcome: Rejected, Reason: ErrInputRejected}
}

// ExternalStage defers to an ExternalClassifier. It always decides.
type ExternalStage struct {
	Classifier *ExternalClassifier
}

func (ExternalStage) Name() string { return "external" }

func (s ExternalStage) Evaluate(ctx context.Context, raw string) Result {
	v := s.Classifier.Classify(ctx, raw)
	if v.Valid {
		return Result{Outcome: Accepted, Match: v.Match}
	}

	return Result{Outcome: Rejected, Reason: v.Reason}
}

// Pipeline folds a candidate over its stages, stopping at the first stage
// that does not return Continue.
type Pipeline struct {
	stages []Stage
	logger *zap.Logger
}

func NewPipeline(logger *zap.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		stages: stages,
		logger: logger,
	}
}

// NewDefaultPipeline wires the gazetteer lookup, the mononym gate and the
// external classifier in that order.
func NewDefaultPipeline(g *Gazetteer, source Encyclopedia, opts ...Option) *Pipeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return NewPipeline(o.logger,
		LocalStage{Gazetteer: g},
		MononymGateStage{Gazetteer: g},
		ExternalStage{Classifier: NewExternalClassifier(g, source, opts...)},
	)
}

// Classify returns the first decisive stage result. A candidate that every
// stage passes over is rejected, as is one with no letters left once
// normalized.
func (p *Pipeline) Classify(ctx context.Context, raw string) Result {
	if Normalize(raw) == "" {
		return Result{Outcome: Rejected, Stage: "blank", Reason: ErrInputRejected}
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return Result{Outcome: Rejected, Stage: stage.Name(), Reason: err}
		}

		res := stage.Evaluate(ctx, raw)
		if res.Outcome == Continue {
			continue
		}

		res.Stage = stage.Name()

		p.logger.Debug("classified",
			zap.String("name", raw),
			zap.String("stage", res.Stage),
			zap.Stringer("outcome", res.Outcome),
			zap.String("match", res.Match),
		)

		return res
	}

	return Result{Outcome: Rejected, Reason: ErrInputRejected}
}

// Verdict flattens a Result into a Verdict.
func (r Result) Verdict() Verdict {
	return Verdict{
		Valid:  r.Outcome == Accepted,
		Match:  r.Match,
		Reason: r.Reason,
	}
}
