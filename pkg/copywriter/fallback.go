package copywriter

import (
	"context"
	"log/slog"

	"github.com/profepj/profepj/pkg/logger"
)

var _ Generator = (*Fallback)(nil)

// Fallback serves copy from the secondary generator when the primary fails.
type Fallback struct {
	primary   Generator
	secondary Generator
	log       *slog.Logger
}

func NewFallback(primary, secondary Generator, log *slog.Logger) *Fallback {
	if secondary == nil {
		secondary = Static{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, log: log.With(logger.Component("copywriter.fallback"))}
}

func (f *Fallback) HomeGreeting(ctx context.Context, in GreetingInput) (*Greeting, error) {
	if f.primary != nil {
		out, err := f.primary.HomeGreeting(ctx, in)
		if err == nil {
			return out, nil
		}
		f.warn(ctx, FlowGreeting, err)
	}
	return f.secondary.HomeGreeting(ctx, in)
}

func (f *Fallback) DopamineFeedback(ctx context.Context, in FeedbackInput) (*Feedback, error) {
	if f.primary != nil {
		out, err := f.primary.DopamineFeedback(ctx, in)
		if err == nil {
			return out, nil
		}
		f.warn(ctx, FlowFeedback, err)
	}
	return f.secondary.DopamineFeedback(ctx, in)
}

func (f *Fallback) DASAlert(ctx context.Context, in DASAlertInput) (*DASAlert, error) {
	if f.primary != nil {
		out, err := f.primary.DASAlert(ctx, in)
		if err == nil {
			return out, nil
		}
		f.warn(ctx, FlowDASAlert, err)
	}
	return f.secondary.DASAlert(ctx, in)
}

func (f *Fallback) warn(ctx context.Context, flow string, err error) {
	f.log.WarnContext(ctx, "serving fallback copy",
		slog.String("flow", flow),
		logger.Error(err))
}
