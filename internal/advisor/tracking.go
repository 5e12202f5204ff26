package advisor

import "context"

// usageTracker is the narrow view of session.Stats this package depends on,
// kept local so advisor never imports the session package directly.
type usageTracker interface {
	Track(promptTokens, completionTokens int, costUSD *float64)
}

// trackingAdvisor wraps an Advisor and records every successful call's
// token usage into a usageTracker. Failed calls are not tracked - the
// caller's fallback path already treats them as if the advisor were absent.
type trackingAdvisor struct {
	inner   Advisor
	tracker usageTracker
}

// NewTrackingAdvisor wraps inner so each successful Complete call also
// feeds the session's usage accumulator (spec's C11 Session Tracker).
func NewTrackingAdvisor(inner Advisor, tracker usageTracker) Advisor {
	return &trackingAdvisor{inner: inner, tracker: tracker}
}

func (t *trackingAdvisor) Complete(ctx context.Context, systemPrompt, userPrompt string) (Response, error) {
	resp, err := t.inner.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return resp, err
	}
	t.tracker.Track(resp.PromptTokens, resp.CompletionTokens, resp.CostUSD)
	return resp, nil
}
