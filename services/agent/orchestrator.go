// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/northshore-ai/breakwater/services/guard"
	"github.com/northshore-ai/breakwater/services/llm"
)

// ResponseCache stores final answers keyed by question. Implementations live
// in services/cache; a nil cache disables caching.
type ResponseCache interface {
	Get(ctx context.Context, question string) (answer string, ok bool, err error)
	Set(ctx context.Context, question, answer string) error
}

// Dependencies carries every collaborator the Orchestrator needs. Cache is
// optional; all other fields are required. There is no hidden global state.
type Dependencies struct {
	Blocker   *guard.Blocker
	Judge     *guard.Judge
	Redactor  *guard.Redactor
	Router    *Router
	Retrieval *RetrievalResponder
	General   *GeneralResponder
	Cache     ResponseCache
	Retry     RetryPolicy
}

// Orchestrator drives one request through the guardrail pipeline:
//
//	pattern scan -> semantic judge -> input redaction -> intent routing ->
//	generation -> output redaction
//
// # Description
//
// The pipeline is fail-closed on security (a judge that cannot be reached
// blocks the request) and fail-soft on redaction (a redaction service that
// cannot be reached replaces text with a placeholder). Stages within one
// request run strictly sequentially; across requests the Orchestrator is
// stateless and safe for concurrent use.
//
// # Outputs
//
// A blocked request returns the fixed refusal message as a normal response,
// never as an error. Errors are reserved for genuine failures: an intent
// router or responder that stays down after retries.
type Orchestrator struct {
	deps Dependencies
}

// NewOrchestrator validates and captures the dependency set.
func NewOrchestrator(deps Dependencies) (*Orchestrator, error) {
	if deps.Blocker == nil || deps.Judge == nil || deps.Redactor == nil ||
		deps.Router == nil || deps.Retrieval == nil || deps.General == nil {
		return nil, fmt.Errorf("orchestrator dependencies are incomplete")
	}
	if deps.Retry.MaxAttempts == 0 {
		deps.Retry = DefaultRetryPolicy()
	}
	return &Orchestrator{deps: deps}, nil
}

// screen runs the two security tiers and input redaction. It returns the
// redacted question, or blocked=true when the request must be refused.
func (o *Orchestrator) screen(ctx context.Context, st *pipelineState) (blocked bool, err error) {
	// Tier 1: pattern scan. Instant, no external calls.
	if finding := o.deps.Blocker.Scan(st.Question); finding != nil {
		st.State = StateBlocked
		return true, nil
	}
	st.State = StatePatternChecked

	// Tier 2: semantic judge. Retried; an exhausted or permanent failure
	// folds into a block. An inability to evaluate safety is never safety.
	judgeBlocked, err := DoValue(ctx, o.deps.Retry, "security_judge",
		func(ctx context.Context) (bool, error) {
			return o.deps.Judge.Classify(ctx, st.Question)
		})
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		slog.Error("Security judge unavailable, failing closed", "error", err)
		st.State = StateBlocked
		return true, nil
	}
	if judgeBlocked {
		st.State = StateBlocked
		return true, nil
	}
	st.State = StateJudged

	st.SafeQuestion = o.deps.Redactor.Redact(ctx, st.Question)
	st.State = StateRedactedIn
	return false, nil
}

// route classifies the redacted question. Router failures propagate; there is
// no safe default route.
func (o *Orchestrator) route(ctx context.Context, st *pipelineState) error {
	intent, err := DoValue(ctx, o.deps.Retry, "intent_router",
		func(ctx context.Context) (Intent, error) {
			return o.deps.Router.Classify(ctx, st.SafeQuestion)
		})
	if err != nil {
		return err
	}
	st.Intent = intent
	st.State = StateRouted
	return nil
}

// Invoke runs the full pipeline synchronously and returns the redacted
// answer, or the fixed refusal message for a blocked request.
func (o *Orchestrator) Invoke(ctx context.Context, message, sessionID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Invoke")
	defer span.End()
	span.SetAttributes(attribute.String("agent.session_id", sessionID))

	st := pipelineState{SessionID: sessionID, Question: message, State: StateReceived}

	blocked, err := o.screen(ctx, &st)
	if err != nil {
		return "", err
	}
	if blocked {
		span.SetAttributes(attribute.Bool("agent.blocked", true))
		return guard.RefusalMessage, nil
	}

	if err := o.route(ctx, &st); err != nil {
		span.RecordError(err)
		return "", err
	}

	// General answers carry no session context, so a cached one is correct
	// for every caller. Retrieval answers depend on per-session history and
	// a mutable knowledge base and are never cached. Cache failures are
	// treated as misses.
	cacheable := st.Intent == IntentGeneral && o.deps.Cache != nil
	if cacheable {
		cached, ok, err := o.deps.Cache.Get(ctx, st.SafeQuestion)
		if err != nil {
			slog.Warn("Response cache read failed", "error", err)
		} else if ok {
			span.SetAttributes(attribute.Bool("agent.cache_hit", true))
			st.State = StateDone
			return cached, nil
		}
	}

	answer, err := DoValue(ctx, o.deps.Retry, "responder",
		func(ctx context.Context) (string, error) {
			if st.Intent == IntentRetrieval {
				return o.deps.Retrieval.Respond(ctx, st.SessionID, st.SafeQuestion)
			}
			return o.deps.General.Respond(ctx, st.SafeQuestion)
		})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	st.Answer = answer
	st.State = StateResponded

	out := o.deps.Redactor.Redact(ctx, st.Answer)
	st.State = StateRedactedOut

	if cacheable {
		// Stored post-redaction, so a hit can be returned as-is.
		if err := o.deps.Cache.Set(ctx, st.SafeQuestion, out); err != nil {
			slog.Warn("Response cache write failed", "error", err)
		}
	}

	st.State = StateDone
	span.SetAttributes(attribute.String("agent.intent", st.Intent.String()))
	return out, nil
}

// Stream runs the pipeline with streamed emission. A blocked request emits
// the refusal message exactly once and stops. The generation call itself is
// not retried: once tokens have been emitted the stream cannot be restarted.
// Output fragments are emitted as generated, without incremental redaction;
// input redaction still applies in full. The response cache is bypassed:
// streaming exists for live token delivery, not replay.
func (o *Orchestrator) Stream(ctx context.Context, message, sessionID string,
	emit func(token string) error) error {

	ctx, span := tracer.Start(ctx, "Orchestrator.Stream")
	defer span.End()
	span.SetAttributes(attribute.String("agent.session_id", sessionID))

	st := pipelineState{SessionID: sessionID, Question: message, State: StateReceived}

	blocked, err := o.screen(ctx, &st)
	if err != nil {
		return err
	}
	if blocked {
		span.SetAttributes(attribute.Bool("agent.blocked", true))
		return emit(guard.RefusalMessage)
	}

	if err := o.route(ctx, &st); err != nil {
		span.RecordError(err)
		return err
	}

	callback := func(event llm.StreamEvent) error {
		if event.Type != llm.StreamEventToken {
			return nil
		}
		return emit(event.Content)
	}
	if st.Intent == IntentRetrieval {
		err = o.deps.Retrieval.RespondStream(ctx, st.SessionID, st.SafeQuestion, callback)
	} else {
		err = o.deps.General.RespondStream(ctx, st.SafeQuestion, callback)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	st.State = StateDone
	return nil
}
