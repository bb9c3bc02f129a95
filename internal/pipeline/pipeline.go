// Package pipeline chains the detection stages for one webhook delivery:
// pre-filter, normalize, rate limit, dedup, inference, proposal storage.
// Each delivery is an independent unit of work; all coordination between
// concurrent deliveries happens through the key-value store.
package pipeline

import (
	"context"
	"encoding/json"
	"log"

	"inboxpilot-backend/internal/dedup"
	"inboxpilot-backend/internal/metrics"
	"inboxpilot-backend/internal/normalize"
	"inboxpilot-backend/internal/prefilter"
	"inboxpilot-backend/internal/proposals"
	"inboxpilot-backend/internal/ratelimit"
)

const (
	ReasonMalformed   = "malformed payload"
	ReasonRateLimited = "Rate limit exceeded"
	ReasonDuplicate   = "Duplicate"
)

// TaskInferrer is the inference engine as the pipeline sees it.
type TaskInferrer interface {
	InferTask(ctx context.Context, msg *normalize.MessageContext) *proposals.TaskProposal
}

// Result describes the outcome of one delivery, in webhook-response terms.
type Result struct {
	Processed    bool
	Reason       string
	RateLimited  bool
	Remaining    int
	TaskDetected bool
	Proposal     *proposals.TaskProposal
}

type Pipeline struct {
	Limiter   *ratelimit.Limiter
	Dedup     *dedup.Deduplicator
	Inferrer  TaskInferrer
	Proposals *proposals.Store
	Metrics   *metrics.Recorder

	// AssistantName is matched as "@name" in channel messages.
	AssistantName string
}

// Process runs one delivery through every gate. A non-nil error means
// storage failed and the caller must answer 500: swallowing it would
// corrupt the rate-limit and dedup invariants. Everything else, including
// inference failure, resolves to a Result.
func (p *Pipeline) Process(ctx context.Context, app, entityID string, data json.RawMessage) (Result, error) {
	msg, decision := p.admit(app, data)
	if !decision.Proceed {
		log.Printf("[Pipeline] rejected (%s): %s", app, decision.Reason)
		p.count(ctx, entityID, metrics.OutcomeFiltered)
		return Result{Processed: false, Reason: decision.Reason}, nil
	}

	rl, err := p.Limiter.Check(ctx, entityID)
	if err != nil {
		return Result{}, err
	}
	if !rl.Allowed {
		log.Printf("[Pipeline] rate limited entity %s", entityID)
		p.count(ctx, entityID, metrics.OutcomeRateLimited)
		return Result{Processed: false, Reason: ReasonRateLimited, RateLimited: true, Remaining: rl.Remaining}, nil
	}

	hash := dedup.Hash(string(msg.Source), msg.Sender, msg.Content)
	seen, err := p.Dedup.HasSeen(ctx, hash)
	if err != nil {
		return Result{}, err
	}
	if seen {
		log.Printf("[Pipeline] duplicate message %s", hash)
		p.count(ctx, entityID, metrics.OutcomeDuplicate)
		return Result{Processed: false, Reason: ReasonDuplicate}, nil
	}
	// Marked before inference: a redelivery arriving while the model call
	// is in flight must not reach the model a second time.
	if err := p.Dedup.MarkSeen(ctx, hash); err != nil {
		return Result{}, err
	}

	proposal := p.Inferrer.InferTask(ctx, msg)
	if proposal == nil {
		p.count(ctx, entityID, metrics.OutcomeNoTask)
		return Result{Processed: true, TaskDetected: false}, nil
	}

	if err := p.Proposals.Append(ctx, entityID, proposal); err != nil {
		return Result{}, err
	}

	log.Printf("[Pipeline] stored proposal %s for entity %s", proposal.ProposalID, entityID)
	p.count(ctx, entityID, metrics.OutcomeProposalCreated)
	return Result{Processed: true, TaskDetected: true, Proposal: proposal}, nil
}

// admit parses the app-specific payload, runs its pre-filter and, on
// acceptance, returns the canonical message.
func (p *Pipeline) admit(app string, data json.RawMessage) (*normalize.MessageContext, prefilter.Decision) {
	switch app {
	case "slack":
		payload, err := normalize.ParseSlack(data)
		if err != nil {
			return nil, prefilter.Decision{Reason: ReasonMalformed}
		}
		if d := prefilter.CheckSlack(payload, p.AssistantName); !d.Proceed {
			return nil, d
		}
		msg, err := payload.Context()
		if err != nil {
			return nil, prefilter.Decision{Reason: ReasonMalformed}
		}
		return msg, prefilter.Decision{Proceed: true}

	case "gmail":
		payload, err := normalize.ParseGmail(data)
		if err != nil {
			return nil, prefilter.Decision{Reason: ReasonMalformed}
		}
		if d := prefilter.CheckGmail(payload); !d.Proceed {
			return nil, d
		}
		msg, err := payload.Context()
		if err != nil {
			return nil, prefilter.Decision{Reason: ReasonMalformed}
		}
		return msg, prefilter.Decision{Proceed: true}

	default:
		return nil, prefilter.Unknown()
	}
}

func (p *Pipeline) count(ctx context.Context, entityID, outcome string) {
	if p.Metrics != nil {
		p.Metrics.Record(ctx, entityID, outcome)
	}
}
