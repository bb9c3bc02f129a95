package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxpilot-backend/internal/dedup"
	"inboxpilot-backend/internal/kv"
	"inboxpilot-backend/internal/metrics"
	"inboxpilot-backend/internal/normalize"
	"inboxpilot-backend/internal/proposals"
	"inboxpilot-backend/internal/ratelimit"
)

// fakeInferrer returns a canned proposal and counts invocations.
type fakeInferrer struct {
	proposal *proposals.TaskProposal
	calls    int
}

func (f *fakeInferrer) InferTask(_ context.Context, _ *normalize.MessageContext) *proposals.TaskProposal {
	f.calls++
	return f.proposal
}

func detected() *proposals.TaskProposal {
	return &proposals.TaskProposal{
		ProposalID: "abc12345",
		Type:       proposals.TypeTask,
		Title:      "Review the Q1 deck",
		Priority:   proposals.PriorityHigh,
		Source:     "slack",
		Confidence: 0.85,
	}
}

func newTestPipeline(store kv.Store, inf TaskInferrer) *Pipeline {
	return &Pipeline{
		Limiter:       ratelimit.New(store),
		Dedup:         dedup.New(store),
		Inferrer:      inf,
		Proposals:     proposals.NewStore(store),
		Metrics:       metrics.NewRecorder(store),
		AssistantName: "assistant",
	}
}

func slackDM(text string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{
		"text":         text,
		"user":         "U123",
		"channel":      "D456",
		"channel_type": "im",
		"ts":           "1717243200.000100",
	})
	return b
}

func TestProcessStoresProposal(t *testing.T) {
	store := kv.NewMemory()
	inf := &fakeInferrer{proposal: detected()}
	p := newTestPipeline(store, inf)

	res, err := p.Process(context.Background(), "slack", "e1", slackDM("can you review the Q1 deck by Friday EOD"))
	require.NoError(t, err)
	assert.True(t, res.Processed)
	assert.True(t, res.TaskDetected)
	require.NotNil(t, res.Proposal)
	assert.Equal(t, "abc12345", res.Proposal.ProposalID)

	list, err := p.Proposals.List(context.Background(), "e1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestProcessNoTaskDetected(t *testing.T) {
	store := kv.NewMemory()
	p := newTestPipeline(store, &fakeInferrer{proposal: nil})

	res, err := p.Process(context.Background(), "slack", "e1", slackDM("sounds good, thanks!"))
	require.NoError(t, err)
	assert.True(t, res.Processed)
	assert.False(t, res.TaskDetected)
	assert.Nil(t, res.Proposal)
}

func TestProcessPrefilterRejectsBeforeInference(t *testing.T) {
	store := kv.NewMemory()
	inf := &fakeInferrer{proposal: detected()}
	p := newTestPipeline(store, inf)

	payload, _ := json.Marshal(map[string]any{
		"sender":  "noreply@service.com",
		"subject": "Weekly summary",
		"body":    "Here is your digest",
	})

	res, err := p.Process(context.Background(), "gmail", "e1", payload)
	require.NoError(t, err)
	assert.False(t, res.Processed)
	assert.Equal(t, "Automated/newsletter email", res.Reason)
	assert.Equal(t, 0, inf.calls)
}

func TestProcessUnknownApp(t *testing.T) {
	store := kv.NewMemory()
	p := newTestPipeline(store, &fakeInferrer{})

	res, err := p.Process(context.Background(), "linear", "e1", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, res.Processed)
	assert.Equal(t, "unknown app", res.Reason)
}

func TestProcessMalformedPayload(t *testing.T) {
	store := kv.NewMemory()
	p := newTestPipeline(store, &fakeInferrer{})

	res, err := p.Process(context.Background(), "slack", "e1", json.RawMessage(`"not an object"`))
	require.NoError(t, err)
	assert.False(t, res.Processed)
	assert.Equal(t, ReasonMalformed, res.Reason)
}

func TestProcessRateLimit(t *testing.T) {
	store := kv.NewMemory()
	inf := &fakeInferrer{proposal: nil}
	p := newTestPipeline(store, inf)

	for i := 0; i < ratelimit.DefaultMaxRequests; i++ {
		res, err := p.Process(context.Background(), "slack", "e1", slackDM(fmt.Sprintf("message %d", i)))
		require.NoError(t, err)
		assert.True(t, res.Processed, "delivery %d should pass", i)
	}

	res, err := p.Process(context.Background(), "slack", "e1", slackDM("one too many"))
	require.NoError(t, err)
	assert.False(t, res.Processed)
	assert.True(t, res.RateLimited)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, ratelimit.DefaultMaxRequests, inf.calls)
}

func TestProcessDuplicateRedelivery(t *testing.T) {
	store := kv.NewMemory()
	inf := &fakeInferrer{proposal: detected()}
	p := newTestPipeline(store, inf)

	payload := slackDM("can you review the Q1 deck by Friday EOD")

	res, err := p.Process(context.Background(), "slack", "e1", payload)
	require.NoError(t, err)
	assert.True(t, res.Processed)
	require.Equal(t, 1, inf.calls)

	// At-least-once redelivery of the identical event.
	res, err = p.Process(context.Background(), "slack", "e1", payload)
	require.NoError(t, err)
	assert.False(t, res.Processed)
	assert.Equal(t, ReasonDuplicate, res.Reason)
	assert.Equal(t, 1, inf.calls, "redelivery must not reach the model")

	list, err := p.Proposals.List(context.Background(), "e1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1, "redelivery must not duplicate the proposal")
}

func TestProcessTenantsDoNotShareLimits(t *testing.T) {
	store := kv.NewMemory()
	p := newTestPipeline(store, &fakeInferrer{})

	for i := 0; i < ratelimit.DefaultMaxRequests; i++ {
		_, err := p.Process(context.Background(), "slack", "e1", slackDM(fmt.Sprintf("message %d", i)))
		require.NoError(t, err)
	}

	res, err := p.Process(context.Background(), "slack", "e2", slackDM("fresh tenant"))
	require.NoError(t, err)
	assert.True(t, res.Processed)
}
