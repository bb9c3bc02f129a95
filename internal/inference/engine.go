// Package inference runs the two-stage task detection: a cheap binary
// classification, then a structured extraction that produces a scored
// TaskProposal or nothing.
package inference

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"inboxpilot-backend/internal/normalize"
	"inboxpilot-backend/internal/proposals"
)

const (
	// DefaultThreshold is the minimum stage-2 confidence for a proposal.
	DefaultThreshold = 0.6

	// Stage 1 only sees the head of the message; the full content goes
	// to stage 2 and into the stored proposal snapshot.
	classifyMaxChars  = 500
	classifyMaxTokens = 10

	snapshotMaxChars = 1000
	titleMaxChars    = 80
)

// ModelClient is the slice of the AI client the engine needs. Tests
// substitute a fake.
type ModelClient interface {
	GenerateText(ctx context.Context, prompt string, maxTokens int32) (string, error)
	GenerateTaskExtraction(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error)
}

// ExtractedTask is the task payload of a stage-2 response.
type ExtractedTask struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Priority    string `json:"priority"`
	Reasoning   string `json:"reasoning,omitempty"`
}

// TaskExtraction is the full stage-2 response.
type TaskExtraction struct {
	IsTask     bool           `json:"is_task"`
	Confidence float64        `json:"confidence"`
	Task       *ExtractedTask `json:"task,omitempty"`
}

type Engine struct {
	model     ModelClient
	Threshold float64
	now       func() time.Time
}

func New(model ModelClient) *Engine {
	return &Engine{
		model:     model,
		Threshold: DefaultThreshold,
		now:       time.Now,
	}
}

// Classify is stage 1. It fails open: an error, an empty answer, or an
// answer we cannot parse all classify as "task" so stage 2 makes the
// real call. Silently dropping ambiguous input is the failure mode we
// care about, not a wasted extraction call.
func (e *Engine) Classify(ctx context.Context, content string) string {
	prompt := classificationPrompt(truncate(content, classifyMaxChars))

	resp, err := e.model.GenerateText(ctx, prompt, classifyMaxTokens)
	if err != nil {
		log.Printf("[TaskInference] classification call failed, defaulting to task: %v", err)
		return "task"
	}

	answer := strings.ToLower(strings.TrimSpace(resp))
	if answer == "" {
		log.Printf("[TaskInference] empty classification response, defaulting to task")
		return "task"
	}
	if strings.Contains(answer, "task") {
		return "task"
	}
	return "chat"
}

// Extract is stage 2. Unlike stage 1 it fails closed: any model or parse
// failure yields {is_task: false, confidence: 0} so a broken model call
// can never manufacture a proposal.
func (e *Engine) Extract(ctx context.Context, msg *normalize.MessageContext) TaskExtraction {
	system := extractionSystemPrompt(e.now().Format("Monday, January 2, 2006"))
	user := extractionUserPrompt(msg)

	raw, err := e.model.GenerateTaskExtraction(ctx, system, user)
	if err != nil {
		log.Printf("[TaskInference] extraction call failed: %v", err)
		return TaskExtraction{}
	}

	var ext TaskExtraction
	if err := json.Unmarshal(raw, &ext); err != nil {
		log.Printf("[TaskInference] unparseable extraction response: %v", err)
		return TaskExtraction{}
	}
	return ext
}

// InferTask runs both stages and returns a TaskProposal, or nil when the
// message is not a task worth proposing. Every rejection branch logs its
// reason: missed tasks are the primary quality metric, and without the
// logs they are invisible.
func (e *Engine) InferTask(ctx context.Context, msg *normalize.MessageContext) *proposals.TaskProposal {
	if label := e.Classify(ctx, msg.Content); label != "task" {
		log.Printf("[TaskInference] classified as chat, skipping extraction")
		return nil
	}

	ext := e.Extract(ctx, msg)
	if !ext.IsTask {
		log.Printf("[TaskInference] extraction says not a task (confidence %.2f)", ext.Confidence)
		return nil
	}
	if ext.Confidence < e.Threshold {
		log.Printf("[TaskInference] confidence %.2f below threshold %.2f, dropping", ext.Confidence, e.Threshold)
		return nil
	}
	if ext.Task == nil {
		log.Printf("[TaskInference] is_task without a task payload, dropping")
		return nil
	}

	proposal := &proposals.TaskProposal{
		ProposalID:  newProposalID(),
		Type:        proposals.TypeTask,
		Title:       truncate(ext.Task.Title, titleMaxChars),
		Description: ext.Task.Description,
		DueDate:     ext.Task.DueDate,
		Priority:    normalizePriority(ext.Task.Priority),
		Source:      string(msg.Source),
		Confidence:  clampConfidence(ext.Confidence),
		Reasoning:   ext.Task.Reasoning,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
		SourceContext: proposals.SourceContext{
			Channel:         msg.Channel,
			Subject:         msg.Subject,
			Sender:          msg.Sender,
			Timestamp:       msg.Timestamp,
			OriginalContent: truncate(msg.Content, snapshotMaxChars),
			MessageID:       msg.MessageID,
			ThreadID:        msg.ThreadID,
		},
	}

	log.Printf("[TaskInference] proposal %s: %q (confidence %.2f, priority %s)",
		proposal.ProposalID, proposal.Title, proposal.Confidence, proposal.Priority)
	return proposal
}

func newProposalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case proposals.PriorityLow:
		return proposals.PriorityLow
	case proposals.PriorityHigh:
		return proposals.PriorityHigh
	default:
		return proposals.PriorityMedium
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
