package inference

import (
	"fmt"
	"strings"

	"inboxpilot-backend/internal/normalize"
)

// classificationPrompt asks for a single word so stage 1 stays cheap and
// leaves the invocation's time budget to stage 2.
func classificationPrompt(content string) string {
	return fmt.Sprintf(`Does the following message ask the recipient to do something, or is it just conversation?
Answer with exactly one word: "task" or "chat".

Message:
%s`, content)
}

// extractionSystemPrompt carries the confidence calibration and priority
// rules. currentDate lets the model resolve relative language like
// "by Friday" into a concrete ISO date.
func extractionSystemPrompt(currentDate string) string {
	return fmt.Sprintf(`You are a task detection assistant. Today's date is %s.

Analyze the message and decide whether it contains an actionable task for the recipient.

Confidence calibration:
- 0.8-1.0: direct request, explicit deadline, or clear assignment ("can you send the report by Friday")
- 0.5-0.8: indirect suggestion or question that implies action ("it would be great if someone looked at this")
- 0.3-0.5: vague or ambiguous mention of work
- below 0.3: purely informational, social chatter, or work that is already done

Priority rules:
- "high": the message signals urgency or a deadline within 24 hours
- "medium": a deadline within a week, or the request is explicit
- "low": everything else

When a deadline is mentioned with relative language ("tomorrow", "by Friday EOD", "next week"), resolve it to an ISO 8601 date using today's date.

Keep the title concise and actionable, under 80 characters.`, currentDate)
}

// extractionUserPrompt renders the normalized message with its context so
// the model can weigh sender and channel, not just the text.
func extractionUserPrompt(msg *normalize.MessageContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n", msg.Source)
	fmt.Fprintf(&b, "Sender: %s\n", msg.Sender)
	if msg.Timestamp != "" {
		fmt.Fprintf(&b, "Sent at: %s\n", msg.Timestamp)
	}
	if msg.Channel != "" {
		fmt.Fprintf(&b, "Channel: %s\n", msg.Channel)
	}
	if msg.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	}
	if msg.IsReply {
		b.WriteString("This message is a reply in an existing thread.\n")
	}
	b.WriteString("\nMessage:\n")
	b.WriteString(msg.Content)
	return b.String()
}
