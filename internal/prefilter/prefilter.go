// Package prefilter is the zero-cost gate in front of the inference
// stages: a deterministic accept/reject decision per inbound message,
// taken before any paid model call.
package prefilter

import (
	"strings"

	"inboxpilot-backend/internal/normalize"
)

// Decision is the gate outcome. Reason is set only on rejection and is the
// string surfaced in webhook responses and logs.
type Decision struct {
	Proceed bool
	Reason  string
}

const (
	ReasonEmptyMessage   = "empty message"
	ReasonBotMessage     = "bot message"
	ReasonNoMention      = "channel message without mention"
	ReasonAutomatedEmail = "Automated/newsletter email"
	ReasonUnknownApp     = "unknown app"
)

// Sender substrings that mark automated mail. Matched case-insensitively.
var automatedSenders = []string{
	"no-reply",
	"noreply",
	"do-not-reply",
	"donotreply",
	"notification",
	"mailer-daemon",
	"postmaster",
	"newsletter",
	"marketing@",
	"updates@",
}

// Gmail category labels for promotional/social mail.
var promotionalLabels = []string{
	"CATEGORY_PROMOTIONS",
	"CATEGORY_SOCIAL",
}

// Slack broadcast mention tokens.
var broadcastMentions = []string{
	"<!here>",
	"<!channel>",
	"<!everyone>",
}

// CheckSlack admits direct (one-to-one) conversations and channel messages
// that explicitly mention the assistant. assistantName is matched as a
// literal "@name" substring; this is a heuristic and deliberately stays one.
func CheckSlack(p *normalize.SlackPayload, assistantName string) Decision {
	if strings.TrimSpace(p.Text) == "" {
		return Decision{Proceed: false, Reason: ReasonEmptyMessage}
	}
	if p.BotID != "" || p.Subtype == "bot_message" {
		return Decision{Proceed: false, Reason: ReasonBotMessage}
	}
	if p.ChannelType == "im" {
		return Decision{Proceed: true}
	}
	if mentionsAssistant(p.Text, assistantName) {
		return Decision{Proceed: true}
	}
	return Decision{Proceed: false, Reason: ReasonNoMention}
}

func mentionsAssistant(text, assistantName string) bool {
	lower := strings.ToLower(text)
	if assistantName != "" && strings.Contains(lower, "@"+strings.ToLower(assistantName)) {
		return true
	}
	// Platform-native user mention syntax: <@U123ABC>.
	if strings.Contains(text, "<@") {
		return true
	}
	for _, b := range broadcastMentions {
		if strings.Contains(text, b) {
			return true
		}
	}
	return false
}

// CheckGmail rejects automated and bulk mail before it costs anything:
// no-reply style senders, unsubscribe subjects, promotional/social labels.
func CheckGmail(p *normalize.GmailPayload) Decision {
	sender := strings.ToLower(p.Sender)
	for _, marker := range automatedSenders {
		if strings.Contains(sender, marker) {
			return Decision{Proceed: false, Reason: ReasonAutomatedEmail}
		}
	}

	if strings.Contains(strings.ToLower(p.Subject), "unsubscribe") {
		return Decision{Proceed: false, Reason: ReasonAutomatedEmail}
	}

	for _, label := range p.Labels {
		for _, promo := range promotionalLabels {
			if strings.EqualFold(label, promo) {
				return Decision{Proceed: false, Reason: ReasonAutomatedEmail}
			}
		}
	}

	return Decision{Proceed: true}
}

// Unknown rejects payloads from apps the pipeline does not understand.
func Unknown() Decision {
	return Decision{Proceed: false, Reason: ReasonUnknownApp}
}
