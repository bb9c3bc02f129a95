// Package normalize maps heterogeneous inbound event payloads (Slack
// messages, Gmail messages) into one canonical MessageContext. The upstream
// provider has shipped two field-naming conventions over time; each source
// keeps its fallback order explicit in one place instead of probing
// optional fields all over the pipeline.
package normalize

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Source identifies where an inbound message came from.
type Source string

const (
	SourceSlack Source = "slack"
	SourceGmail Source = "gmail"
)

// ErrMalformedPayload is returned when a payload carries no usable content.
var ErrMalformedPayload = errors.New("normalize: malformed payload")

// MessageContext is the canonical inbound message consumed by the
// pre-filter (via the raw payloads), the deduplicator and the inference
// engine. It is built once per delivery and never persisted itself.
type MessageContext struct {
	Source    Source
	Content   string
	Sender    string
	Timestamp string

	// Channel-specific optionals
	Channel     string
	ChannelType string
	ThreadID    string
	Subject     string
	MessageID   string
	IsReply     bool
}

// ----------------------
//        SLACK
// ----------------------

// SlackPayload is the resolved shape of a Slack message event.
type SlackPayload struct {
	Text        string
	User        string
	Channel     string
	ChannelType string
	Ts          string
	ThreadTs    string
	BotID       string
	Subtype     string
}

type slackFields struct {
	Text        string `json:"text"`
	User        string `json:"user"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	Ts          string `json:"ts"`
	ThreadTs    string `json:"thread_ts"`
	BotID       string `json:"bot_id"`
	Subtype     string `json:"subtype"`
}

func ParseSlack(data json.RawMessage) (*SlackPayload, error) {
	var f slackFields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, ErrMalformedPayload
	}
	return &SlackPayload{
		Text:        f.Text,
		User:        f.User,
		Channel:     f.Channel,
		ChannelType: f.ChannelType,
		Ts:          f.Ts,
		ThreadTs:    f.ThreadTs,
		BotID:       f.BotID,
		Subtype:     f.Subtype,
	}, nil
}

// Context converts the payload into the canonical message. Sender is the
// raw Slack user id; downstream consumers accept raw ids.
func (p *SlackPayload) Context() (*MessageContext, error) {
	if strings.TrimSpace(p.Text) == "" {
		return nil, ErrMalformedPayload
	}
	sender := p.User
	if sender == "" {
		sender = "unknown"
	}
	return &MessageContext{
		Source:      SourceSlack,
		Content:     p.Text,
		Sender:      sender,
		Timestamp:   slackTimestamp(p.Ts),
		Channel:     p.Channel,
		ChannelType: p.ChannelType,
		ThreadID:    p.ThreadTs,
	}, nil
}

// slackTimestamp turns the epoch-seconds-with-fraction "ts" field
// ("1725459300.000200") into an ISO-8601 instant. The raw value is kept
// when it does not parse.
func slackTimestamp(ts string) string {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return ts
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC().Format(time.RFC3339)
}

// ----------------------
//        GMAIL
// ----------------------

// GmailPayload is the resolved shape of a Gmail message event, with the
// current/legacy field fallbacks already applied.
type GmailPayload struct {
	Body      string // first-available body, see gmail body fallback order
	Sender    string
	Subject   string
	Timestamp string
	MessageID string
	ThreadID  string
	Labels    []string
}

// Current naming convention (camelCase).
type gmailCurrentFields struct {
	MessageText string `json:"messageText"`
	Preview     struct {
		Body string `json:"body"`
	} `json:"preview"`
	Sender           string   `json:"sender"`
	Subject          string   `json:"subject"`
	MessageTimestamp string   `json:"messageTimestamp"`
	MessageID        string   `json:"messageId"`
	ThreadID         string   `json:"threadId"`
	LabelIDs         []string `json:"labelIds"`
}

// Legacy naming convention (snake_case / older payload shapes).
type gmailLegacyFields struct {
	Body         string   `json:"body"`
	Snippet      string   `json:"snippet"`
	From         string   `json:"from"`
	Subject      string   `json:"subject"`
	Date         string   `json:"date"`
	InternalDate string   `json:"internalDate"`
	ID           string   `json:"id"`
	ThreadID     string   `json:"thread_id"`
	LabelIDs     []string `json:"label_ids"`
}

// ParseGmail decodes both naming conventions and resolves each field with
// the current convention first. Neither convention alone is required to be
// complete; the provider has mixed them in the past.
func ParseGmail(data json.RawMessage) (*GmailPayload, error) {
	var cur gmailCurrentFields
	if err := json.Unmarshal(data, &cur); err != nil {
		return nil, ErrMalformedPayload
	}
	var leg gmailLegacyFields
	if err := json.Unmarshal(data, &leg); err != nil {
		return nil, ErrMalformedPayload
	}

	labels := cur.LabelIDs
	if len(labels) == 0 {
		labels = leg.LabelIDs
	}

	return &GmailPayload{
		Body:      firstNonEmpty(cur.MessageText, cur.Preview.Body, leg.Body, leg.Snippet),
		Sender:    firstNonEmpty(cur.Sender, leg.From),
		Subject:   firstNonEmpty(cur.Subject, leg.Subject),
		Timestamp: firstNonEmpty(cur.MessageTimestamp, leg.Date, leg.InternalDate),
		MessageID: firstNonEmpty(cur.MessageID, leg.ID),
		ThreadID:  firstNonEmpty(cur.ThreadID, leg.ThreadID),
		Labels:    labels,
	}, nil
}

// Context converts the payload into the canonical message. The subject is
// folded into the content so the inference stages see both.
func (p *GmailPayload) Context() (*MessageContext, error) {
	if p.Body == "" && p.Subject == "" {
		return nil, ErrMalformedPayload
	}

	content := p.Body
	if p.Subject != "" {
		content = "Subject: " + p.Subject + "\n\n" + p.Body
	}

	sender := p.Sender
	if sender == "" {
		sender = "unknown"
	}

	return &MessageContext{
		Source:    SourceGmail,
		Content:   content,
		Sender:    sender,
		Timestamp: p.Timestamp,
		Subject:   p.Subject,
		MessageID: p.MessageID,
		ThreadID:  p.ThreadID,
		IsReply:   strings.HasPrefix(strings.ToLower(strings.TrimSpace(p.Subject)), "re:"),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
