package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlackContext(t *testing.T) {
	data := json.RawMessage(`{
		"text": "can you review the Q1 deck by Friday EOD",
		"user": "U123ABC",
		"channel": "D456",
		"channel_type": "im",
		"ts": "1717243200.000100",
		"thread_ts": "1717243100.000000"
	}`)

	p, err := ParseSlack(data)
	require.NoError(t, err)

	ctx, err := p.Context()
	require.NoError(t, err)

	assert.Equal(t, SourceSlack, ctx.Source)
	assert.Equal(t, "can you review the Q1 deck by Friday EOD", ctx.Content)
	assert.Equal(t, "U123ABC", ctx.Sender, "sender stays a raw user id")
	assert.Equal(t, "2024-06-01T12:00:00Z", ctx.Timestamp)
	assert.Equal(t, "im", ctx.ChannelType)
	assert.Equal(t, "1717243100.000000", ctx.ThreadID)
}

func TestSlackEmptyTextIsMalformed(t *testing.T) {
	p, err := ParseSlack(json.RawMessage(`{"user": "U1", "ts": "1.0"}`))
	require.NoError(t, err)

	_, err = p.Context()
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestSlackUnparseableTsKeptVerbatim(t *testing.T) {
	p, err := ParseSlack(json.RawMessage(`{"text": "hi", "user": "U1", "ts": "not-a-number"}`))
	require.NoError(t, err)

	ctx, err := p.Context()
	require.NoError(t, err)
	assert.Equal(t, "not-a-number", ctx.Timestamp)
}

func TestGmailBodyFallbackOrder(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{
			name: "current messageText wins over everything",
			data: `{"messageText": "primary", "preview": {"body": "preview"}, "body": "legacy", "snippet": "snip"}`,
			want: "primary",
		},
		{
			name: "preview body beats legacy fields",
			data: `{"preview": {"body": "preview"}, "body": "legacy", "snippet": "snip"}`,
			want: "preview",
		},
		{
			name: "legacy body beats snippet",
			data: `{"body": "legacy", "snippet": "snip"}`,
			want: "legacy",
		},
		{
			name: "snippet is the last resort",
			data: `{"snippet": "snip"}`,
			want: "snip",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParseGmail(json.RawMessage(tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Body)
		})
	}
}

func TestGmailSenderAndTimestampFallbacks(t *testing.T) {
	p, err := ParseGmail(json.RawMessage(`{
		"body": "please send the report",
		"from": "boss@corp.com",
		"date": "2024-06-01T09:00:00Z",
		"id": "legacy-id"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "boss@corp.com", p.Sender)
	assert.Equal(t, "2024-06-01T09:00:00Z", p.Timestamp)
	assert.Equal(t, "legacy-id", p.MessageID)

	// Current convention preferred when both are present.
	p, err = ParseGmail(json.RawMessage(`{
		"messageText": "x",
		"sender": "current@corp.com",
		"from": "legacy@corp.com",
		"messageTimestamp": "2024-06-02T09:00:00Z",
		"date": "2024-06-01T09:00:00Z",
		"messageId": "cur-id",
		"id": "legacy-id"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "current@corp.com", p.Sender)
	assert.Equal(t, "2024-06-02T09:00:00Z", p.Timestamp)
	assert.Equal(t, "cur-id", p.MessageID)
}

func TestGmailContext(t *testing.T) {
	p, err := ParseGmail(json.RawMessage(`{
		"messageText": "see attached",
		"sender": "alice@corp.com",
		"subject": "RE: budget review",
		"messageTimestamp": "2024-06-01T09:00:00Z"
	}`))
	require.NoError(t, err)

	ctx, err := p.Context()
	require.NoError(t, err)

	assert.Equal(t, SourceGmail, ctx.Source)
	assert.Equal(t, "Subject: RE: budget review\n\nsee attached", ctx.Content)
	assert.True(t, ctx.IsReply)
}

func TestGmailNoContentIsMalformed(t *testing.T) {
	p, err := ParseGmail(json.RawMessage(`{"sender": "a@b.c"}`))
	require.NoError(t, err)

	_, err = p.Context()
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestGmailSubjectOnlyIsNotMalformed(t *testing.T) {
	p, err := ParseGmail(json.RawMessage(`{"subject": "quick question", "sender": "a@b.c"}`))
	require.NoError(t, err)

	ctx, err := p.Context()
	require.NoError(t, err)
	assert.Equal(t, "Subject: quick question\n\n", ctx.Content)
	assert.False(t, ctx.IsReply)
}
