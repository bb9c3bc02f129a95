// Package ingest consumes trigger events from an AMQP queue and feeds them
// through the same pipeline as the HTTP webhook. The integration platform
// can deliver either way; both carry the same JSON envelope.
package ingest

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"inboxpilot-backend/internal/pipeline"
	"inboxpilot-backend/internal/webhook"
)

// deliveryTimeout bounds one event's pipeline run, dominated by the two
// model calls.
const deliveryTimeout = 30 * time.Second

type Consumer struct {
	URL   string
	Queue string
	Pipe  *pipeline.Pipeline
}

// Run blocks consuming the queue until ctx is canceled or the channel
// closes. Every delivery is acked: upstream redelivery is the retry
// mechanism and the dedup window bounds it, so a failed event must not
// cycle in the queue forever.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp091.Dial(c.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	log.Printf("[Ingest] consuming trigger events from queue %s", c.Queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("ingest: delivery channel closed")
			}
			dctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
			c.process(dctx, msg.Body)
			cancel()
			_ = msg.Ack(false)
		}
	}
}

// process runs one queued event through the pipeline. Outcomes are logged,
// never returned: the ack decision does not depend on them.
func (c *Consumer) process(ctx context.Context, body []byte) {
	env, err := webhook.ParseEnvelope(body)
	if err != nil {
		log.Printf("[Ingest] dropping unparseable event: %v", err)
		return
	}

	entityID, err := env.EntityID()
	if err != nil {
		log.Printf("[Ingest] dropping event without entity id (type %s)", env.Type)
		return
	}

	res, err := c.Pipe.Process(ctx, env.App(), entityID, env.Data)
	if err != nil {
		log.Printf("[Ingest] pipeline failed for entity %s: %v", entityID, err)
		return
	}
	if !res.Processed {
		log.Printf("[Ingest] rejected event for entity %s: %s", entityID, res.Reason)
	}
}
