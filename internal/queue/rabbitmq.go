package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/fortebank/backend/internal/models"
	"github.com/streadway/amqp"
)

const (
	// queue for asynchronous ledger postings
	PostingQueue = "ledger_postings"
)

// PostingMessage is one queued ledger posting from the batch endpoint.
type PostingMessage struct {
	AccountID   string           `json:"account_id"`
	Type        models.EntryType `json:"type"`
	Amount      int64            `json:"amount"`
	Subtype     string           `json:"subtype"`
	Reference   string           `json:"reference"`
	Description string           `json:"description,omitempty"`
}

// RabbitMQ handles the posting queue connection.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewRabbitMQ(uri string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		PostingQueue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

// PublishPosting publishes a posting message to the queue.
func (r *RabbitMQ) PublishPosting(ctx context.Context, msg PostingMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal posting: %w", err)
	}

	err = r.channel.Publish(
		"",           // exchange
		PostingQueue, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish posting: %w", err)
	}
	return nil
}

// ConsumePostings delivers queued postings to the handler. The handler's
// error decides acknowledgement: nil acks; an error requeues the delivery
// once so a transient failure gets a second attempt, and drops it on the
// redelivery so a poison message cannot loop forever.
func (r *RabbitMQ) ConsumePostings(ctx context.Context, handle func(context.Context, PostingMessage) error) error {
	msgs, err := r.channel.Consume(
		PostingQueue, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				settleDelivery(ctx, msg.Body, msg.Redelivered,
					func() error { return msg.Ack(false) },
					msg.Reject,
					handle)
			}
		}
	}()

	return nil
}

// settleDelivery applies one delivery and settles it with the broker:
// ack on success, requeue on the first failure, drop on a redelivered
// failure or an unparseable body.
func settleDelivery(ctx context.Context, body []byte, redelivered bool, ack func() error, reject func(requeue bool) error, handle func(context.Context, PostingMessage) error) {
	var posting PostingMessage
	if err := json.Unmarshal(body, &posting); err != nil {
		log.Printf("[QUEUE] failed to unmarshal posting: %v", err)
		reject(false)
		return
	}

	if err := handle(ctx, posting); err != nil {
		if redelivered {
			log.Printf("[QUEUE] posting %s failed again, dropping: %v", posting.Reference, err)
			reject(false)
			return
		}
		log.Printf("[QUEUE] posting %s failed, requeueing: %v", posting.Reference, err)
		reject(true)
		return
	}

	ack()
}
