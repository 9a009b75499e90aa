// Package amqp publishes and consumes recipe sync messages over RabbitMQ.
// Writes always land in SQLite first, the broker only carries hints for the
// background export worker.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key matches the queue name on a direct exchange.
	err = c.channel.QueueBind(
		c.queueName,
		c.queueName,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishRecipeSync publishes a recipe sync message.
func (c *Client) PublishRecipeSync(ctx context.Context, id, version int64) error {
	msg := NewRecipeSyncMessage(id, version)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, TypeRecipeSync, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published recipe sync message",
		"id", id,
		"version", version,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// PublishRecipeDelete publishes a recipe delete message.
func (c *Client) PublishRecipeDelete(ctx context.Context, id int64, name string) error {
	msg := NewRecipeDeleteMessage(id, name)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, TypeRecipeDelete, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published recipe delete message",
		"id", id,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Type:         msgType,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// ConsumeMessages consumes recipe sync and delete messages until the context
// ends, dispatching on the message Type property.
func (c *Client) ConsumeMessages(
	ctx context.Context,
	syncHandler func(ctx context.Context, msg *RecipeSyncMessage) error,
	deleteHandler func(ctx context.Context, msg *RecipeDeleteMessage) error,
) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming recipe messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.dispatch(ctx, delivery, syncHandler, deleteHandler)
		}
	}
}

func (c *Client) dispatch(
	ctx context.Context,
	delivery amqp091.Delivery,
	syncHandler func(ctx context.Context, msg *RecipeSyncMessage) error,
	deleteHandler func(ctx context.Context, msg *RecipeDeleteMessage) error,
) {
	switch delivery.Type {
	case TypeRecipeDelete:
		msg, err := RecipeDeleteMessageFromJSON(delivery.Body)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to unmarshal delete message", "error", err)
			delivery.Nack(false, false) // reject and don't requeue
			return
		}
		if err := deleteHandler(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to handle delete message",
				"error", err,
				"id", msg.ID)
			delivery.Nack(false, true) // reject and requeue
			return
		}
		delivery.Ack(false)
		slog.InfoContext(ctx, "Processed recipe delete message", "id", msg.ID)

	default:
		// Untyped messages from older publishers are treated as sync.
		msg, err := RecipeSyncMessageFromJSON(delivery.Body)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to unmarshal sync message", "error", err)
			delivery.Nack(false, false)
			return
		}
		if err := syncHandler(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to handle sync message",
				"error", err,
				"id", msg.ID,
				"version", msg.Version)
			delivery.Nack(false, true)
			return
		}
		delivery.Ack(false)
		slog.InfoContext(ctx, "Processed recipe sync message",
			"id", msg.ID,
			"version", msg.Version)
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
