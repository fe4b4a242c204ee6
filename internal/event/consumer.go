package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"placement-service/internal/models"
)

const (
	userEventsExchange       = "user-events"
	routingKeyUserRegistered = "user.registered"
)

// UserProvisioner creates the placement profile of a newly registered user.
type UserProvisioner interface {
	Provision(ctx context.Context, userID string) error
}

type Consumer interface {
	Start() error
	Close() error
}

type EventConsumer struct {
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	queueName   string
	provisioner UserProvisioner
	shutdown    chan struct{}
	wg          sync.WaitGroup
	enabled     bool
}

func NewEventConsumer(rabbitURI, queueName string, provisioner UserProvisioner) (*EventConsumer, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{
			provisioner: provisioner,
			shutdown:    make(chan struct{}),
			enabled:     false,
		}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &EventConsumer{
		conn:        conn,
		channel:     channel,
		queueName:   queueName,
		provisioner: provisioner,
		shutdown:    make(chan struct{}),
		enabled:     true,
	}, nil
}

func (c *EventConsumer) Start() error {
	if !c.enabled {
		log.Println("Event consumption is disabled, not starting consumer")
		return nil
	}

	err := c.channel.ExchangeDeclare(
		userEventsExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", userEventsExchange, err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.channel.QueueBind(c.queueName, routingKeyUserRegistered, userEventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to exchange %s with key %s: %w",
			userEventsExchange, routingKeyUserRegistered, err)
	}
	log.Printf("Bound queue %s to exchange %s with routing key %s",
		c.queueName, userEventsExchange, routingKeyUserRegistered)

	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(msgs)
	}()

	log.Println("Event consumer started")
	return nil
}

func (c *EventConsumer) consume(msgs <-chan amqp091.Delivery) {
	for {
		select {
		case <-c.shutdown:
			log.Println("Stopping event consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Println("Message channel closed, consumer stopped")
				return
			}

			if err := c.processMessage(msg.RoutingKey, msg.Body); err != nil {
				log.Printf("Error processing message: %v", err)
				if err := msg.Nack(false, true); err != nil {
					log.Printf("Error NACKing message: %v", err)
				}
				continue
			}
			if err := msg.Ack(false); err != nil {
				log.Printf("Error ACKing message: %v", err)
			}
		}
	}
}

func (c *EventConsumer) processMessage(routingKey string, body []byte) error {
	switch routingKey {
	case routingKeyUserRegistered:
		return c.handleUserRegistered(body)
	default:
		log.Printf("Unknown routing key: %s", routingKey)
		return nil // ack so it is not redelivered
	}
}

func (c *EventConsumer) handleUserRegistered(body []byte) error {
	var event models.UserRegisteredEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// a malformed payload will never succeed; drop it
		log.Printf("Discarding malformed user registered event: %v", err)
		return nil
	}
	if strings.TrimSpace(event.UserID) == "" {
		log.Printf("Discarding user registered event %s without user id", event.ID)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.provisioner.Provision(ctx, event.UserID); err != nil {
		return fmt.Errorf("failed to provision placement profile for user %s: %w", event.UserID, err)
	}

	log.Printf("Provisioned placement profile for user %s (%s)", event.UserID, event.Username)
	return nil
}

func (c *EventConsumer) Close() error {
	if !c.enabled {
		return nil
	}

	close(c.shutdown)
	c.wg.Wait()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			log.Printf("Error closing RabbitMQ channel: %v", err)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}
