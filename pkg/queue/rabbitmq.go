package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"mao-amiga/pkg/config"
	"mao-amiga/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	LedgerQueueName       = "ledger_tasks"
	NotificationQueueName = "organizer_notifications"
	LedgerExchange        = "ledger"

	TaskDonationRecorded = "donation_recorded"
	TaskReconcileRaised  = "reconcile_raised"
)

// Task is the message body published on the ledger exchange. The routing
// key is the task type.
type Task struct {
	Type        string `json:"type"`
	CampaignID  string `json:"campaign_id"`
	SupporterID string `json:"supporter_id,omitempty"`
	CreatorID   string `json:"creator_id,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Priority    int    `json:"priority"`
}

// queueBindings lists the routing keys each queue receives from the ledger
// exchange. Every task type has exactly one consuming queue.
var queueBindings = []struct {
	queue       string
	routingKeys []string
}{
	{LedgerQueueName, []string{TaskReconcileRaised}},
	{NotificationQueueName, []string{TaskDonationRecorded}},
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		LedgerExchange, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	for _, binding := range queueBindings {
		if err := declareQueue(channel, binding.queue, binding.routingKeys...); err != nil {
			channel.Close()
			conn.Close()
			return nil, err
		}
	}

	// Brokers declared by older releases still route donations to the ledger queue.
	if err := channel.QueueUnbind(LedgerQueueName, TaskDonationRecorded, LedgerExchange, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to unbind %s from %s: %w", LedgerQueueName, TaskDonationRecorded, err)
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func declareQueue(channel *amqp.Channel, name string, routingKeys ...string) error {
	_, err := channel.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-max-priority": 10,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	for _, routingKey := range routingKeys {
		if err := channel.QueueBind(name, routingKey, LedgerExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", name, routingKey, err)
		}
	}
	return nil
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

func clampPriority(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > 10 {
		return 10
	}
	return uint8(p)
}

// PublishTask publishes a ledger task routed by its type.
func (c *Client) PublishTask(task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.Publish(
		LedgerExchange, // exchange
		task.Type,      // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Priority:     clampPriority(task.Priority),
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish task type=%s campaign_id=%s: %v", task.Type, task.CampaignID, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Info("[RABBITMQ] Published task type=%s campaign_id=%s", task.Type, task.CampaignID)
	return nil
}

// ConsumeTasks delivers tasks from queueName to handler. A handler error
// requeues the message, an undecodable body is dropped.
func (c *Client) ConsumeTasks(queueName string, handler func(task Task) error) error {
	msgs, err := c.channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] Started consuming from queue: %s", queueName)

	go func() {
		for msg := range msgs {
			task, err := DecodeTask(msg.Body)
			if err != nil {
				c.logger.Error("[RABBITMQ] Failed to decode task: %v, body=%s", err, string(msg.Body))
				msg.Nack(false, false)
				continue
			}

			if err := handler(task); err != nil {
				c.logger.Error("[RABBITMQ] Handler failed for task type=%s campaign_id=%s: %v", task.Type, task.CampaignID, err)
				msg.Nack(false, true)
				continue
			}

			msg.Ack(false)
		}
	}()

	return nil
}

func DecodeTask(body []byte) (Task, error) {
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return Task{}, err
	}
	if task.Type == "" || task.CampaignID == "" {
		return Task{}, fmt.Errorf("task is missing type or campaign_id")
	}
	return task, nil
}
