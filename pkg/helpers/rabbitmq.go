package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var errPublisherClosed = errors.New("rabbitmq publisher closed")

// RabbitPublisher publishes persistent JSON messages to one durable queue.
// It is safe for concurrent use; a channel closed by the broker is reopened
// on the next publish.
type RabbitPublisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool

	Queue string
	AppID string
}

func NewRabbitPublisher(url, queue, appID string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	p := &RabbitPublisher{conn: conn, Queue: queue, AppID: appID}
	if _, err := p.channel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

// channel returns an open channel with the queue declared. Callers hold mu
// except during construction.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.closed || p.conn == nil || p.conn.IsClosed() {
		return nil, errPublisherClosed
	}
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := DeclareQueue(ch, p.Queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

// DeclareQueue declares the durable queue shared by publisher and worker.
func DeclareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	return err
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishJSON encodes body and publishes it through the default exchange.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        p.AppID,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

// RabbitConsumer holds a manual-ack subscription to one queue.
type RabbitConsumer struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	closeOnce  sync.Once
	Deliveries <-chan amqp.Delivery
}

// OpenConsumer declares queue and starts consuming it with the given prefetch.
func OpenConsumer(url, queue string, prefetch int) (*RabbitConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	c := &RabbitConsumer{conn: conn}
	if err := c.subscribe(queue, prefetch); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *RabbitConsumer) subscribe(queue string, prefetch int) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	c.ch = ch
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return err
		}
	}
	if err := DeclareQueue(ch, queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	c.Deliveries = msgs
	return nil
}

// Close stops delivery; Deliveries is closed once in-flight messages drain.
// Later calls do nothing.
func (c *RabbitConsumer) Close() {
	c.closeOnce.Do(func() {
		if c.ch != nil {
			_ = c.ch.Close()
		}
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
