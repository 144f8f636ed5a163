package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/pkg/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Notifier рассылает доменные события. Notify никогда не блокирует вызывающего
// и не возвращает ошибок: уведомления не должны влиять на основную запись.
type Notifier interface {
	Notify(ctx context.Context, event *models.Event)
	Close() error
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type rabbitMQNotifier struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	publisher publisher
	exchange  string
	timeout   time.Duration
	logger    zerolog.Logger

	events    chan *models.Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewRabbitMQNotifier(url, exchange string, bufferSize int, publishTimeout time.Duration, logger zerolog.Logger) (Notifier, error) {
	conn, err := rabbitmq.NewConnection(url)
	if err != nil {
		return nil, err
	}

	channel, err := rabbitmq.NewChannel(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := rabbitmq.DeclareTopicExchange(channel, exchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	logger.Info().
		Str("exchange", exchange).
		Msg("Connected to RabbitMQ")

	n := newRabbitMQNotifier(channel, exchange, bufferSize, publishTimeout, logger)
	n.conn = conn
	n.channel = channel
	return n, nil
}

func newRabbitMQNotifier(pub publisher, exchange string, bufferSize int, publishTimeout time.Duration, logger zerolog.Logger) *rabbitMQNotifier {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}

	n := &rabbitMQNotifier{
		publisher: pub,
		exchange:  exchange,
		timeout:   publishTimeout,
		logger:    logger,
		events:    make(chan *models.Event, bufferSize),
		done:      make(chan struct{}),
	}
	// Один воркер: канал AMQP нельзя использовать для публикации из нескольких горутин
	go n.run()
	return n
}

func (n *rabbitMQNotifier) Notify(ctx context.Context, event *models.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}

	select {
	case n.events <- event:
	default:
		n.logger.Warn().
			Str("event", string(event.Type)).
			Str("entity_id", event.EntityID).
			Msg("Notification buffer full, event dropped")
	}
}

func (n *rabbitMQNotifier) run() {
	defer close(n.done)
	for event := range n.events {
		if err := n.publish(event); err != nil {
			n.logger.Error().Err(err).
				Str("event", string(event.Type)).
				Str("entity_id", event.EntityID).
				Msg("Failed to publish notification")
		}
	}
}

func (n *rabbitMQNotifier) publish(event *models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	err = n.publisher.PublishWithContext(
		ctx,
		n.exchange,         // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Unix(event.Timestamp, 0),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	n.logger.Debug().
		Str("event", string(event.Type)).
		Str("entity_id", event.EntityID).
		Msg("Notification published")

	return nil
}

// Close дожидается отправки уже принятых событий и закрывает соединение.
func (n *rabbitMQNotifier) Close() error {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.events)
		n.mu.Unlock()
	})
	<-n.done

	var errs []error
	if n.channel != nil {
		if err := n.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close RabbitMQ channel: %w", err))
		}
	}
	if n.conn != nil {
		if err := n.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close RabbitMQ connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier используется, когда RabbitMQ выключен или недоступен.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(ctx context.Context, event *models.Event) {
	n.logger.Info().
		Str("event", string(event.Type)).
		Str("entity_id", event.EntityID).
		Str("recipient_id", event.Recipient).
		Msg("Notification")
}

func (n *logNotifier) Close() error {
	return nil
}
