package messaging

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds configuration for the RabbitMQ client.
type Config struct {
	URL      string
	Exchange string // durable topic exchange declared on connect

	// Resilience
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	MaxRetries        int // -1 for infinite
	HeartbeatTimeout  time.Duration

	// Circuit breaker
	CircuitBreakerEnabled   bool
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

type CircuitBreaker struct {
	state          CircuitBreakerState
	mu             sync.RWMutex
	failures       int
	threshold      int
	timeout        time.Duration
	lastFailure    time.Time
	successCounter int
}

// RabbitMQClient publishes JSON events to a durable topic exchange, with
// automatic reconnection and an optional circuit breaker around publishes.
type RabbitMQClient struct {
	config Config
	conn   *amqp.Connection
	ch     *amqp.Channel
	mu     sync.RWMutex

	notifyConnClose chan *amqp.Error
	isReconnecting  bool
	isClosed        bool

	cb *CircuitBreaker
}

func NewRabbitMQClient(config Config) (*RabbitMQClient, error) {
	if config.Exchange == "" {
		return nil, fmt.Errorf("exchange name is required")
	}
	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = time.Second
	}
	if config.MaxReconnectDelay == 0 {
		config.MaxReconnectDelay = 60 * time.Second
	}
	if config.HeartbeatTimeout == 0 {
		config.HeartbeatTimeout = 10 * time.Second
	}
	if config.CircuitBreakerThreshold == 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout == 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}

	client := &RabbitMQClient{
		config: config,
		cb: &CircuitBreaker{
			state:     StateClosed,
			threshold: config.CircuitBreakerThreshold,
			timeout:   config.CircuitBreakerTimeout,
		},
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.handleReconnect()

	return client, nil
}

func (r *RabbitMQClient) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Printf("Connecting to RabbitMQ at %s", r.maskURL(r.config.URL))

	conn, err := amqp.DialConfig(r.config.URL, amqp.Config{
		Heartbeat: r.config.HeartbeatTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		r.config.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", r.config.Exchange, err)
	}

	r.conn = conn
	r.ch = ch
	r.notifyConnClose = make(chan *amqp.Error)
	r.conn.NotifyClose(r.notifyConnClose)
	r.isReconnecting = false

	log.Println("Successfully connected to RabbitMQ")
	return nil
}

func (r *RabbitMQClient) handleReconnect() {
	r.mu.RLock()
	if r.isClosed {
		r.mu.RUnlock()
		return
	}
	notifyClose := r.notifyConnClose
	r.mu.RUnlock()

	err := <-notifyClose
	if err != nil {
		log.Printf("RabbitMQ connection closed: %v. Reconnecting...", err)
		r.reconnect()
	}
}

func (r *RabbitMQClient) reconnect() {
	r.mu.Lock()
	r.isReconnecting = true
	r.mu.Unlock()

	backoff := r.config.ReconnectDelay
	retries := 0

	for {
		r.mu.RLock()
		if r.isClosed {
			r.mu.RUnlock()
			return
		}
		maxRetries := r.config.MaxRetries
		r.mu.RUnlock()

		if maxRetries != -1 && retries >= maxRetries {
			log.Printf("Max retries reached. Stopping reconnection attempts.")
			return
		}

		if err := r.connect(); err == nil {
			log.Println("RabbitMQ reconnected")
			go r.handleReconnect()
			return
		}

		log.Printf("Failed to reconnect: waiting %v", backoff)
		time.Sleep(backoff)

		backoff *= 2
		if backoff > r.config.MaxReconnectDelay {
			backoff = r.config.MaxReconnectDelay
		}
		retries++
	}
}

// PublishEvent publishes a persistent JSON message to the configured topic
// exchange under the given routing key.
func (r *RabbitMQClient) PublishEvent(ctx context.Context, routingKey string, body []byte) error {
	if r.config.CircuitBreakerEnabled && !r.cb.Allow() {
		return fmt.Errorf("circuit breaker is open")
	}

	r.mu.RLock()
	if r.isReconnecting || r.ch == nil {
		r.mu.RUnlock()
		return fmt.Errorf("connection is not available")
	}
	ch := r.ch
	exchange := r.config.Exchange
	r.mu.RUnlock()

	err := ch.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})

	if r.config.CircuitBreakerEnabled {
		if err != nil {
			r.cb.RecordFailure()
		} else {
			r.cb.RecordSuccess()
		}
	}

	return err
}

func (r *RabbitMQClient) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.isClosed = true
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

func (r *RabbitMQClient) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn != nil && !r.conn.IsClosed() && !r.isReconnecting
}

func (r *RabbitMQClient) maskURL(url string) string {
	if parts := strings.Split(url, "@"); len(parts) > 1 {
		prefixParts := strings.Split(parts[0], "://")
		if len(prefixParts) == 2 {
			return prefixParts[0] + "://***:***@" + parts[1]
		}
	}
	return url
}

// Circuit breaker methods

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	switch cb.state {
	case StateOpen:
		// Allow a probe request once the cooldown has elapsed
		return time.Since(cb.lastFailure) > cb.timeout
	case StateHalfOpen:
		return true
	default: // Closed
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.successCounter++
		if cb.successCounter >= 3 {
			cb.state = StateClosed
			cb.failures = 0
			cb.successCounter = 0
		}
	case StateOpen:
		cb.state = StateClosed
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.state == StateClosed && cb.failures >= cb.threshold {
		cb.state = StateOpen
	} else if cb.state == StateHalfOpen {
		cb.state = StateOpen
	}
}
