package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectUserRegistered      = "user.registered"
	SubjectUserPasswordChanged = "user.password_changed"
)

// Publisher announces account events to other services
type Publisher interface {
	PublishUserRegistered(ctx context.Context, event UserRegisteredEvent) error
	PublishPasswordChanged(ctx context.Context, event PasswordChangedEvent) error
	Close()
}

type UserRegisteredEvent struct {
	EventType    string    `json:"event_type"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

type PasswordChangedEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	ChangedAt time.Time `json:"changed_at"`
}

// NewUserRegisteredEvent builds the event for a freshly created account
func NewUserRegisteredEvent(userID, username, email string) UserRegisteredEvent {
	return UserRegisteredEvent{
		EventType:    SubjectUserRegistered,
		UserID:       userID,
		Username:     username,
		Email:        email,
		RegisteredAt: time.Now().UTC(),
	}
}

// NewPasswordChangedEvent builds the event for a password change
func NewPasswordChangedEvent(userID string) PasswordChangedEvent {
	return PasswordChangedEvent{
		EventType: SubjectUserPasswordChanged,
		UserID:    userID,
		ChangedAt: time.Now().UTC(),
	}
}

// NatsPublisher publishes JSON-encoded events on core NATS subjects
type NatsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNatsPublisher connects to the NATS server at natsURL
func NewNatsPublisher(natsURL string, logger *zap.Logger) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("videotube-service"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NatsPublisher{conn: nc, logger: logger}, nil
}

func (p *NatsPublisher) PublishUserRegistered(ctx context.Context, event UserRegisteredEvent) error {
	return p.publish(ctx, SubjectUserRegistered, event)
}

func (p *NatsPublisher) PublishPasswordChanged(ctx context.Context, event PasswordChangedEvent) error {
	return p.publish(ctx, SubjectUserPasswordChanged, event)
}

func (p *NatsPublisher) publish(ctx context.Context, subject string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}

	p.logger.Debug("event published", zap.String("subject", subject))
	return nil
}

// Close drains pending messages and closes the connection
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain nats connection", zap.Error(err))
		p.conn.Close()
	}
}

// NopPublisher drops every event. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishUserRegistered(context.Context, UserRegisteredEvent) error { return nil }

func (NopPublisher) PublishPasswordChanged(context.Context, PasswordChangedEvent) error { return nil }

func (NopPublisher) Close() {}
