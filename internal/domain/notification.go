package domain

import "time"

// Notification priorities.
const (
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
)

type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Type           string    `json:"type" dynamodbav:"type"` // category name, e.g. "testResults"
	Title          string    `json:"title" dynamodbav:"title"`
	Message        string    `json:"message" dynamodbav:"message"`
	Priority       string    `json:"priority" dynamodbav:"priority"`
	Read           bool      `json:"read" dynamodbav:"read_flag"`
	ReadAt         *time.Time `json:"read_at,omitempty" dynamodbav:"read_at"`
	ReferenceType  *string   `json:"reference_type,omitempty" dynamodbav:"reference_type"` // "test_result", "appointment", ...
	ReferenceID    *string   `json:"reference_id,omitempty" dynamodbav:"reference_id"`
	Metadata       string    `json:"metadata,omitempty" dynamodbav:"metadata"` // JSON blob for channel payload extras
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Delivery channels.
const (
	ChannelPush      = "push"
	ChannelEmail     = "email"
	ChannelSMS       = "sms"
	ChannelWebSocket = "websocket"
)

// Delivery statuses.
const (
	DeliverySent   = "SENT"
	DeliveryFailed = "FAILED"
	DeliveryError  = "ERROR"
)

// DeliveryRecord is the append-only outcome of one delivery attempt on one
// channel. Records are kept for observability; nothing replays them.
// DeliveryAttempts is always 1 today — no scheduler retries failures.
type DeliveryRecord struct {
	DeliveryID       string    `json:"id" dynamodbav:"delivery_id"`
	UserID           string    `json:"user_id" dynamodbav:"user_id"`
	Channel          string    `json:"channel" dynamodbav:"channel"`
	Status           string    `json:"status" dynamodbav:"status"`
	Category         string    `json:"category" dynamodbav:"category"`
	Detail           string    `json:"detail,omitempty" dynamodbav:"detail"`
	DeliveryAttempts int       `json:"delivery_attempts" dynamodbav:"delivery_attempts"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
}
