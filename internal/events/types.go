package events

import "time"

// Event is a versioned notification-worthy domain event.
type Event interface {
	EventType() string
}

const (
	TypeLeadCreated   = "lead.created.v1"
	TypeMessagePosted = "message.posted.v1"
)

// LeadCreatedV1 is emitted after an intake submission is stored.
type LeadCreatedV1 struct {
	LeadID       string    `json:"lead_id"`
	Email        string    `json:"email"`
	BusinessName string    `json:"business_name"`
	Category     string    `json:"category"`
	WebsiteGoal  string    `json:"website_goal,omitempty"`
	DashboardURL string    `json:"dashboard_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func (LeadCreatedV1) EventType() string { return TypeLeadCreated }

// MessagePostedV1 is emitted after a message is appended to a lead thread.
type MessagePostedV1 struct {
	MessageID    string    `json:"message_id"`
	LeadID       string    `json:"lead_id"`
	Sender       string    `json:"sender"`
	Content      string    `json:"content"`
	LeadEmail    string    `json:"lead_email"`
	BusinessName string    `json:"business_name"`
	DashboardURL string    `json:"dashboard_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (MessagePostedV1) EventType() string { return TypeMessagePosted }
