package messages

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sender is the role that wrote a message.
type Sender string

const (
	SenderAdmin  Sender = "admin"
	SenderClient Sender = "client"
)

// Valid reports whether s is one of the two thread participants.
func (s Sender) Valid() bool {
	return s == SenderAdmin || s == SenderClient
}

var (
	// ErrEmptyContent is returned for blank or whitespace-only content.
	ErrEmptyContent = errors.New("message content is required")
	// ErrInvalidSender is returned for roles other than admin or client.
	ErrInvalidSender = errors.New("sender must be admin or client")
	// ErrContentTooLong is returned when content exceeds MaxContentLength.
	ErrContentTooLong = errors.New("message is too long")
	// ErrStore wraps any failure from the backing store.
	ErrStore = errors.New("message store unavailable")
)

// MaxContentLength caps a single message in runes.
const MaxContentLength = 5000

// Message is one entry in a lead's conversation thread.
type Message struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeContent trims content and rejects empty or oversized messages.
func NormalizeContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmptyContent
	}
	if len([]rune(trimmed)) > MaxContentLength {
		return "", ErrContentTooLong
	}
	return trimmed, nil
}

// IsValidation reports whether err is a caller mistake rather than a store failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyContent) || errors.Is(err, ErrInvalidSender) || errors.Is(err, ErrContentTooLong)
}

func storeError(op string, err error) error {
	return fmt.Errorf("messages: %s: %w: %w", op, ErrStore, err)
}
