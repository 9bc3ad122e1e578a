package messages

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists conversation messages.
type Repository interface {
	// Create stores a message. Content is trimmed; empty content is rejected.
	Create(ctx context.Context, leadID string, sender Sender, content string) (*Message, error)
	// ListForLead returns the thread oldest first, ties broken by id.
	ListForLead(ctx context.Context, leadID string) ([]*Message, error)
}

// InMemoryRepository keeps messages in process memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byLead map[string][]*Message
	last   time.Time
	now    func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byLead: make(map[string][]*Message),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, leadID string, sender Sender, content string) (*Message, error) {
	if !sender.Valid() {
		return nil, ErrInvalidSender
	}
	body, err := NormalizeContent(content)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// keep timestamps strictly increasing at the store's microsecond resolution
	created := r.now().Truncate(time.Microsecond)
	if !created.After(r.last) {
		created = r.last.Add(time.Microsecond)
	}
	r.last = created
	msg := &Message{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		Sender:    sender,
		Content:   body,
		CreatedAt: created,
	}
	r.byLead[leadID] = append(r.byLead[leadID], msg)
	r.mu.Unlock()

	copied := *msg
	return &copied, nil
}

func (r *InMemoryRepository) ListForLead(ctx context.Context, leadID string) ([]*Message, error) {
	r.mu.RLock()
	thread := r.byLead[leadID]
	out := make([]*Message, 0, len(thread))
	for _, msg := range thread {
		copied := *msg
		out = append(out, &copied)
	}
	r.mu.RUnlock()

	sortThread(out)
	return out, nil
}

func sortThread(thread []*Message) {
	sort.SliceStable(thread, func(i, j int) bool {
		if thread[i].CreatedAt.Equal(thread[j].CreatedAt) {
			return thread[i].ID < thread[j].ID
		}
		return thread[i].CreatedAt.Before(thread[j].CreatedAt)
	})
}
