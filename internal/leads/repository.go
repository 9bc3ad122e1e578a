package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	// GetByIDAndToken returns ErrLeadNotFound for a wrong id, a wrong token
	// or a malformed id alike.
	GetByIDAndToken(ctx context.Context, id, token string) (*Lead, error)
	// List returns every lead, newest first.
	List(ctx context.Context) ([]*Lead, error)
}

// InMemoryRepository keeps leads in process memory for local runs and tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	leads   map[string]*Lead
	byToken map[string]string
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads:   make(map[string]*Lead),
		byToken: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new lead, rejecting a token that is already in use.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if req == nil || req.AccessToken == "" {
		return nil, storeError("create", errMissingToken)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byToken[req.AccessToken]; taken {
		return nil, ErrDuplicateToken
	}

	lead := &Lead{
		ID:                  uuid.New().String(),
		Email:               req.Email,
		BusinessName:        req.BusinessName,
		Category:            req.Category,
		WebsiteGoal:         req.WebsiteGoal,
		Description:         req.Description,
		InspirationTemplate: req.InspirationTemplate,
		AccessToken:         req.AccessToken,
		CreatedAt:           r.now(),
	}
	r.leads[lead.ID] = lead
	r.byToken[lead.AccessToken] = lead.ID

	copied := *lead
	return &copied, nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	copied := *lead
	return &copied, nil
}

// GetByIDAndToken retrieves a lead only when both id and token match.
func (r *InMemoryRepository) GetByIDAndToken(ctx context.Context, id, token string) (*Lead, error) {
	if id == "" || token == "" {
		return nil, ErrLeadNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok || lead.AccessToken != token {
		return nil, ErrLeadNotFound
	}
	copied := *lead
	return &copied, nil
}

// List returns all leads newest first.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Lead, error) {
	r.mu.RLock()
	out := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		copied := *lead
		out = append(out, &copied)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
