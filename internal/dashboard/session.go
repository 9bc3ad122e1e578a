package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/sitecraft/internal/messages"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

// State is the view state of a Session.
type State int

const (
	StateLoading State = iota
	StateDenied
	StateReady
)

func (s State) String() string {
	switch s {
	case StateDenied:
		return "denied"
	case StateReady:
		return "ready"
	default:
		return "loading"
	}
}

var (
	// ErrEmptyDraft is returned for whitespace-only drafts. Nothing is sent.
	ErrEmptyDraft = errors.New("dashboard: message is empty")
	// ErrSendInProgress is returned while a previous send is still running.
	ErrSendInProgress = errors.New("dashboard: a message is already being sent")
	// ErrNotReady is returned when sending before the thread loaded.
	ErrNotReady = errors.New("dashboard: conversation not loaded")
)

// SendError wraps a failed send and hands the draft back for retry.
type SendError struct {
	Draft string
	Err   error
}

func (e *SendError) Error() string { return "dashboard: send failed: " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

// Source is one side's view of a thread.
type Source interface {
	Load(ctx context.Context) (*Lead, []*Message, error)
	Poll(ctx context.Context) ([]*Message, error)
	Send(ctx context.Context, content string) (*Message, error)
	Sender() messages.Sender
}

type clientSource struct {
	api           *APIClient
	leadID, token string
}

// ClientSource reads the thread through the token-gated project API.
func ClientSource(api *APIClient, leadID, token string) Source {
	return &clientSource{api: api, leadID: leadID, token: token}
}

func (s *clientSource) Load(ctx context.Context) (*Lead, []*Message, error) {
	return s.api.Project(ctx, s.leadID, s.token)
}

func (s *clientSource) Poll(ctx context.Context) ([]*Message, error) {
	return s.api.ProjectMessages(ctx, s.leadID, s.token)
}

func (s *clientSource) Send(ctx context.Context, content string) (*Message, error) {
	return s.api.SendProjectMessage(ctx, s.leadID, s.token, content)
}

func (s *clientSource) Sender() messages.Sender { return messages.SenderClient }

type adminSource struct {
	api    *APIClient
	leadID string
}

// AdminSource reads the thread through the admin API.
func AdminSource(api *APIClient, leadID string) Source {
	return &adminSource{api: api, leadID: leadID}
}

func (s *adminSource) Load(ctx context.Context) (*Lead, []*Message, error) {
	return s.api.AdminLead(ctx, s.leadID)
}

func (s *adminSource) Poll(ctx context.Context) ([]*Message, error) {
	_, thread, err := s.api.AdminLead(ctx, s.leadID)
	return thread, err
}

func (s *adminSource) Send(ctx context.Context, content string) (*Message, error) {
	return s.api.SendAdminMessage(ctx, s.leadID, content)
}

func (s *adminSource) Sender() messages.Sender { return messages.SenderAdmin }

// Session is a single open conversation view.
type Session struct {
	src      Source
	timeline *Timeline
	logger   *logging.Logger
	onChange func(*Session)

	mu       sync.Mutex
	state    State
	lead     *Lead
	redirect string

	sending atomic.Bool
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

func WithLogger(l *logging.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithOnChange registers a callback run after every visible change.
func WithOnChange(fn func(*Session)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// NewSession creates a session in the loading state.
func NewSession(src Source, opts ...SessionOption) *Session {
	s := &Session{src: src, timeline: NewTimeline(), logger: logging.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current view state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Lead returns the loaded lead, or nil before the session is ready.
func (s *Session) Lead() *Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lead
}

// Redirect is the location an admin view should return to after a not-found.
func (s *Session) Redirect() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirect
}

// Entries returns confirmed messages followed by pending sends.
func (s *Session) Entries() []Entry { return s.timeline.Entries() }

// Timeline exposes the underlying timeline.
func (s *Session) Timeline() *Timeline { return s.timeline }

// Load performs the initial fetch. Denials move the session to StateDenied
// and are not returned as errors. Other failures leave it loading.
func (s *Session) Load(ctx context.Context) error {
	lead, thread, err := s.src.Load(ctx)
	if err != nil {
		var nf *NotFoundError
		switch {
		case errors.Is(err, ErrAccessDenied):
			s.deny("")
			return nil
		case errors.As(err, &nf):
			s.deny(nf.Redirect)
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.state = StateReady
	s.lead = lead
	s.mu.Unlock()
	s.timeline.Apply(thread)
	s.notify()
	return nil
}

// Refresh re-fetches the thread. It is a no-op unless the session is ready.
func (s *Session) Refresh(ctx context.Context) error {
	if s.State() != StateReady {
		return nil
	}
	thread, err := s.src.Poll(ctx)
	if err != nil {
		var nf *NotFoundError
		switch {
		case errors.Is(err, ErrAccessDenied):
			s.deny("")
			return nil
		case errors.As(err, &nf):
			s.deny(nf.Redirect)
			return nil
		}
		return err
	}
	if s.timeline.Apply(thread) {
		s.notify()
	}
	return nil
}

// Send posts draft. The message shows as pending immediately. Failures
// return a *SendError carrying the draft.
func (s *Session) Send(ctx context.Context, draft string) (*Message, error) {
	if s.State() != StateReady {
		return nil, ErrNotReady
	}
	content := strings.TrimSpace(draft)
	if content == "" {
		return nil, ErrEmptyDraft
	}
	if !s.sending.CompareAndSwap(false, true) {
		return nil, ErrSendInProgress
	}
	defer s.sending.Store(false)

	key := s.timeline.AddPending(s.src.Sender(), content)
	s.notify()

	msg, err := s.src.Send(ctx, draft)
	if err != nil {
		s.timeline.Drop(key)
		s.notify()
		s.logger.Warn("message send failed", "error", err)
		return nil, &SendError{Draft: draft, Err: err}
	}
	s.timeline.Acknowledge(key, msg)
	s.notify()
	return msg, nil
}

// Sending reports whether a send is in flight.
func (s *Session) Sending() bool { return s.sending.Load() }

// Poller returns a poller that refreshes this session every interval.
func (s *Session) Poller(interval time.Duration) *Poller {
	return NewPoller(interval, func(ctx context.Context) {
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("poll failed", "error", err)
		}
	})
}

func (s *Session) deny(redirect string) {
	s.mu.Lock()
	s.state = StateDenied
	s.redirect = redirect
	s.lead = nil
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s)
	}
}
