package leads

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitecraft/internal/events"
)

type countingRepo struct {
	Repository
	creates int
	failN   int
	err     error
}

func (c *countingRepo) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	c.creates++
	if c.creates <= c.failN {
		return nil, c.err
	}
	return c.Repository.Create(ctx, req)
}

type recordingPublisher struct {
	events []events.LeadCreatedV1
	err    error
}

func (p *recordingPublisher) PublishLeadCreated(ctx context.Context, evt events.LeadCreatedV1) error {
	p.events = append(p.events, evt)
	return p.err
}

func validForm() IntakeForm {
	return IntakeForm{
		Email:        "a@b.com",
		BusinessName: "Bella's Bakery",
		Category:     "Restaurant or Cafe",
	}
}

func TestIntakeService_RedirectCarriesStoredToken(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewIntakeService(repo, nil)

	lead, redirect, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "/project/"+lead.ID, u.Path)

	stored, err := repo.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.AccessToken, u.Query().Get("token"))
}

func TestIntakeService_TokensUniqueAcrossLeads(t *testing.T) {
	svc := NewIntakeService(NewInMemoryRepository(), nil)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		lead, _, err := svc.Submit(context.Background(), validForm())
		require.NoError(t, err)
		require.False(t, seen[lead.AccessToken], "token reused")
		seen[lead.AccessToken] = true
	}
}

func TestIntakeService_ValidationSkipsStore(t *testing.T) {
	repo := &countingRepo{Repository: NewInMemoryRepository()}
	svc := NewIntakeService(repo, nil)

	form := validForm()
	form.Category = "Other"
	form.CustomCategory = "   "
	_, _, err := svc.Submit(context.Background(), form)
	assert.ErrorIs(t, err, ErrCategoryRequired)
	assert.Equal(t, 0, repo.creates)

	form.CustomCategory = "  Mobile Barber  "
	lead, _, err := svc.Submit(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "Mobile Barber", lead.Category)
	assert.Equal(t, 1, repo.creates)
}

func TestIntakeService_RetriesTokenCollision(t *testing.T) {
	repo := &countingRepo{Repository: NewInMemoryRepository(), failN: 2, err: ErrDuplicateToken}
	svc := NewIntakeService(repo, nil)

	_, _, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, 3, repo.creates)
}

func TestIntakeService_GivesUpAfterThreeCollisions(t *testing.T) {
	repo := &countingRepo{Repository: NewInMemoryRepository(), failN: 5, err: ErrDuplicateToken}
	tokens := 0
	svc := NewIntakeService(repo, nil, withTokenSource(func() (string, error) {
		tokens++
		return "same", nil
	}))

	_, _, err := svc.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, maxTokenAttempts, repo.creates)
	assert.Equal(t, maxTokenAttempts, tokens)
}

func TestIntakeService_StoreErrorPropagates(t *testing.T) {
	boom := storeError("insert", errors.New("db down"))
	repo := &countingRepo{Repository: NewInMemoryRepository(), failN: 1, err: boom}
	svc := NewIntakeService(repo, nil)

	_, _, err := svc.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, 1, repo.creates)
}

func TestIntakeService_PublishesLeadCreated(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("queue full")}
	svc := NewIntakeService(NewInMemoryRepository(), nil,
		WithPublisher(pub),
		WithBaseURL("https://studio.example.com/"),
	)

	lead, _, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err, "publish failures must not fail intake")
	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, lead.ID, evt.LeadID)
	assert.True(t, strings.HasPrefix(evt.DashboardURL, "https://studio.example.com/project/"+lead.ID+"?token="))
}

func TestIntakeService_FullQueueDoesNotBlockSubmit(t *testing.T) {
	queue := events.NewMemoryQueue(1)
	require.NoError(t, queue.Send(context.Background(), "backlog", nil))
	svc := NewIntakeService(NewInMemoryRepository(), nil,
		WithPublisher(events.NewPublisher(queue, nil)),
	)

	type result struct {
		lead *Lead
		err  error
	}
	done := make(chan result, 1)
	go func() {
		lead, _, err := svc.Submit(context.Background(), validForm())
		done <- result{lead, err}
	}()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.NotEmpty(t, res.lead.ID)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full notification queue")
	}
	assert.Equal(t, 1, queue.Len())
}
