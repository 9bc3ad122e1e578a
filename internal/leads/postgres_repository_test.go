package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadRowColumns = []string{"id", "email", "business_name", "category", "website_goal", "description", "inspiration_template", "access_token", "created_at"}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "a@b.com", "Bella's Bakery", "Restaurant or Cafe", "", "", "", "tok").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	lead, err := repo.Create(context.Background(), &CreateLeadRequest{
		Email:        "a@b.com",
		BusinessName: "Bella's Bakery",
		Category:     "Restaurant or Cafe",
		AccessToken:  "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, created, lead.CreatedAt)
	assert.Equal(t, "tok", lead.AccessToken)
	_, err = uuid.Parse(lead.ID)
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateDuplicateToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	mock.ExpectQuery("INSERT INTO leads").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "leads_access_token_key"})

	_, err = repo.Create(context.Background(), &CreateLeadRequest{AccessToken: "tok"})
	assert.ErrorIs(t, err, ErrDuplicateToken)

	mock.ExpectQuery("INSERT INTO leads").WillReturnError(errors.New("connection reset"))
	_, err = repo.Create(context.Background(), &CreateLeadRequest{AccessToken: "tok-2"})
	assert.ErrorIs(t, err, ErrStore)
}

func TestPostgresRepository_GetByIDAndToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id = \\$1 AND access_token = \\$2").
		WithArgs(id, "good").
		WillReturnRows(pgxmock.NewRows(leadRowColumns).
			AddRow(id, "a@b.com", "Bella's Bakery", "Restaurant or Cafe", "", "", "", "good", now))

	lead, err := repo.GetByIDAndToken(context.Background(), id.String(), "good")
	require.NoError(t, err)
	assert.Equal(t, id.String(), lead.ID)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id = \\$1 AND access_token = \\$2").
		WithArgs(id, "bad").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByIDAndToken(context.Background(), id.String(), "bad")
	assert.Equal(t, ErrLeadNotFound, err)

	// malformed ids and empty tokens never reach the database
	_, err = repo.GetByIDAndToken(context.Background(), "not-a-uuid", "good")
	assert.Equal(t, ErrLeadNotFound, err)
	_, err = repo.GetByIDAndToken(context.Background(), id.String(), "")
	assert.Equal(t, ErrLeadNotFound, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(errors.New("timeout"))

	_, err = repo.GetByID(context.Background(), id.String())
	assert.ErrorIs(t, err, ErrStore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	newer, older := uuid.New(), uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("ORDER BY created_at DESC").
		WillReturnRows(pgxmock.NewRows(leadRowColumns).
			AddRow(newer, "n@x.com", "Newer", "Nonprofit", "", "", "", "t1", now).
			AddRow(older, "o@x.com", "Older", "Retail Shop", "", "", "", "t2", now.Add(-time.Hour)))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.String(), list[0].ID)
	assert.Equal(t, older.String(), list[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
