package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const uniqueViolation = "23505"

// PgxPool is the subset of pgxpool.Pool the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{
		pool:   pool,
		tracer: otel.Tracer("sitecraft.internal.leads.postgres"),
	}
}

const leadColumns = `id, email, business_name, category, website_goal, description, inspiration_template, access_token, created_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if req == nil || req.AccessToken == "" {
		return nil, storeError("create", errMissingToken)
	}
	ctx, span := r.tracer.Start(ctx, "leads.create")
	defer span.End()

	id := uuid.New()
	query := `
		INSERT INTO leads (id, email, business_name, category, website_goal, description, inspiration_template, access_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.Email,
		req.BusinessName,
		req.Category,
		req.WebsiteGoal,
		req.Description,
		req.InspirationTemplate,
		req.AccessToken,
	).Scan(&createdAt); err != nil {
		span.RecordError(err)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "leads_access_token_key" {
			return nil, ErrDuplicateToken
		}
		return nil, storeError("insert", err)
	}
	span.SetAttributes(attribute.String("lead.id", id.String()))

	return &Lead{
		ID:                  id.String(),
		Email:               req.Email,
		BusinessName:        req.BusinessName,
		Category:            req.Category,
		WebsiteGoal:         req.WebsiteGoal,
		Description:         req.Description,
		InspirationTemplate: req.InspirationTemplate,
		AccessToken:         req.AccessToken,
		CreatedAt:           createdAt,
	}, nil
}

// GetByID fetches a lead for the operator view.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	leadID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrLeadNotFound
	}
	ctx, span := r.tracer.Start(ctx, "leads.get")
	defer span.End()

	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, leadID))
	if err != nil && !errors.Is(err, ErrLeadNotFound) {
		span.RecordError(err)
	}
	return lead, err
}

// GetByIDAndToken matches id and token in one predicate so a wrong token and
// a missing lead look the same to the caller.
func (r *PostgresRepository) GetByIDAndToken(ctx context.Context, id, token string) (*Lead, error) {
	leadID, err := uuid.Parse(id)
	if err != nil || token == "" {
		return nil, ErrLeadNotFound
	}
	ctx, span := r.tracer.Start(ctx, "leads.get_by_token")
	defer span.End()

	lead, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 AND access_token = $2`, leadID, token))
	if err != nil && !errors.Is(err, ErrLeadNotFound) {
		span.RecordError(err)
	}
	return lead, err
}

// List returns all leads newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Lead, error) {
	ctx, span := r.tracer.Start(ctx, "leads.list")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC, id DESC`)
	if err != nil {
		span.RecordError(err)
		return nil, storeError("list", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, storeError("list", err)
	}
	span.SetAttributes(attribute.Int("lead.count", len(out)))
	return out, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead Lead
		id   uuid.UUID
	)
	if err := row.Scan(
		&id,
		&lead.Email,
		&lead.BusinessName,
		&lead.Category,
		&lead.WebsiteGoal,
		&lead.Description,
		&lead.InspirationTemplate,
		&lead.AccessToken,
		&lead.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, storeError("select", err)
	}
	lead.ID = id.String()
	return &lead, nil
}
