package messages

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

const foreignKeyViolation = "23503"

// ErrUnknownLead is returned when a message references a lead that does not exist.
var ErrUnknownLead = errors.New("lead does not exist")

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores messages in the messages table.
type PostgresRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("messages: pgx pool required")
	}
	return &PostgresRepository{
		pool:   pool,
		tracer: otel.Tracer("sitecraft.internal.messages.postgres"),
	}
}

func (r *PostgresRepository) Create(ctx context.Context, leadID string, sender Sender, content string) (*Message, error) {
	if !sender.Valid() {
		return nil, ErrInvalidSender
	}
	body, err := NormalizeContent(content)
	if err != nil {
		return nil, err
	}
	lead, err := uuid.Parse(leadID)
	if err != nil {
		return nil, ErrUnknownLead
	}

	ctx, span := r.tracer.Start(ctx, "messages.create", trace.WithAttributes(
		attribute.String("lead.id", leadID),
		attribute.String("message.sender", string(sender)),
	))
	defer span.End()

	id := uuid.New()
	var createdAt time.Time
	err = r.pool.QueryRow(ctx, `
		INSERT INTO messages (id, lead_id, sender, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, id, lead, string(sender), body).Scan(&createdAt)
	if err != nil {
		span.RecordError(err)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, ErrUnknownLead
		}
		return nil, storeError("insert", err)
	}

	return &Message{
		ID:        id.String(),
		LeadID:    leadID,
		Sender:    sender,
		Content:   body,
		CreatedAt: createdAt,
	}, nil
}

func (r *PostgresRepository) ListForLead(ctx context.Context, leadID string) ([]*Message, error) {
	lead, err := uuid.Parse(leadID)
	if err != nil {
		return []*Message{}, nil
	}

	ctx, span := r.tracer.Start(ctx, "messages.list", trace.WithAttributes(attribute.String("lead.id", leadID)))
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, sender, content, created_at
		FROM messages
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, lead)
	if err != nil {
		span.RecordError(err)
		return nil, storeError("list", err)
	}
	defer rows.Close()

	out := []*Message{}
	for rows.Next() {
		var (
			msg         Message
			id, msgLead uuid.UUID
			sender      string
		)
		if err := rows.Scan(&id, &msgLead, &sender, &msg.Content, &msg.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, storeError("scan", err)
		}
		msg.ID = id.String()
		msg.LeadID = msgLead.String()
		msg.Sender = Sender(sender)
		out = append(out, &msg)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, storeError("list", err)
	}
	span.SetAttributes(attribute.Int("message.count", len(out)))
	return out, nil
}
