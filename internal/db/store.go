package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rescueaii/rescue-ai-web/internal/cases"
	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

// Store is the postgres record store. Single-row updates are atomic per
// call; that atomicity is the only consistency primitive the pipeline
// relies on.
type Store struct {
	Pool *pgxpool.Pool
}

var _ cases.Store = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const caseColumns = `id, language, location_text, latitude, longitude, location_source,
	priority, urgency_score, category, escalation_needed, status, assigned_to,
	last_message, triage_data, created_at, updated_at`

func (s *Store) CreateCase(ctx context.Context, c models.Case) (models.Case, error) {
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.Pool.Exec(ctx, `
		INSERT INTO cases (id, language, location_text, latitude, longitude, location_source,
			priority, urgency_score, category, escalation_needed, status, assigned_to,
			last_message, triage_data, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, c.ID, c.Language, c.LocationText, c.Latitude, c.Longitude, c.LocationSource,
		c.Priority, c.UrgencyScore, c.Category, c.EscalationNeeded, c.Status, c.AssignedTo,
		c.LastMessage, c.TriageData, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return models.Case{}, err
	}
	return c, nil
}

func (s *Store) GetCase(ctx context.Context, id string) (models.Case, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
	return scanCase(row)
}

func (s *Store) ListCases(ctx context.Context, status string) ([]models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY urgency_score DESC, created_at DESC`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SetLocation(ctx context.Context, id, text string, lat, lng float64, source string) (models.Case, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE cases
		SET location_text = $1, latitude = $2, longitude = $3, location_source = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING `+caseColumns, text, lat, lng, source, id)
	return scanCase(row)
}

// SetStatus updates the status and, when assignee is non-nil, the assignee.
// Last write wins; there is no version check.
func (s *Store) SetStatus(ctx context.Context, id, status string, assignee *string) (models.Case, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE cases
		SET status = $1, assigned_to = COALESCE($2, assigned_to), updated_at = NOW()
		WHERE id = $3
		RETURNING `+caseColumns, status, assignee, id)
	return scanCase(row)
}

// ApplyTriage overwrites the triage fields and appends the assistant reply
// in one transaction.
func (s *Store) ApplyTriage(ctx context.Context, id string, v models.TriageVerdict, lastMessage string, raw []byte) (models.Case, models.Message, error) {
	var (
		updated models.Case
		msg     models.Message
	)
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE cases
			SET priority = $1, urgency_score = $2, category = $3, escalation_needed = $4,
				last_message = $5, triage_data = $6, updated_at = NOW()
			WHERE id = $7
			RETURNING `+caseColumns,
			v.Priority, v.UrgencyScore, v.Category, v.EscalationNeeded, lastMessage, raw, id)
		var err error
		if updated, err = scanCase(row); err != nil {
			return err
		}
		msg = models.Message{
			ID:        uuid.NewString(),
			CaseID:    id,
			Sender:    models.SenderAssistant,
			Content:   v.Reply,
			CreatedAt: time.Now().UTC(),
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO messages (id, case_id, sender, content, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, msg.ID, msg.CaseID, msg.Sender, msg.Content, msg.CreatedAt)
		return err
	})
	if err != nil {
		return models.Case{}, models.Message{}, err
	}
	return updated, msg, nil
}

func (s *Store) InsertMessage(ctx context.Context, m models.Message) (models.Message, error) {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()

	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO messages (id, case_id, sender, content, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, m.ID, m.CaseID, m.Sender, m.Content, m.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE cases SET updated_at = NOW() WHERE id = $1`, m.CaseID)
		return err
	})
	if err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ListMessages returns the case's conversation in creation order, the order
// the classifier must receive it.
func (s *Store) ListMessages(ctx context.Context, caseID string) ([]models.Message, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, case_id, sender, content, created_at
		FROM messages
		WHERE case_id = $1
		ORDER BY created_at ASC, id ASC
	`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.CaseID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanCase(row pgx.Row) (models.Case, error) {
	var c models.Case
	err := row.Scan(
		&c.ID, &c.Language, &c.LocationText, &c.Latitude, &c.Longitude, &c.LocationSource,
		&c.Priority, &c.UrgencyScore, &c.Category, &c.EscalationNeeded, &c.Status, &c.AssignedTo,
		&c.LastMessage, &c.TriageData, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Case{}, cases.ErrNotFound
		}
		return models.Case{}, err
	}
	return c, nil
}
