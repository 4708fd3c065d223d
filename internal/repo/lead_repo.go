package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/followup/internal/domain"
)

const leadColumns = `id, email, status, last_contacted_at, email_interval, created_at, updated_at`

// LeadRepo — репозиторий для работы с leads.
type LeadRepo struct {
	pool *pgxpool.Pool
}

// NewLeadRepo создаёт новый LeadRepo.
func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

// LeadFilter — параметры фильтрации leads.
type LeadFilter struct {
	Status *domain.LeadStatus
	Limit  int
	Offset int
}

// Create создаёт новый lead.
func (r *LeadRepo) Create(ctx context.Context, lead *domain.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query, leadArgs(lead)...)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// CreateMany создаёт leads в одной транзакции: либо все, либо ни одного.
func (r *LeadRepo) CreateMany(ctx context.Context, leads []*domain.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, lead := range leads {
		batch.Queue(`
			INSERT INTO leads (`+leadColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, leadArgs(lead)...)
	}

	br := tx.SendBatch(ctx, batch)
	for range leads {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert lead batch: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID возвращает lead по ID.
func (r *LeadRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// List возвращает leads с фильтрацией.
func (r *LeadRepo) List(ctx context.Context, filter LeadFilter) ([]domain.Lead, error) {
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, status, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return collectLeads(rows)
}

// ListByStatus возвращает все leads с указанным статусом.
// Используется scheduler'ом для выборки кандидатов на рассылку.
func (r *LeadRepo) ListByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE status = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list leads by status: %w", err)
	}
	return collectLeads(rows)
}

// UpdateLastContacted продвигает last_contacted_at.
//
// Обновление применяется только к active lead'ам и только вперёд по времени;
// иначе возвращается ErrStaleUpdate (или ErrNotFound, если lead'а нет).
func (r *LeadRepo) UpdateLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET last_contacted_at = $2, updated_at = now()
		WHERE id = $1
		  AND status = 'active'
		  AND (last_contacted_at IS NULL OR last_contacted_at <= $2)
	`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("update last contacted: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrStaleUpdate
}

// SetStatus меняет статус lead'а.
func (r *LeadRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет lead.
func (r *LeadRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll удаляет все leads и возвращает количество удалённых.
func (r *LeadRepo) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, fmt.Errorf("delete all leads: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

func leadArgs(lead *domain.Lead) []any {
	return []any{
		lead.ID,
		lead.Email,
		string(lead.Status),
		lead.LastContactedAt,
		lead.EmailInterval,
		lead.CreatedAt,
		lead.UpdatedAt,
	}
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var l domain.Lead
	var status string

	err := row.Scan(
		&l.ID,
		&l.Email,
		&status,
		&l.LastContactedAt,
		&l.EmailInterval,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	l.Status = domain.LeadStatus(status)
	return &l, nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}
