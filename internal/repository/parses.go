package repository

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pantrytrack/receipt-parser/constants"
	"github.com/pantrytrack/receipt-parser/internal/entity"
)

//go:embed schema.sql
var schemaSQL string

// StoredParse is one persisted parse result with its items.
type StoredParse struct {
	ID          uuid.UUID
	HouseholdID string
	Merchant    string
	Subtotal    *int64
	Total       *int64
	Confidence  float32
	Method      constants.ParseMethod
	NeedsReview bool
	Notes       []string
	Items       []entity.ParsedItem
	CreatedAt   time.Time
}

// ParseStore persists parse results for the downstream pantry application.
type ParseStore interface {
	SaveResult(ctx context.Context, householdID string, res *entity.ReceiptParseResult) (uuid.UUID, error)
	ListResults(ctx context.Context, householdID string, from, to *time.Time) ([]*StoredParse, error)
}

type parseStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewParseStore(pool *pgxpool.Pool, logger *slog.Logger) ParseStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &parseStore{pool: pool, logger: logger}
}

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *parseStore) SaveResult(ctx context.Context, householdID string, res *entity.ReceiptParseResult) (uuid.UUID, error) {
	id := uuid.New()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO receipt_parses
			(id, household_id, merchant, subtotal_cents, total_cents, confidence, method, needs_review, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, householdID, res.Merchant, res.SubtotalCents, res.TotalCents,
		res.Confidence, string(res.Method), res.NeedsReview, res.ProcessingNotes,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert parse: %w", err)
	}

	for i, it := range res.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO parse_items
				(parse_id, position, raw_name, parsed_name, price_cents, department, source, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, i, it.RawName, it.ParsedName, it.PriceCents, it.Department, string(it.Source), it.Confidence,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert item %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("repository.parse.saved",
		"parse_id", id, "household_id", householdID, "items", len(res.Items))
	return id, nil
}

func (s *parseStore) ListResults(ctx context.Context, householdID string, from, to *time.Time) ([]*StoredParse, error) {
	query := `
		SELECT id, household_id, merchant, subtotal_cents, total_cents,
		       confidence, method, needs_review, notes, created_at
		FROM receipt_parses
		WHERE household_id = $1`
	args := []any{householdID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to list parses", "household_id", householdID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var parses []*StoredParse
	for rows.Next() {
		var p StoredParse
		var method string
		if err := rows.Scan(&p.ID, &p.HouseholdID, &p.Merchant, &p.Subtotal, &p.Total,
			&p.Confidence, &method, &p.NeedsReview, &p.Notes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan parse: %w", err)
		}
		p.Method = constants.ParseMethod(method)
		parses = append(parses, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range parses {
		items, err := s.listItems(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Items = items
	}
	return parses, nil
}

func (s *parseStore) listItems(ctx context.Context, parseID uuid.UUID) ([]entity.ParsedItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT raw_name, parsed_name, price_cents, department, source, confidence
		FROM parse_items
		WHERE parse_id = $1
		ORDER BY position`, parseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []entity.ParsedItem
	for rows.Next() {
		var it entity.ParsedItem
		var source string
		if err := rows.Scan(&it.RawName, &it.ParsedName, &it.PriceCents, &it.Department, &source, &it.Confidence); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Source = constants.ParseMethod(source)
		items = append(items, it)
	}
	return items, rows.Err()
}
