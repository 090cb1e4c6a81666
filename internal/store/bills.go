package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/campusmint/backend/internal/cursor"
	"github.com/campusmint/backend/internal/models"
)

// BillQuery narrows and pages a bill listing.
type BillQuery struct {
	// Limit caps the page size; 0 means the default.
	Limit int
	// Cursor resumes a previous page. Malformed cursors are ignored.
	Cursor string
	// Status filters to one lifecycle state when non-nil.
	Status *models.BillStatus
}

// BillPage is one page of bills plus the token for the next one.
type BillPage struct {
	Items      []models.Bill
	NextCursor string
}

// BillStore persists bills. Bills are the one mutable record in the system;
// Save is an upsert keyed on id.
type BillStore struct {
	db *sql.DB
}

func NewBillStore(db *sql.DB) *BillStore {
	return &BillStore{db: db}
}

const billColumns = "id, amount, user_id, project_id, description, status, idempotency_key, created_at"

// FindByID returns the bill, or nil when no such row exists.
func (s *BillStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	row := q(ctx, s.db).QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE id = $1", id)

	bill, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding bill %s: %w", id, err)
	}
	return &bill, nil
}

// FindByUser pages through the bills addressed to one user, newest first.
func (s *BillStore) FindByUser(ctx context.Context, userID uuid.UUID, query BillQuery) (BillPage, error) {
	return s.page(ctx, "user_id", userID, query)
}

// FindByProject pages through the bills a project has issued, newest first.
func (s *BillStore) FindByProject(ctx context.Context, projectID uuid.UUID, query BillQuery) (BillPage, error) {
	return s.page(ctx, "project_id", projectID, query)
}

// Save upserts the bill.
func (s *BillStore) Save(ctx context.Context, bill models.Bill) error {
	_, err := q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO bills (id, amount, user_id, project_id, description, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			idempotency_key = EXCLUDED.idempotency_key`,
		bill.ID, bill.Amount, bill.UserID, bill.ProjectID,
		nullIfEmpty(bill.Description), string(bill.Status),
		nullIfEmpty(bill.IdempotencyKey), bill.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving bill %s: %w", bill.ID, err)
	}
	return nil
}

func (s *BillStore) page(ctx context.Context, ownerColumn string, ownerID uuid.UUID, query BillQuery) (BillPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	sqlQuery := "SELECT " + billColumns + " FROM bills WHERE " + ownerColumn + " = $1"
	args := []any{ownerID}

	if createdAt, id, ok := cursor.DecodeTime(query.Cursor); ok {
		sqlQuery += fmt.Sprintf(
			" AND (created_at < $%d OR (created_at = $%d AND id < $%d))",
			len(args)+1, len(args)+1, len(args)+2)
		args = append(args, createdAt, id)
	}
	if query.Status != nil {
		sqlQuery += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, string(*query.Status))
	}

	sqlQuery += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args)+1)
	args = append(args, limit+1)

	rows, err := q(ctx, s.db).QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return BillPage{}, fmt.Errorf("listing bills: %w", err)
	}
	defer rows.Close()

	var items []models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return BillPage{}, fmt.Errorf("scanning bill: %w", err)
		}
		items = append(items, bill)
	}
	if err := rows.Err(); err != nil {
		return BillPage{}, fmt.Errorf("listing bills: %w", err)
	}

	page := BillPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = cursor.EncodeTime(last.CreatedAt, last.ID)
	}
	return page, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (models.Bill, error) {
	var (
		bill           models.Bill
		description    sql.NullString
		status         string
		idempotencyKey sql.NullString
	)
	err := row.Scan(&bill.ID, &bill.Amount, &bill.UserID, &bill.ProjectID,
		&description, &status, &idempotencyKey, &bill.CreatedAt)
	if err != nil {
		return models.Bill{}, err
	}

	bill.Description = description.String
	bill.IdempotencyKey = idempotencyKey.String
	bill.Status, err = models.ParseBillStatus(status)
	if err != nil {
		return models.Bill{}, err
	}
	return bill, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
