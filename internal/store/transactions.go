package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campusmint/backend/internal/cursor"
	"github.com/campusmint/backend/internal/models"
)

// TransactionQuery narrows and pages a transaction listing.
type TransactionQuery struct {
	// Limit caps the page size; 0 means the default, negative means no limit
	// (used by the stats job to pull a whole window).
	Limit int
	// Cursor resumes a previous page. Malformed cursors are ignored.
	Cursor string
	// Since keeps only rows strictly newer than this instant when non-zero.
	Since time.Time
}

// TransactionPage is one page of transactions plus the next-page token.
type TransactionPage struct {
	Items      []models.Transaction
	NextCursor string
}

// BalanceChange sums the directional flows for one entity after an instant.
type BalanceChange struct {
	InAmount  int64
	OutAmount int64
}

// Net is the signed balance movement.
func (c BalanceChange) Net() int64 { return c.InAmount - c.OutAmount }

// TransactionStore is the local mirror of ledger-confirmed movements.
// Append-only: rows are inserted once and never updated or deleted.
type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const transactionColumns = "id, type, amount, project_id, user_id, description, created_at"

// Save appends a transaction record.
func (s *TransactionStore) Save(ctx context.Context, tx models.Transaction) error {
	_, err := q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount, project_id, user_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, string(tx.Type), tx.Amount, tx.ProjectID, tx.UserID,
		nullIfEmpty(tx.Description), tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving transaction %s: %w", tx.ID, err)
	}
	return nil
}

// FindByID returns the transaction, or nil when no such row exists.
func (s *TransactionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := q(ctx, s.db).QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding transaction %s: %w", id, err)
	}
	return &tx, nil
}

// FindAll pages through every transaction, newest first.
func (s *TransactionStore) FindAll(ctx context.Context, query TransactionQuery) (TransactionPage, error) {
	return s.page(ctx, "", uuid.Nil, query)
}

// FindByUser pages through one user's transactions, newest first.
func (s *TransactionStore) FindByUser(ctx context.Context, userID uuid.UUID, query TransactionQuery) (TransactionPage, error) {
	return s.page(ctx, "user_id", userID, query)
}

// FindByProject pages through one project's transactions, newest first.
func (s *TransactionStore) FindByProject(ctx context.Context, projectID uuid.UUID, query TransactionQuery) (TransactionPage, error) {
	return s.page(ctx, "project_id", projectID, query)
}

// UserBalanceChangeAfter sums a user's inflow and outflow strictly after the
// given instant. TRANSFER and SYSTEM credit users; BILL_PAYMENT debits them.
func (s *TransactionStore) UserBalanceChangeAfter(ctx context.Context, userID uuid.UUID, after time.Time) (BalanceChange, error) {
	return s.balanceChange(ctx, "user_id", userID, after,
		[]models.TransactionType{models.TransactionTransfer, models.TransactionSystem},
		[]models.TransactionType{models.TransactionBillPayment})
}

// ProjectBalanceChangeAfter sums a project's inflow and outflow strictly
// after the given instant. BILL_PAYMENT and SYSTEM credit projects; TRANSFER
// debits them.
func (s *TransactionStore) ProjectBalanceChangeAfter(ctx context.Context, projectID uuid.UUID, after time.Time) (BalanceChange, error) {
	return s.balanceChange(ctx, "project_id", projectID, after,
		[]models.TransactionType{models.TransactionBillPayment, models.TransactionSystem},
		[]models.TransactionType{models.TransactionTransfer})
}

func (s *TransactionStore) balanceChange(
	ctx context.Context,
	ownerColumn string,
	ownerID uuid.UUID,
	after time.Time,
	inTypes, outTypes []models.TransactionType,
) (BalanceChange, error) {
	var change BalanceChange

	in, err := s.sumByTypes(ctx, ownerColumn, ownerID, after, inTypes)
	if err != nil {
		return change, err
	}
	out, err := s.sumByTypes(ctx, ownerColumn, ownerID, after, outTypes)
	if err != nil {
		return change, err
	}

	change.InAmount = in
	change.OutAmount = out
	return change, nil
}

func (s *TransactionStore) sumByTypes(
	ctx context.Context,
	ownerColumn string,
	ownerID uuid.UUID,
	after time.Time,
	types []models.TransactionType,
) (int64, error) {
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	var total sql.NullInt64
	err := q(ctx, s.db).QueryRowContext(ctx, `
		SELECT SUM(amount) FROM transactions
		WHERE `+ownerColumn+` = $1 AND created_at > $2 AND type = ANY($3)`,
		ownerID, after, pq.Array(typeNames)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing transactions: %w", err)
	}
	return total.Int64, nil
}

func (s *TransactionStore) page(ctx context.Context, ownerColumn string, ownerID uuid.UUID, query TransactionQuery) (TransactionPage, error) {
	limit := query.Limit
	if limit == 0 {
		limit = defaultPageSize
	}

	sqlQuery := "SELECT " + transactionColumns + " FROM transactions"
	var (
		conditions []string
		args       []any
	)

	if ownerColumn != "" {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", ownerColumn, len(args)+1))
		args = append(args, ownerID)
	}
	if createdAt, id, ok := cursor.DecodeTime(query.Cursor); ok {
		conditions = append(conditions, fmt.Sprintf(
			"(created_at < $%d OR (created_at = $%d AND id < $%d))",
			len(args)+1, len(args)+1, len(args)+2))
		args = append(args, createdAt, id)
	}
	if !query.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", len(args)+1))
		args = append(args, query.Since)
	}

	for i, cond := range conditions {
		if i == 0 {
			sqlQuery += " WHERE " + cond
		} else {
			sqlQuery += " AND " + cond
		}
	}
	sqlQuery += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit+1)
	}

	rows, err := q(ctx, s.db).QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return TransactionPage{}, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var items []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return TransactionPage{}, fmt.Errorf("scanning transaction: %w", err)
		}
		items = append(items, tx)
	}
	if err := rows.Err(); err != nil {
		return TransactionPage{}, fmt.Errorf("listing transactions: %w", err)
	}

	page := TransactionPage{Items: items}
	if limit > 0 && len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = cursor.EncodeTime(last.CreatedAt, last.ID)
	}
	return page, nil
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		tx          models.Transaction
		txType      string
		projectID   uuid.NullUUID
		userID      uuid.NullUUID
		description sql.NullString
	)
	err := row.Scan(&tx.ID, &txType, &tx.Amount, &projectID, &userID,
		&description, &tx.CreatedAt)
	if err != nil {
		return models.Transaction{}, err
	}

	if projectID.Valid {
		id := projectID.UUID
		tx.ProjectID = &id
	}
	if userID.Valid {
		id := userID.UUID
		tx.UserID = &id
	}
	tx.Description = description.String
	tx.Type, err = models.ParseTransactionType(txType)
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}
