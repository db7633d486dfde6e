package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// PaymentLedger checks the payments table for a successful payment.
type PaymentLedger struct {
	pool *pgxpool.Pool
}

func NewPaymentLedger(pool *pgxpool.Pool) *PaymentLedger {
	return &PaymentLedger{pool: pool}
}

func (l *PaymentLedger) HasPaid(ctx context.Context, studentID, paperID string) (bool, error) {
	var paid bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE student_id=$1 AND paper_id=$2 AND status='success')`,
		studentID, paperID).Scan(&paid)
	if err != nil {
		return false, fmt.Errorf("check payment: %w", err)
	}
	return paid, nil
}

// StudentDirectory resolves student display names.
type StudentDirectory struct {
	pool *pgxpool.Pool
}

func NewStudentDirectory(pool *pgxpool.Pool) *StudentDirectory {
	return &StudentDirectory{pool: pool}
}

func (d *StudentDirectory) Names(ctx context.Context, studentIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}
	rows, err := d.pool.Query(ctx, `SELECT id, name FROM students WHERE id = ANY($1)`, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("load names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		out[id] = name
	}
	return out, rows.Err()
}
