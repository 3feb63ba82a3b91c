package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

// newTopupTID builds the human-facing top-up transaction ID shown to the
// member and in admin notifications.
func newTopupTID() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "SAT-" + raw[:9]
}

// CreateTopup records a pending top-up request and returns it.
func (s *Store) CreateTopup(ctx context.Context, email string, amount, price int64, receiptURL string) (*models.TopupRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("topup amount must be positive, got %d", amount)
	}
	req := &models.TopupRequest{
		TID:        newTopupTID(),
		Email:      normalizeEmail(email),
		Amount:     amount,
		Price:      price,
		ReceiptURL: receiptURL,
		Status:     models.TopupStatusPending,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO topup_requests (tid, email, amount, price, receipt_url, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id, created_at`,
		req.TID, req.Email, req.Amount, req.Price, req.ReceiptURL, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create topup: %w", err)
	}
	return req, nil
}

// PendingTopups lists top-up requests awaiting an admin decision.
func (s *Store) PendingTopups(ctx context.Context) ([]models.TopupRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tid, email, amount, price, status, created_at
		 FROM topup_requests WHERE status = $1 ORDER BY created_at ASC`,
		models.TopupStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending topups: %w", err)
	}
	defer rows.Close()

	var reqs []models.TopupRequest
	for rows.Next() {
		var r models.TopupRequest
		if err := rows.Scan(&r.ID, &r.TID, &r.Email, &r.Amount, &r.Price, &r.Status, &r.CreatedAt); err != nil {
			s.logger.WithError(err).Error("Error scanning topup request")
			continue
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// ApproveTopup credits the member and flips the request to approved in one
// transaction, so a crash cannot credit twice or approve without crediting.
func (s *Store) ApproveTopup(ctx context.Context, topupID int64) (*models.TopupRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approve topup: %w", err)
	}
	defer tx.Rollback()

	req := &models.TopupRequest{ID: topupID}
	err = tx.QueryRowContext(ctx,
		`SELECT tid, email, amount, price, status, created_at
		 FROM topup_requests WHERE id = $1 FOR UPDATE`,
		topupID,
	).Scan(&req.TID, &req.Email, &req.Amount, &req.Price, &req.Status, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("topup %d: %w", topupID, ErrMemberNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load topup: %w", err)
	}
	if req.Status != models.TopupStatusPending {
		return nil, fmt.Errorf("topup %s is %s, not pending", req.TID, req.Status)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE members SET credits = credits + $2 WHERE email = $1`,
		req.Email, req.Amount,
	)
	if err != nil {
		return nil, fmt.Errorf("credit member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("credit rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrMemberNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE topup_requests SET status = $2 WHERE id = $1`,
		topupID, models.TopupStatusApproved,
	); err != nil {
		return nil, fmt.Errorf("mark topup approved: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve topup: %w", err)
	}

	req.Status = models.TopupStatusApproved
	return req, nil
}

// RejectTopup flips a pending request to rejected without touching credits.
func (s *Store) RejectTopup(ctx context.Context, topupID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE topup_requests SET status = $2 WHERE id = $1 AND status = $3`,
		topupID, models.TopupStatusRejected, models.TopupStatusPending,
	)
	if err != nil {
		return fmt.Errorf("reject topup: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("topup %d is not pending", topupID)
	}
	return nil
}
