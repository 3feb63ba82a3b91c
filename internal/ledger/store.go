// Package ledger owns the persistent credit ledger: member balances, charge
// receipts and top-up requests, keyed by lowercased email.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

var (
	// ErrInsufficientCredits is returned when a debit would take the
	// balance below zero. No mutation happens in that case.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrMemberNotFound is returned when the email has no ledger row.
	ErrMemberNotFound = errors.New("member not found")
)

// presenceWindow is how recently a member must have been seen to count as
// online.
const presenceWindow = 150 * time.Second

// Store is the Postgres-backed ledger.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	admins map[string]struct{}
}

// New creates a Store. adminEmails is the static allow-list; comparison is
// case-insensitive.
func New(db *sql.DB, logger logging.Logger, adminEmails []string) *Store {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			admins[e] = struct{}{}
		}
	}
	return &Store{db: db, logger: logger, admins: admins}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdmin reports whether the email is on the static admin allow-list.
// Administrators have unlimited, untracked spend.
func (s *Store) IsAdmin(email string) bool {
	_, ok := s.admins[normalizeEmail(email)]
	return ok
}

// Balance returns the member's current credit balance.
func (s *Store) Balance(ctx context.Context, email string) (int64, error) {
	var credits int64
	err := s.db.QueryRowContext(ctx,
		`SELECT credits FROM members WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&credits)
	if err == sql.ErrNoRows {
		return 0, ErrMemberNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return credits, nil
}

// Member returns the full member record, with admin and online flags
// derived.
func (s *Store) Member(ctx context.Context, email string) (*models.Member, error) {
	m := &models.Member{}
	var validUntil, lastSeen sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT email, credits, status, valid_until, last_seen, created_at
		 FROM members WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&m.Email, &m.Credits, &m.Status, &validUntil, &lastSeen, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	if validUntil.Valid {
		m.ValidUntil = &validUntil.Time
	}
	if lastSeen.Valid {
		m.LastSeen = &lastSeen.Time
		m.Online = time.Since(lastSeen.Time) < presenceWindow
	}
	m.IsAdmin = s.IsAdmin(m.Email)
	return m, nil
}

// Debit subtracts amount from the member's balance as a single conditional
// update, so concurrent charges against one account can never overspend.
func (s *Store) Debit(ctx context.Context, email string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	email = normalizeEmail(email)

	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET credits = credits - $2 WHERE email = $1 AND credits >= $2`,
		email, amount,
	)
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit rows affected: %w", err)
	}
	if affected == 0 {
		// Either the member does not exist or the balance was short.
		if _, err := s.Balance(ctx, email); err != nil {
			return err
		}
		return ErrInsufficientCredits
	}
	return nil
}

// Credit adds amount to the member's balance.
func (s *Store) Credit(ctx context.Context, email string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET credits = credits + $2 WHERE email = $1`,
		normalizeEmail(email), amount,
	)
	if err != nil {
		return fmt.Errorf("credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit rows affected: %w", err)
	}
	if affected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// SetBalance overwrites the member's balance. Admin manual adjust only.
func (s *Store) SetBalance(ctx context.Context, email string, credits int64) error {
	if credits < 0 {
		return fmt.Errorf("balance cannot be negative, got %d", credits)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET credits = $2 WHERE email = $1`,
		normalizeEmail(email), credits,
	)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set balance rows affected: %w", err)
	}
	if affected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// SaveReceipt persists the record of a successful charge.
func (s *Store) SaveReceipt(ctx context.Context, r *models.Receipt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO receipts (id, email, kind, cost, refunded, charged_at)
		 VALUES ($1, $2, $3, $4, false, $5)`,
		r.ID, normalizeEmail(r.Email), r.Kind, r.Cost, r.ChargedAt,
	)
	if err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}
	return nil
}

// MarkReceiptRefunded flags a receipt whose charge was credited back.
func (s *Store) MarkReceiptRefunded(ctx context.Context, receiptID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE receipts SET refunded = true WHERE id = $1`,
		receiptID,
	)
	if err != nil {
		return fmt.Errorf("mark receipt refunded: %w", err)
	}
	return nil
}

// Touch upserts the member's last-seen timestamp for presence tracking.
func (s *Store) Touch(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (email, credits, status, last_seen, created_at)
		 VALUES ($1, 0, $2, NOW(), NOW())
		 ON CONFLICT (email) DO UPDATE SET last_seen = NOW(), status = $2`,
		email, models.MemberStatusActive,
	)
	if err != nil {
		return fmt.Errorf("touch presence: %w", err)
	}
	return nil
}

// Members lists all members with derived admin and online flags.
func (s *Store) Members(ctx context.Context) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, credits, status, valid_until, last_seen, created_at
		 FROM members ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		var validUntil, lastSeen sql.NullTime
		if err := rows.Scan(&m.Email, &m.Credits, &m.Status, &validUntil, &lastSeen, &m.CreatedAt); err != nil {
			s.logger.WithError(err).Error("Error scanning member")
			continue
		}
		if validUntil.Valid {
			m.ValidUntil = &validUntil.Time
		}
		if lastSeen.Valid {
			m.LastSeen = &lastSeen.Time
			m.Online = time.Since(lastSeen.Time) < presenceWindow
		}
		m.IsAdmin = s.IsAdmin(m.Email)
		members = append(members, m)
	}
	return members, rows.Err()
}
