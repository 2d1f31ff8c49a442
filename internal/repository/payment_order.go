package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// PaymentProof is a user-submitted payment reference (UTR) awaiting manual
// review. Proofs are durable: a human approves them out of band and then
// issues the premium grant, so losing one would lose money.
type PaymentProof struct {
	ID        uint64    // payment_proofs.id
	UserID    int64     // payment_proofs.user_id (Telegram user ID)
	UTR       string    // payment_proofs.utr
	Status    string    // payment_proofs.status (PENDING, APPROVED, REJECTED)
	CreatedAt time.Time // payment_proofs.created_at
}

// PremiumGrant is one audit row per administrative premium grant.
type PremiumGrant struct {
	ID        uint64    // premium_grants.id
	UserID    int64     // premium_grants.user_id
	Platform  string    // premium_grants.platform
	Count     int       // premium_grants.count
	GrantedBy string    // premium_grants.granted_by (admin identity)
	CreatedAt time.Time // premium_grants.created_at
}

// ErrDuplicateUTR is returned when a submitted payment reference was already
// recorded. The unique index on the utr column enforces this.
var ErrDuplicateUTR = errors.New("payment reference already submitted")

// PaymentRepo provides data access to the payment_proofs and premium_grants
// tables.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the provided database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateProof records a submitted UTR with PENDING status and returns the
// new row ID. Duplicate references map to ErrDuplicateUTR.
func (r *PaymentRepo) CreateProof(ctx context.Context, userID int64, utr string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_proofs (user_id, utr) VALUES (?, ?)`,
		userID, utr,
	)
	if err != nil {
		// MySQL error 1062: duplicate entry for a unique key.
		if strings.Contains(err.Error(), "1062") {
			return 0, ErrDuplicateUTR
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListRecentProofs returns the newest submissions first, capped at limit.
func (r *PaymentRepo) ListRecentProofs(ctx context.Context, limit int) ([]PaymentProof, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, utr, status, created_at
           FROM payment_proofs
          ORDER BY id DESC
          LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var proofs []PaymentProof
	for rows.Next() {
		var p PaymentProof
		if err := rows.Scan(&p.ID, &p.UserID, &p.UTR, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
	}
	return proofs, rows.Err()
}

// SetProofStatus updates the review status of a proof.
func (r *PaymentRepo) SetProofStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_proofs SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordGrant appends an audit row for an administrative premium grant.
func (r *PaymentRepo) RecordGrant(ctx context.Context, g PremiumGrant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO premium_grants (user_id, platform, count, granted_by) VALUES (?, ?, ?, ?)`,
		g.UserID, g.Platform, g.Count, g.GrantedBy,
	)
	return err
}
