package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

// Sealer encrypts payment metadata at rest. A nil Sealer stores plain JSON.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type paymentRepo struct {
	pool   *pgxpool.Pool
	sealer Sealer
}

func NewPaymentRepo(pool *pgxpool.Pool, sealer Sealer) *paymentRepo {
	return &paymentRepo{pool: pool, sealer: sealer}
}

const paymentCols = `id, user_id, amount, description, status, authority, ref_id, card_pan, card_hash, metadata, paid_at, verified_at, created_at, updated_at`

func (r *paymentRepo) scan(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var meta *string
	if err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Description, &p.Status, &p.Authority, &p.RefID, &p.CardPan, &p.CardHash, &meta, &p.PaidAt, &p.VerifiedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	if meta != nil && *meta != "" {
		m, err := r.openMeta(*meta)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		p.Metadata = m
	}
	return p, nil
}

func (r *paymentRepo) sealMeta(m *model.PaymentMetadata) (*string, error) {
	if m.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := string(b)
	if r.sealer != nil {
		if s, err = r.sealer.Encrypt(s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (r *paymentRepo) openMeta(s string) (*model.PaymentMetadata, error) {
	if r.sealer != nil {
		pt, err := r.sealer.Decrypt(s)
		if err != nil {
			return nil, err
		}
		s = pt
	}
	var m model.PaymentMetadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	meta, err := r.sealMeta(p.Metadata)
	if err != nil {
		return domain.ErrOperationFailed
	}
	const q = `
INSERT INTO payments (` + paymentCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`
	_, err = execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.Amount, p.Description, p.Status, p.Authority, p.RefID, p.CardPan, p.CardHash, meta, p.PaidAt, p.VerifiedAt, p.CreatedAt, p.UpdatedAt)
	return mapErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return r.scan(row)
}

func (r *paymentRepo) SetAuthority(ctx context.Context, tx repository.Tx, id, authority string) (bool, error) {
	if authority == "" {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE payments
   SET authority = $2,
       updated_at = NOW()
 WHERE id = $1
   AND authority = '';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, authority)
	if err != nil {
		return false, mapErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

// UpdateStatusIfPending is the only pending -> terminal transition.
func (r *paymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, v *model.PaymentVerification) (bool, error) {
	var refID, cardPan, cardHash *string
	var verifiedAt *time.Time
	if v != nil && status == model.PaymentStatusVerified {
		refID, cardPan, cardHash = nullable(v.RefID), nullable(v.CardPan), nullable(v.CardHash)
		at := v.VerifiedAt
		verifiedAt = &at
	}
	const q = `
UPDATE payments
   SET status = $2,
       ref_id = COALESCE($3, ref_id),
       card_pan = COALESCE($4, card_pan),
       card_hash = COALESCE($5, card_hash),
       verified_at = COALESCE($6, verified_at),
       paid_at = COALESCE($6, paid_at),
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), refID, cardPan, cardHash, verifiedAt)
	if err != nil {
		return false, mapErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
