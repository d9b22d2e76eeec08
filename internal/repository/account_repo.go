package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecfresh/internal/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// AccountRepository is the PostgreSQL AccountDirectory.
type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(conn *sql.DB) *AccountRepository {
	return &AccountRepository{DB: conn}
}

const userColumns = `id, email, name, phone, pin_code, loyalty_points, total_purchases, is_admin, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*db.User, error) {
	var u db.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PinCode,
		&u.LoyaltyPoints, &u.TotalPurchases, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *AccountRepository) GetUser(ctx context.Context, id string) (*db.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("error loading user %s: %w", id, err)
	}
	return u, err
}

func (r *AccountRepository) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("error loading user by email: %w", err)
	}
	return u, err
}

func (r *AccountRepository) CreateUser(ctx context.Context, u *db.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, name, phone, pin_code, loyalty_points, total_purchases, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.Name, u.Phone, u.PinCode, u.LoyaltyPoints, u.TotalPurchases, u.IsAdmin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, u *db.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET name = $2, phone = $3, pin_code = $4, updated_at = $5
		WHERE id = $1`,
		u.ID, u.Name, u.Phone, u.PinCode, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error updating user %s: %w", u.ID, err)
	}
	return requireRow(res)
}

func (r *AccountRepository) AdjustBalances(ctx context.Context, userID string, loyaltyDelta, purchasesDelta decimal.Decimal) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET loyalty_points = loyalty_points + $2,
			total_purchases = total_purchases + $3,
			updated_at = NOW()
		WHERE id = $1`,
		userID, loyaltyDelta, purchasesDelta)
	if err != nil {
		return fmt.Errorf("error adjusting balances for user %s: %w", userID, err)
	}
	return requireRow(res)
}

// RekeyUser changes the primary key; addresses and orders follow through
// ON UPDATE CASCADE.
func (r *AccountRepository) RekeyUser(ctx context.Context, oldID, newID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET id = $2, updated_at = NOW() WHERE id = $1`, oldID, newID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("error rekeying user %s: %w", oldID, err)
	}
	return requireRow(res)
}

// UpsertDefaultAddress replaces the user's default address.
func (r *AccountRepository) UpsertDefaultAddress(ctx context.Context, a *db.Address) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.IsDefault = true
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO addresses (id, user_id, name, phone, address, pin_code, landmark, optional_phone, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $9)
		ON CONFLICT (user_id) WHERE is_default DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			pin_code = EXCLUDED.pin_code,
			landmark = EXCLUDED.landmark,
			optional_phone = EXCLUDED.optional_phone,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.UserID, a.Name, a.Phone, a.Address, a.PinCode, a.Landmark, a.OptionalPhone, now)
	if err != nil {
		return fmt.Errorf("error saving address for user %s: %w", a.UserID, err)
	}
	return nil
}

func (r *AccountRepository) ListAddresses(ctx context.Context, userID string) ([]db.Address, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, name, phone, address, pin_code, landmark, optional_phone, is_default, created_at, updated_at
		FROM addresses WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying addresses: %w", err)
	}
	defer rows.Close()

	var out []db.Address
	for rows.Next() {
		var a db.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Phone, &a.Address, &a.PinCode,
			&a.Landmark, &a.OptionalPhone, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning address: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
