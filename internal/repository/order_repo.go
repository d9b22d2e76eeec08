package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"ecfresh/internal/db"
)

// OrderRepository is the PostgreSQL OrderStore.
type OrderRepository struct {
	DB *sql.DB
}

func NewOrderRepository(conn *sql.DB) *OrderRepository {
	return &OrderRepository{DB: conn}
}

const orderColumns = `id, user_id, items, subtotal, delivery_fee, loyalty_used, loyalty_earned, total,
	delivery_date::text, time_slot, address, payment_method, payment_status, stripe_session_id,
	loyalty_applied, status, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*db.Order, error) {
	var o db.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Items, &o.Subtotal, &o.DeliveryFee, &o.LoyaltyUsed,
		&o.LoyaltyEarned, &o.Total, &o.DeliveryDate, &o.TimeSlot, &o.Address, &o.PaymentMethod,
		&o.PaymentStatus, &o.StripeSessionID, &o.LoyaltyApplied, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, o *db.Order) error {
	stamp(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, items, subtotal, delivery_fee, loyalty_used, loyalty_earned, total,
			delivery_date, time_slot, address, payment_method, payment_status, stripe_session_id,
			loyalty_applied, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		o.ID, o.UserID, o.Items, o.Subtotal, o.DeliveryFee, o.LoyaltyUsed, o.LoyaltyEarned, o.Total,
		o.DeliveryDate, o.TimeSlot, o.Address, o.PaymentMethod, o.PaymentStatus, o.StripeSessionID,
		o.LoyaltyApplied, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*db.Order, error) {
	o, err := scanOrder(r.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return o, nil
}

func (r *OrderRepository) GetOrderByStripeSession(ctx context.Context, sessionID string) (*db.Order, error) {
	o, err := scanOrder(r.DB.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE stripe_session_id = $1 AND stripe_session_id <> ''`, sessionID))
	if err != nil {
		return nil, notFound(err, "order for session", sessionID)
	}
	return o, nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, f OrderFilter) ([]db.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if f.UserID != "" {
		query += " AND user_id = $" + strconv.Itoa(idx)
		args = append(args, f.UserID)
		idx++
	}
	if f.Status != "" {
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, f.Status)
		idx++
	}
	query += " ORDER BY created_at DESC"

	return r.queryOrders(ctx, query, args...)
}

func (r *OrderRepository) UpdateOrder(ctx context.Context, o *db.Order, prev OrderState) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, stripe_session_id = $4,
			loyalty_applied = $5, updated_at = $6
		WHERE id = $1 AND status = $7 AND payment_status = $8 AND loyalty_applied = $9`,
		o.ID, o.Status, o.PaymentStatus, o.StripeSessionID, o.LoyaltyApplied, now,
		prev.Status, prev.PaymentStatus, prev.LoyaltyApplied)
	if err != nil {
		return fmt.Errorf("error updating order %s: %w", o.ID, err)
	}
	if err := requireRow(res); err != nil {
		var exists bool
		if qerr := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); qerr != nil {
			return fmt.Errorf("error checking order %s: %w", o.ID, qerr)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStale
	}
	o.UpdatedAt = now
	return nil
}

// ReassignOrders is a no-op after RekeyUser, whose id change cascades to
// orders, but keeps stores without foreign keys consistent.
func (r *OrderRepository) ReassignOrders(ctx context.Context, fromUserID, toUserID string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE orders SET user_id = $2 WHERE user_id = $1`, fromUserID, toUserID)
	if err != nil {
		return fmt.Errorf("error reassigning orders of %s: %w", fromUserID, err)
	}
	return nil
}

func (r *OrderRepository) ListStalePending(ctx context.Context, before time.Time) ([]db.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE status = $1 AND payment_method = $2 AND created_at < $3
		ORDER BY created_at`,
		db.OrderStatusPending, db.PaymentOnline, before)
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]db.Order, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying orders: %w", err)
	}
	defer rows.Close()

	var orders []db.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating order rows: %w", err)
	}
	return orders, nil
}

// PostgresStore is the PostgreSQL Store.
type PostgresStore struct {
	*CatalogRepository
	*OrderRepository
}

func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{
		CatalogRepository: NewCatalogRepository(conn),
		OrderRepository:   NewOrderRepository(conn),
	}
}
