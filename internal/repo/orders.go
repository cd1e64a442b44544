package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Order statuses walk forward only; cancelled is terminal from any
// pre-delivery state.
const (
	OrderStatusPlaced     = "placed"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusBaking     = "baking"
	OrderStatusDispatched = "dispatched"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order is a placed order with its priced summary snapshot.
type Order struct {
	ID            string
	UserID        string
	Status        string
	LocationID    string
	DeliveryName  string
	DeliveryPhone string
	DeliveryNotes string

	Subtotal       int64
	OriginalTotal  int64
	Savings        int64
	DeliveryCharge int64
	FreeCashUsed   int64
	GrandTotal     int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is one priced line of an order. Prices are snapshots taken at
// checkout so later catalog edits never change an existing order.
type OrderItem struct {
	ID           int64
	OrderID      string
	ProductID    string
	ProductName  string
	VariantLabel string
	VariantIndex int32
	Quantity     int32
	UnitPrice    int64
	UnitMRP      int64
	DiscountPct  int32
	IsFree       bool
}

// InsertOrderParams captures a new order header.
type InsertOrderParams struct {
	UserID        string
	LocationID    string
	DeliveryName  string
	DeliveryPhone string
	DeliveryNotes string

	Subtotal       int64
	OriginalTotal  int64
	Savings        int64
	DeliveryCharge int64
	FreeCashUsed   int64
	GrandTotal     int64
}

// InsertOrderItemParams captures one priced order line.
type InsertOrderItemParams struct {
	OrderID      string
	ProductID    string
	ProductName  string
	VariantLabel string
	VariantIndex int32
	Quantity     int32
	UnitPrice    int64
	UnitMRP      int64
	DiscountPct  int32
	IsFree       bool
}

// OrderSummary carries the recomputed totals written back by reconciliation.
type OrderSummary struct {
	Subtotal       int64
	OriginalTotal  int64
	Savings        int64
	DeliveryCharge int64
	FreeCashUsed   int64
	GrandTotal     int64
}

const orderColumns = `id, user_id, status, location_id, delivery_name, delivery_phone, delivery_notes,
	subtotal, original_total, savings, delivery_charge, free_cash_used, grand_total, created_at, updated_at`

// InsertOrder inserts an order header and returns the stored row.
func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	uid, err := toUUID(arg.UserID)
	if err != nil {
		return Order{}, pgx.ErrNoRows
	}
	var locationID any
	if arg.LocationID != "" {
		lid, err := toUUID(arg.LocationID)
		if err != nil {
			return Order{}, pgx.ErrNoRows
		}
		locationID = lid
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (user_id, status, location_id, delivery_name, delivery_phone, delivery_notes,
			subtotal, original_total, savings, delivery_charge, free_cash_used, grand_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+orderColumns,
		uid, OrderStatusPlaced, locationID, arg.DeliveryName, arg.DeliveryPhone, toText(arg.DeliveryNotes),
		arg.Subtotal, arg.OriginalTotal, arg.Savings, arg.DeliveryCharge, arg.FreeCashUsed, arg.GrandTotal,
	)
	return scanOrder(row)
}

// InsertOrderItem inserts one order line.
func (q *Queries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error {
	orderID, err := toUUID(arg.OrderID)
	if err != nil {
		return pgx.ErrNoRows
	}
	productID, err := toUUID(arg.ProductID)
	if err != nil {
		return pgx.ErrNoRows
	}
	_, err = q.db.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, product_name, variant_label, variant_index,
			quantity, unit_price, unit_mrp, discount_pct, is_free)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		orderID, productID, arg.ProductName, toText(arg.VariantLabel), arg.VariantIndex,
		arg.Quantity, arg.UnitPrice, arg.UnitMRP, arg.DiscountPct, arg.IsFree,
	)
	return err
}

// GetOrder fetches one order by id.
func (q *Queries) GetOrder(ctx context.Context, orderID string) (Order, error) {
	id, err := toUUID(orderID)
	if err != nil {
		return Order{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// ListOrderItems returns the lines of an order in insertion order.
func (q *Queries) ListOrderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	id, err := toUUID(orderID)
	if err != nil {
		return nil, pgx.ErrNoRows
	}
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, variant_label, variant_index,
			quantity, unit_price, unit_mrp, discount_pct, is_free
		FROM order_items WHERE order_id = $1 ORDER BY id ASC`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListOrdersByUser returns a user's orders, newest first.
func (q *Queries) ListOrdersByUser(ctx context.Context, userID string, limit, offset int32) ([]Order, error) {
	uid, err := toUUID(userID)
	if err != nil {
		return nil, pgx.ErrNoRows
	}
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		uid, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountOrdersByUser counts a user's orders.
func (q *Queries) CountOrdersByUser(ctx context.Context, userID string) (int64, error) {
	uid, err := toUUID(userID)
	if err != nil {
		return 0, pgx.ErrNoRows
	}
	var total int64
	err = q.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, uid).Scan(&total)
	return total, err
}

// UpdateOrderStatus moves an order to a new status.
func (q *Queries) UpdateOrderStatus(ctx context.Context, orderID, status string) (Order, error) {
	id, err := toUUID(orderID)
	if err != nil {
		return Order{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		id, status,
	)
	return scanOrder(row)
}

// ListOrdersMissingSummary returns orders whose grand total was never written,
// oldest first, for the backfill worker.
func (q *Queries) ListOrdersMissingSummary(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE grand_total = 0 AND status != $1
		ORDER BY created_at ASC LIMIT $2`,
		OrderStatusCancelled, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderSummary writes recomputed totals back to an order.
func (q *Queries) UpdateOrderSummary(ctx context.Context, orderID string, summary OrderSummary) error {
	id, err := toUUID(orderID)
	if err != nil {
		return pgx.ErrNoRows
	}
	tag, err := q.db.Exec(ctx, `
		UPDATE orders
		SET subtotal = $2, original_total = $3, savings = $4, delivery_charge = $5,
			free_cash_used = $6, grand_total = $7, updated_at = now()
		WHERE id = $1`,
		id, summary.Subtotal, summary.OriginalTotal, summary.Savings,
		summary.DeliveryCharge, summary.FreeCashUsed, summary.GrandTotal,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o             Order
		id            pgtype.UUID
		userID        pgtype.UUID
		locationID    pgtype.UUID
		deliveryNotes pgtype.Text
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)
	if err := row.Scan(&id, &userID, &o.Status, &locationID, &o.DeliveryName, &o.DeliveryPhone, &deliveryNotes,
		&o.Subtotal, &o.OriginalTotal, &o.Savings, &o.DeliveryCharge, &o.FreeCashUsed, &o.GrandTotal,
		&createdAt, &updatedAt); err != nil {
		return Order{}, err
	}
	o.ID = uuidString(id)
	o.UserID = uuidString(userID)
	o.LocationID = uuidString(locationID)
	o.DeliveryNotes = textToString(deliveryNotes)
	o.CreatedAt = timeFromPG(createdAt)
	o.UpdatedAt = timeFromPG(updatedAt)
	return o, nil
}

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var (
		item         OrderItem
		orderID      pgtype.UUID
		productID    pgtype.UUID
		variantLabel pgtype.Text
	)
	if err := row.Scan(&item.ID, &orderID, &productID, &item.ProductName, &variantLabel, &item.VariantIndex,
		&item.Quantity, &item.UnitPrice, &item.UnitMRP, &item.DiscountPct, &item.IsFree); err != nil {
		return OrderItem{}, err
	}
	item.OrderID = uuidString(orderID)
	item.ProductID = uuidString(productID)
	item.VariantLabel = textToString(variantLabel)
	return item, nil
}
