package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Cart is a persistent shopping cart, owned by a user or anonymous session.
type Cart struct {
	ID        string
	UserID    string
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is one line in a cart. Free loyalty lines carry IsFree = true and
// are excluded from totals.
type CartItem struct {
	ID           string
	CartID       string
	ProductID    string
	VariantIndex int32
	Quantity     int32
	IsFree       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UpsertCartItemParams adds quantity to an existing line or inserts a new one.
type UpsertCartItemParams struct {
	CartID       string
	ProductID    string
	VariantIndex int32
	Quantity     int32
	IsFree       bool
}

// GetOrCreateCartByUser returns the user's cart, creating it if absent.
func (q *Queries) GetOrCreateCartByUser(ctx context.Context, userID string) (Cart, error) {
	uid, err := toUUID(userID)
	if err != nil {
		return Cart{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) WHERE user_id IS NOT NULL
		DO UPDATE SET updated_at = now()
		RETURNING id, user_id, session_id, created_at, updated_at`,
		uid,
	)
	return scanCart(row)
}

// GetOrCreateCartBySession returns the anonymous cart for a session key,
// creating it if absent.
func (q *Queries) GetOrCreateCartBySession(ctx context.Context, sessionID string) (Cart, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO carts (session_id)
		VALUES ($1)
		ON CONFLICT (session_id) WHERE session_id IS NOT NULL
		DO UPDATE SET updated_at = now()
		RETURNING id, user_id, session_id, created_at, updated_at`,
		toText(sessionID),
	)
	return scanCart(row)
}

// GetCart fetches a cart by id.
func (q *Queries) GetCart(ctx context.Context, cartID string) (Cart, error) {
	id, err := toUUID(cartID)
	if err != nil {
		return Cart{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `SELECT id, user_id, session_id, created_at, updated_at FROM carts WHERE id = $1`, id)
	return scanCart(row)
}

// ListCartItems returns the lines of a cart in insertion order.
func (q *Queries) ListCartItems(ctx context.Context, cartID string) ([]CartItem, error) {
	id, err := toUUID(cartID)
	if err != nil {
		return nil, pgx.ErrNoRows
	}
	rows, err := q.db.Query(ctx, `
		SELECT id, cart_id, product_id, variant_index, quantity, is_free, created_at, updated_at
		FROM cart_items WHERE cart_id = $1 ORDER BY created_at ASC`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpsertCartItem merges a new line into the cart, summing quantities when the
// same product variant is already present.
func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	cartID, err := toUUID(arg.CartID)
	if err != nil {
		return CartItem{}, pgx.ErrNoRows
	}
	productID, err := toUUID(arg.ProductID)
	if err != nil {
		return CartItem{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, variant_index, quantity, is_free)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id, variant_index, is_free)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING id, cart_id, product_id, variant_index, quantity, is_free, created_at, updated_at`,
		cartID, productID, arg.VariantIndex, arg.Quantity, arg.IsFree,
	)
	return scanCartItem(row)
}

// SetCartItemQuantity replaces a line's quantity.
func (q *Queries) SetCartItemQuantity(ctx context.Context, itemID string, quantity int32) (CartItem, error) {
	id, err := toUUID(itemID)
	if err != nil {
		return CartItem{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `
		UPDATE cart_items SET quantity = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, cart_id, product_id, variant_index, quantity, is_free, created_at, updated_at`,
		id, quantity,
	)
	return scanCartItem(row)
}

// DeleteCartItem removes one line from a cart.
func (q *Queries) DeleteCartItem(ctx context.Context, itemID string) error {
	id, err := toUUID(itemID)
	if err != nil {
		return pgx.ErrNoRows
	}
	tag, err := q.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ClearCart removes every line from a cart.
func (q *Queries) ClearCart(ctx context.Context, cartID string) error {
	id, err := toUUID(cartID)
	if err != nil {
		return pgx.ErrNoRows
	}
	_, err = q.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, id)
	return err
}

// MergeCarts moves the lines of an anonymous cart into the user's cart,
// summing quantities for lines already present, then deletes the source cart.
func (q *Queries) MergeCarts(ctx context.Context, fromCartID, intoCartID string) error {
	from, err := toUUID(fromCartID)
	if err != nil {
		return pgx.ErrNoRows
	}
	into, err := toUUID(intoCartID)
	if err != nil {
		return pgx.ErrNoRows
	}
	_, err = q.db.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, variant_index, quantity, is_free)
		SELECT $2, product_id, variant_index, quantity, is_free FROM cart_items WHERE cart_id = $1
		ON CONFLICT (cart_id, product_id, variant_index, is_free)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`,
		from, into,
	)
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx, `DELETE FROM carts WHERE id = $1`, from)
	return err
}

func scanCart(row pgx.Row) (Cart, error) {
	var (
		c         Cart
		id        pgtype.UUID
		userID    pgtype.UUID
		sessionID pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &userID, &sessionID, &createdAt, &updatedAt); err != nil {
		return Cart{}, err
	}
	c.ID = uuidString(id)
	c.UserID = uuidString(userID)
	c.SessionID = textToString(sessionID)
	c.CreatedAt = timeFromPG(createdAt)
	c.UpdatedAt = timeFromPG(updatedAt)
	return c, nil
}

func scanCartItem(row pgx.Row) (CartItem, error) {
	var (
		item      CartItem
		id        pgtype.UUID
		cartID    pgtype.UUID
		productID pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &cartID, &productID, &item.VariantIndex, &item.Quantity, &item.IsFree, &createdAt, &updatedAt); err != nil {
		return CartItem{}, err
	}
	item.ID = uuidString(id)
	item.CartID = uuidString(cartID)
	item.ProductID = uuidString(productID)
	item.CreatedAt = timeFromPG(createdAt)
	item.UpdatedAt = timeFromPG(updatedAt)
	return item, nil
}
