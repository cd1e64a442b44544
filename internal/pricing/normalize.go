package pricing

// RawItem mirrors the drifting line item shapes produced by the cart API,
// locally optimistic-updated carts, and the order history API. The product
// payload may live under ProductDetails, Product, or on the item itself; the
// variant index may be top level or nested inside the product payload.
type RawItem struct {
	ProductID      string      `json:"productId,omitempty"`
	VariantIndex   *int        `json:"variantIndex,omitempty"`
	Quantity       int         `json:"quantity"`
	IsFreeProduct  bool        `json:"isFreeProduct,omitempty"`
	Price          float64     `json:"price,omitempty"`
	OriginalPrice  float64     `json:"originalPrice,omitempty"`
	Variant        *Variant    `json:"variant,omitempty"`
	Variants       []Variant   `json:"variants,omitempty"`
	ProductDetails *RawProduct `json:"productDetails,omitempty"`
	Product        *RawProduct `json:"product,omitempty"`
}

// RawProduct is the product payload embedded in a line item.
type RawProduct struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	VariantIndex *int      `json:"variantIndex,omitempty"`
	Variants     []Variant `json:"variants,omitempty"`
}

// LineItem is the canonical line item shape the aggregation layer works with.
type LineItem struct {
	ProductID             string
	ProductName           string
	VariantIndex          int
	Quantity              int
	Variant               *Variant
	PriceSnapshot         float64
	OriginalPriceSnapshot float64
	IsFree                bool
}

// Normalize resolves a raw line item of unknown shape into the canonical
// LineItem. It returns nil only for nil input; an item whose variant cannot be
// resolved still normalizes (with a nil Variant) so the aggregator can decide
// whether the price snapshot is usable.
func Normalize(item *RawItem) *LineItem {
	if item == nil {
		return nil
	}

	product := item.ProductDetails
	if product == nil {
		product = item.Product
	}
	if product == nil && len(item.Variants) > 0 {
		// Order-history rows sometimes inline the product fields on the item.
		product = &RawProduct{ID: item.ProductID, Variants: item.Variants}
	}

	idx := 0
	if item.VariantIndex != nil {
		idx = *item.VariantIndex
	} else if product != nil && product.VariantIndex != nil {
		idx = *product.VariantIndex
	}
	if idx < 0 {
		idx = 0
	}

	variant := item.Variant
	if variant == nil && product != nil && len(product.Variants) > 0 {
		if idx >= len(product.Variants) {
			idx = 0
		}
		variant = &product.Variants[idx]
	}

	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}

	productID := item.ProductID
	name := ""
	if product != nil {
		if productID == "" {
			productID = product.ID
		}
		name = product.Name
	}

	return &LineItem{
		ProductID:             productID,
		ProductName:           name,
		VariantIndex:          idx,
		Quantity:              qty,
		Variant:               variant,
		PriceSnapshot:         sanitize(item.Price),
		OriginalPriceSnapshot: sanitize(item.OriginalPrice),
		IsFree:                item.IsFreeProduct,
	}
}
