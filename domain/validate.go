package domain

// ValidateProduct checks the invariants a product must hold before it is
// persisted.
func ValidateProduct(p Product) error {
	if p.Name == "" {
		return NewInvalidProductError("name", "cannot be empty", p.Name)
	}
	if p.Price.IsNegative() {
		return NewInvalidProductError("price", "must be non-negative", p.Price)
	}
	seen := make(map[int]struct{}, len(p.Stocks))
	for _, s := range p.Stocks {
		if s.Quantity < 0 {
			return NewInvalidProductError("quantity", "must be non-negative", s.Quantity)
		}
		if _, dup := seen[s.ID]; dup {
			return NewInvalidProductError("stocks", "duplicate warehouse", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}
