package store

import (
	"fmt"

	"stockroom/domain"
)

// Backend is what the client needs from a backend: the product catalog and
// the staff directory.
type Backend interface {
	domain.ProductStore
	domain.WarehousemanStore
}

// NewStore constructs a Backend by kind: "http", "memory" or "file".
// target is the API base URL for http and the database path for file; it
// is ignored for memory. opts only apply to the http backend.
func NewStore(kind, target string, opts ...HTTPOption) (Backend, error) {
	switch kind {
	case "http", "remote":
		if target == "" {
			return nil, fmt.Errorf("api url required for http store")
		}
		return NewHTTPStore(target, opts...)
	case "memory", "mem":
		return NewInMemoryStore(), nil
	case "file":
		if target == "" {
			return nil, fmt.Errorf("file path required for file store")
		}
		return NewFileStore(target)
	default:
		return nil, fmt.Errorf("unknown store kind: %s", kind)
	}
}
