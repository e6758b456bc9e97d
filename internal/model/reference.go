package model

import (
	"fmt"
	"strconv"
)

// ModelReference is an opaque identifier for a stored entity. It hides the
// backend's native key type from domain code. Two references are equal when
// their wrapped ids are equal, so a ModelReference can be used as a map key
// and compared with ==.
type ModelReference struct {
	id any
}

// NewStringReference wraps a string id.
func NewStringReference(id string) ModelReference {
	return ModelReference{id: id}
}

// NewIntReference wraps a numeric id.
func NewIntReference(id int64) ModelReference {
	return ModelReference{id: id}
}

// ID returns the wrapped id (a string or an int64).
func (r ModelReference) ID() any {
	return r.id
}

// IsZero reports whether the reference wraps nothing.
func (r ModelReference) IsZero() bool {
	return r.id == nil
}

// Equal reports whether both references wrap the same id.
func (r ModelReference) Equal(other ModelReference) bool {
	return r.id == other.id
}

// String renders the wrapped id as the backends store it.
func (r ModelReference) String() string {
	switch v := r.id.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
