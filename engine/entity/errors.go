package entity

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-waves/common"
)

// CapacityError is returned by Registry.Create when every transform-table index is taken.
type CapacityError struct {
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("entity: registry full: all %d transform-table entries are in use", e.Capacity)
}

func (e *CapacityError) Unwrap() error {
	return common.ErrCapacity
}
