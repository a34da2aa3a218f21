package grid

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a cell outside a map's bounds is accessed.
var ErrOutOfRange = errors.New("grid: cell out of range")

// Map stores one value per cell for every cell inside its bounds.
// Values are kept row-major so float maps can be reduced with gonum/floats.
type Map[T any] struct {
	bounds Bounds
	values []T
}

// NewMap creates a map over b with every cell set to fill.
func NewMap[T any](b Bounds, fill T) *Map[T] {
	m := &Map[T]{
		bounds: b,
		values: make([]T, b.Area()),
	}
	m.Fill(fill)
	return m
}

// Bounds returns the cell rectangle covered by the map.
func (m *Map[T]) Bounds() Bounds {
	return m.bounds
}

// Get returns the value at c.
func (m *Map[T]) Get(c CellRef) (T, error) {
	if !m.bounds.Contains(c) {
		var zero T
		return zero, fmt.Errorf("get %v: %w", c, ErrOutOfRange)
	}
	return m.values[m.bounds.index(c)], nil
}

// Set stores v at c.
func (m *Map[T]) Set(c CellRef, v T) error {
	if !m.bounds.Contains(c) {
		return fmt.Errorf("set %v: %w", c, ErrOutOfRange)
	}
	m.values[m.bounds.index(c)] = v
	return nil
}

// At returns the value at c. It panics if c is outside the bounds; use it
// only inside loops driven by Bounds().
func (m *Map[T]) At(c CellRef) T {
	if !m.bounds.Contains(c) {
		panic(fmt.Sprintf("grid: At(%v) outside %+v", c, m.bounds))
	}
	return m.values[m.bounds.index(c)]
}

// SetAt stores v at c. It panics if c is outside the bounds.
func (m *Map[T]) SetAt(c CellRef, v T) {
	if !m.bounds.Contains(c) {
		panic(fmt.Sprintf("grid: SetAt(%v) outside %+v", c, m.bounds))
	}
	m.values[m.bounds.index(c)] = v
}

// Fill sets every cell to v.
func (m *Map[T]) Fill(v T) {
	for i := range m.values {
		m.values[i] = v
	}
}

// Clone returns an independent copy of the map.
func (m *Map[T]) Clone() *Map[T] {
	values := make([]T, len(m.values))
	copy(values, m.values)
	return &Map[T]{bounds: m.bounds, values: values}
}

// Values exposes the row-major backing slice. Writes go straight to the map.
func (m *Map[T]) Values() []T {
	return m.values
}

// Index returns the position of c in Values. The caller must check Contains.
func (m *Map[T]) Index(c CellRef) int {
	return m.bounds.index(c)
}

// CellAtIndex maps an index into Values back to its cell.
func (m *Map[T]) CellAtIndex(i int) CellRef {
	return m.bounds.cellAt(i)
}

// Each calls fn for every cell in row-major order.
func (m *Map[T]) Each(fn func(c CellRef, v T)) {
	for i, v := range m.values {
		fn(m.bounds.cellAt(i), v)
	}
}
