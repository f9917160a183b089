package board

import (
	"context"
	"math"

	"github.com/google/uuid"

	apperrors "github.com/taskboard/server/internal/shared/errors"
)

// Siblings is the store view the ordering algorithm needs: how many children
// a parent has, and a bulk relabel of a contiguous order range.
// Both must run inside the caller's transaction.
type Siblings interface {
	Count(ctx context.Context, parentID uuid.UUID) (int, error)
	// Shift adds delta to the order of every child of parentID whose order
	// lies in [from, to].
	Shift(ctx context.Context, parentID uuid.UUID, from, to, delta int) error
}

// openEnd bounds a shift that runs to the end of a collection.
const openEnd = math.MaxInt32

// Collection keeps the children of each parent densely ordered 0..n-1.
//
// Callers lock the parent rows before calling so the counts read here are
// authoritative for the rest of the transaction. Collection only moves
// siblings; persisting the entity's own order is left to the caller.
type Collection struct {
	siblings Siblings
}

// NewCollection creates a Collection over siblings.
func NewCollection(siblings Siblings) *Collection {
	return &Collection{siblings: siblings}
}

// Insert opens a slot for a new child and returns its order.
// A nil target appends.
func (c *Collection) Insert(ctx context.Context, parentID uuid.UUID, target *int) (int, error) {
	n, err := c.siblings.Count(ctx, parentID)
	if err != nil {
		return 0, err
	}

	t := n
	if target != nil {
		t = *target
	}
	if t < 0 || t > n {
		return 0, invalidOrder(t, n)
	}

	if t < n {
		if err := c.siblings.Shift(ctx, parentID, t, n-1, +1); err != nil {
			return 0, err
		}
	}
	return t, nil
}

// Reorder moves the child at from to target within the same parent.
func (c *Collection) Reorder(ctx context.Context, parentID uuid.UUID, from, target int) error {
	n, err := c.siblings.Count(ctx, parentID)
	if err != nil {
		return err
	}
	if target < 0 || target > n-1 {
		return invalidOrder(target, n-1)
	}

	switch {
	case target > from:
		return c.siblings.Shift(ctx, parentID, from+1, target, -1)
	case target < from:
		return c.siblings.Shift(ctx, parentID, target, from-1, +1)
	default:
		return nil
	}
}

// Transfer moves the child at from in source to dest and returns its new
// order there. A nil target appends. Validation happens before any write.
func (c *Collection) Transfer(ctx context.Context, source uuid.UUID, from int, dest uuid.UUID, target *int) (int, error) {
	m, err := c.siblings.Count(ctx, dest)
	if err != nil {
		return 0, err
	}
	t := m
	if target != nil {
		t = *target
	}
	if t < 0 || t > m {
		return 0, invalidOrder(t, m)
	}

	if err := c.Remove(ctx, source, from); err != nil {
		return 0, err
	}
	if t < m {
		if err := c.siblings.Shift(ctx, dest, t, m-1, +1); err != nil {
			return 0, err
		}
	}
	return t, nil
}

// Remove closes the gap left by the child that held from. It works the same
// whether or not the departing row is still present.
func (c *Collection) Remove(ctx context.Context, parentID uuid.UUID, from int) error {
	return c.siblings.Shift(ctx, parentID, from+1, openEnd, -1)
}

func invalidOrder(order, max int) error {
	return apperrors.InvalidOrder(order, max)
}
