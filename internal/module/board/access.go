package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/taskboard/server/internal/shared/errors"
)

// AccessStore is the read side the Resolver needs.
type AccessStore interface {
	GetBoard(ctx context.Context, id uuid.UUID) (*Board, error)
	GetMember(ctx context.Context, boardID, userID uuid.UUID) (*BoardMember, error)
}

// Access is a caller's effective authority on one board.
type Access struct {
	Board *Board
	Role  Role
	// MembershipID is nil for the owner, whose role is derived from the board.
	MembershipID *uuid.UUID
}

// Can reports whether the access grants perm.
func (a *Access) Can(perm Permission) bool {
	return a != nil && a.Role.HasPermission(perm)
}

// Permissions returns the permissions the access grants, sorted.
func (a *Access) Permissions() []Permission {
	if a == nil {
		return nil
	}
	return a.Role.Permissions()
}

// IsOwner reports whether the caller owns the board.
func (a *Access) IsOwner() bool {
	return a != nil && a.Role == RoleOwner
}

// Resolver derives a caller's role from board ownership or membership.
type Resolver struct {
	store AccessStore
}

// NewResolver creates a Resolver over store.
func NewResolver(store AccessStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the caller's access, or nil when the caller neither owns
// nor belongs to the board. A missing board is ErrBoardNotFound.
func (r *Resolver) Resolve(ctx context.Context, boardID, userID uuid.UUID) (*Access, error) {
	b, err := r.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID == userID {
		return &Access{Board: b, Role: RoleOwner}, nil
	}

	member, err := r.store.GetMember(ctx, boardID, userID)
	if errors.Is(err, ErrMemberNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id := member.ID
	return &Access{Board: b, Role: member.Role, MembershipID: &id}, nil
}

// CheckPermission resolves access and requires perm.
func (r *Resolver) CheckPermission(ctx context.Context, boardID, userID uuid.UUID, perm Permission) (*Access, error) {
	access, err := r.Resolve(ctx, boardID, userID)
	if err != nil {
		return nil, err
	}
	if access == nil {
		return nil, errNoAccess
	}
	if !access.Can(perm) {
		return nil, apperrors.Forbidden(fmt.Sprintf("missing permission %s", perm))
	}
	return access, nil
}
