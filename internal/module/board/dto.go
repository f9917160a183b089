package board

import (
	"time"

	"github.com/google/uuid"
)

// ========== Board DTOs ==========

// CreateBoardRequest represents a request to create a board.
type CreateBoardRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// UpdateBoardRequest represents a request to update a board.
type UpdateBoardRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// ========== Member DTOs ==========

// AddMemberRequest grants a user a role on a board.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   Role      `json:"role" binding:"required"`
}

// UpdateMemberRequest changes a member's role.
type UpdateMemberRequest struct {
	Role Role `json:"role" binding:"required"`
}

// ========== List DTOs ==========

// CreateListRequest creates a list. A nil Order appends.
type CreateListRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Order *int   `json:"order"`
}

// UpdateListRequest renames or reorders a list. BoardID, when present, must
// name the list's current board.
type UpdateListRequest struct {
	Name    *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Order   *int       `json:"order"`
	BoardID *uuid.UUID `json:"board_id"`
}

// ========== Card DTOs ==========

// CreateCardRequest creates a card. A nil Order appends.
type CreateCardRequest struct {
	Title       string     `json:"title" binding:"required,max=500"`
	Description string     `json:"description" binding:"max=10000"`
	DueAt       *time.Time `json:"due_at"`
	Order       *int       `json:"order"`
}

// UpdateCardRequest edits a card. A ListID different from the card's list
// moves it; otherwise Order reorders it in place.
type UpdateCardRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=500"`
	Description *string    `json:"description" binding:"omitempty,max=10000"`
	DueAt       *time.Time `json:"due_at"`
	ClearDueAt  bool       `json:"clear_due_at"`
	ListID      *uuid.UUID `json:"list_id"`
	Order       *int       `json:"order"`
}

func (r *UpdateCardRequest) apply(c *Card) {
	if r.Title != nil {
		c.Title = *r.Title
	}
	if r.Description != nil {
		c.Description = *r.Description
	}
	switch {
	case r.ClearDueAt:
		c.DueAt = nil
	case r.DueAt != nil:
		due := *r.DueAt
		c.DueAt = &due
	}
}

// ========== Query DTOs ==========

// ActivityQuery pages through a board's activity feed.
type ActivityQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// BoardDetail is a board with the caller's role and its ordered lists.
type BoardDetail struct {
	BoardWithRole
	Lists []*List `json:"lists"`
}
