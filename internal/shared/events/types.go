package events

import (
	"fmt"

	"github.com/google/uuid"
)

// BoardChangedType is the event type of every committed board mutation.
const BoardChangedType = "BoardChanged"

// Entity types carried by ChangeEvent.
const (
	EntityBoard  = "board"
	EntityMember = "member"
	EntityList   = "list"
	EntityCard   = "card"
)

// Actions carried by ChangeEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionMoved   = "moved"
	ActionDeleted = "deleted"
)

// ChangeEvent is published once a board mutation has committed.
// It lives here so both the board module and broker consumers can decode it.
type ChangeEvent struct {
	BaseEvent
	BoardID    uuid.UUID `json:"board_id"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	Action     string    `json:"action"`
	UserID     uuid.UUID `json:"user_id"`
	// Data is an optional snapshot of the changed entity.
	Data any `json:"data,omitempty"`
}

// NewChangeEvent builds a ChangeEvent about entityID on boardID.
func NewChangeEvent(boardID uuid.UUID, entityType string, entityID uuid.UUID, action string, userID uuid.UUID) *ChangeEvent {
	return &ChangeEvent{
		BaseEvent:  NewBaseEvent(BoardChangedType, entityID),
		BoardID:    boardID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     userID,
	}
}

// BoardTopic is the broker topic carrying changes for boardID.
func BoardTopic(prefix string, boardID uuid.UUID) string {
	if prefix == "" {
		return fmt.Sprintf("board:%s", boardID)
	}
	return fmt.Sprintf("%s:board:%s", prefix, boardID)
}
