package board

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Board is the root of a workspace. Its owner holds every permission and is
// never stored as a BoardMember.
type Board struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Board) TableName() string {
	return "boards"
}

func (b *Board) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BoardMember grants a non-owner user a role on a board.
type BoardMember struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	BoardID   uuid.UUID `json:"board_id" gorm:"type:uuid;not null;uniqueIndex:idx_board_members_board_user"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_board_members_board_user;index"`
	Role      Role      `json:"role" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (BoardMember) TableName() string {
	return "board_members"
}

func (m *BoardMember) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// List is an ordered column of cards. Order is dense per board.
type List struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	BoardID   uuid.UUID `json:"board_id" gorm:"type:uuid;not null;index:idx_lists_board_position"`
	Name      string    `json:"name" gorm:"not null"`
	Order     int       `json:"order" gorm:"column:position;not null;index:idx_lists_board_position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (List) TableName() string {
	return "lists"
}

func (l *List) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Card is a task inside a list. Order is dense per list.
type Card struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ListID      uuid.UUID  `json:"list_id" gorm:"type:uuid;not null;index:idx_cards_list_position"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Order       int        `json:"order" gorm:"column:position;not null;index:idx_cards_list_position"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (Card) TableName() string {
	return "cards"
}

func (c *Card) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Activity is one entry of a board's audit feed.
type Activity struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	BoardID    uuid.UUID `json:"board_id" gorm:"type:uuid;not null;index:idx_activities_board_created"`
	EntityType string    `json:"entity_type" gorm:"not null"`
	EntityID   uuid.UUID `json:"entity_id" gorm:"type:uuid;not null"`
	Action     string    `json:"action" gorm:"not null"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_activities_board_created"`
}

// TableName returns the database table name.
func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BoardWithRole pairs a board with the caller's role on it.
type BoardWithRole struct {
	Board
	Role Role `json:"role"`
}
