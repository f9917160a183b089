package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/taskboard/server/internal/shared/errors"
	"github.com/taskboard/server/internal/shared/events"
	"github.com/taskboard/server/internal/shared/metrics"
)

// Operation names used in logs and metrics.
const (
	opCreateBoard  = "create_board"
	opUpdateBoard  = "update_board"
	opDeleteBoard  = "delete_board"
	opAddMember    = "add_member"
	opUpdateMember = "update_member"
	opRemoveMember = "remove_member"
	opCreateList   = "create_list"
	opUpdateList   = "update_list"
	opDeleteList   = "delete_list"
	opCreateCard   = "create_card"
	opUpdateCard   = "update_card"
	opDeleteCard   = "delete_card"
)

// maxCardLockAttempts bounds re-reads of a card that keeps changing lists
// while its lists are being locked.
const maxCardLockAttempts = 3

// Config tunes the service.
type Config struct {
	ActivityPageSize int
	TopicPrefix      string
}

// Service authorizes and applies board mutations.
//
// Every mutation checks the caller's permission first, then runs its scoping
// checks, ordering changes and field updates in one transaction. Change
// events go to the bus only after commit.
type Service struct {
	repo    Repository
	access  *Resolver
	lists   *Collection
	cards   *Collection
	bus     *events.Bus
	broker  events.Broker
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     Config
}

// NewService creates a new board service.
func NewService(
	repo Repository,
	bus *events.Bus,
	broker events.Broker,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg Config,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ActivityPageSize <= 0 {
		cfg.ActivityPageSize = 50
	}
	return &Service{
		repo:    repo,
		access:  NewResolver(repo),
		lists:   NewCollection(repo.ListSiblings()),
		cards:   NewCollection(repo.CardSiblings()),
		bus:     bus,
		broker:  broker,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

// ========== Board Operations ==========

// CreateBoard creates a board owned by userID.
func (s *Service) CreateBoard(ctx context.Context, userID uuid.UUID, req *CreateBoardRequest) (*Board, error) {
	b := &Board{OwnerID: userID, Name: req.Name, Description: req.Description}
	if err := s.repo.CreateBoard(ctx, b); err != nil {
		return nil, s.observe(opCreateBoard, err, zap.String("user_id", userID.String()))
	}

	s.observe(opCreateBoard, nil, zap.String("board_id", b.ID.String()), zap.String("user_id", userID.String()))
	s.publish(ctx, b.ID, events.EntityBoard, b.ID, events.ActionCreated, userID, b)
	return b, nil
}

// ListBoards lists the boards userID owns or belongs to.
func (s *Service) ListBoards(ctx context.Context, userID uuid.UUID) ([]*BoardWithRole, error) {
	boards, err := s.repo.ListBoardsForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("list boards", err)
	}
	return boards, nil
}

// GetBoard returns the board, the caller's role and its lists in order.
func (s *Service) GetBoard(ctx context.Context, userID, boardID uuid.UUID) (*BoardDetail, error) {
	access, err := s.access.CheckPermission(ctx, boardID, userID, PermBoardRead)
	if err != nil {
		return nil, err
	}

	detail := &BoardDetail{BoardWithRole: BoardWithRole{Board: *access.Board, Role: access.Role}}
	if access.Can(PermContentRead) {
		lists, err := s.repo.ListLists(ctx, boardID)
		if err != nil {
			return nil, apperrors.Internal("list lists", err)
		}
		detail.Lists = lists
	}
	return detail, nil
}

// UpdateBoard renames or re-describes a board.
func (s *Service) UpdateBoard(ctx context.Context, userID, boardID uuid.UUID, req *UpdateBoardRequest) (*Board, error) {
	fields := boardFields(boardID, userID)
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermBoardUpdate); err != nil {
		return nil, s.observe(opUpdateBoard, err, fields...)
	}

	var b *Board
	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockBoard(ctx, boardID)
		if err != nil {
			return err
		}
		if req.Name != nil {
			locked.Name = *req.Name
		}
		if req.Description != nil {
			locked.Description = *req.Description
		}
		if err := s.repo.UpdateBoard(ctx, locked); err != nil {
			return err
		}
		b = locked
		return nil
	})
	if err != nil {
		return nil, s.observe(opUpdateBoard, err, fields...)
	}

	s.observe(opUpdateBoard, nil, fields...)
	s.publish(ctx, boardID, events.EntityBoard, boardID, events.ActionUpdated, userID, b)
	return b, nil
}

// DeleteBoard deletes a board with its members, lists, cards and activity.
// Only the owner holds board:delete.
func (s *Service) DeleteBoard(ctx context.Context, userID, boardID uuid.UUID) error {
	fields := boardFields(boardID, userID)
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermBoardDelete); err != nil {
		return s.observe(opDeleteBoard, err, fields...)
	}

	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockBoard(ctx, boardID); err != nil {
			return err
		}
		return s.repo.DeleteBoard(ctx, boardID)
	})
	if err != nil {
		return s.observe(opDeleteBoard, err, fields...)
	}

	s.observe(opDeleteBoard, nil, fields...)
	s.publish(ctx, boardID, events.EntityBoard, boardID, events.ActionDeleted, userID, nil)
	return nil
}

// ========== Member Operations ==========

// ListMembers lists the explicit members of a board. The owner is reported
// on the board itself.
func (s *Service) ListMembers(ctx context.Context, userID, boardID uuid.UUID) ([]*BoardMember, error) {
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermMemberRead); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, boardID)
	if err != nil {
		return nil, apperrors.Internal("list members", err)
	}
	return members, nil
}

// AddMember grants req.UserID a role the caller is allowed to assign.
func (s *Service) AddMember(ctx context.Context, userID, boardID uuid.UUID, req *AddMemberRequest) (*BoardMember, error) {
	fields := append(boardFields(boardID, userID), zap.String("member_id", req.UserID.String()))
	access, err := s.access.CheckPermission(ctx, boardID, userID, PermMemberAdd)
	if err != nil {
		return nil, s.observe(opAddMember, err, fields...)
	}
	if !req.Role.IsMembershipRole() {
		return nil, s.observe(opAddMember, errInvalidMemberRole, fields...)
	}
	if !CanAssignRole(access.Role, req.Role) {
		return nil, s.observe(opAddMember, cannotAssign(access.Role, req.Role), fields...)
	}
	if access.Board.OwnerID == req.UserID {
		return nil, s.observe(opAddMember, errOwnerAsMember, fields...)
	}

	member := &BoardMember{BoardID: boardID, UserID: req.UserID, Role: req.Role}
	err = s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockBoard(ctx, boardID); err != nil {
			return err
		}
		_, err := s.repo.GetMember(ctx, boardID, req.UserID)
		switch {
		case err == nil:
			return errAlreadyMember
		case !errors.Is(err, ErrMemberNotFound):
			return err
		}
		return s.repo.CreateMember(ctx, member)
	})
	if err != nil {
		return nil, s.observe(opAddMember, err, fields...)
	}

	s.observe(opAddMember, nil, fields...)
	s.publish(ctx, boardID, events.EntityMember, member.ID, events.ActionCreated, userID, member)
	return member, nil
}

// UpdateMemberRole changes a member's role. The caller must be able to
// assign both the member's current role and the new one.
func (s *Service) UpdateMemberRole(ctx context.Context, userID, boardID, memberUserID uuid.UUID, req *UpdateMemberRequest) (*BoardMember, error) {
	fields := append(boardFields(boardID, userID), zap.String("member_id", memberUserID.String()))
	access, err := s.access.CheckPermission(ctx, boardID, userID, PermMemberUpdate)
	if err != nil {
		return nil, s.observe(opUpdateMember, err, fields...)
	}
	if !req.Role.IsMembershipRole() {
		return nil, s.observe(opUpdateMember, errInvalidMemberRole, fields...)
	}

	var member *BoardMember
	err = s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetMember(ctx, boardID, memberUserID)
		if err != nil {
			return err
		}
		if !CanAssignRole(access.Role, m.Role) {
			return cannotAssign(access.Role, m.Role)
		}
		if !CanAssignRole(access.Role, req.Role) {
			return cannotAssign(access.Role, req.Role)
		}
		if err := s.repo.UpdateMemberRole(ctx, m.ID, req.Role); err != nil {
			return err
		}
		m.Role = req.Role
		member = m
		return nil
	})
	if err != nil {
		return nil, s.observe(opUpdateMember, err, fields...)
	}

	s.observe(opUpdateMember, nil, fields...)
	s.publish(ctx, boardID, events.EntityMember, member.ID, events.ActionUpdated, userID, member)
	return member, nil
}

// RemoveMember revokes a membership. Members may always remove themselves;
// removing someone else needs member:remove and authority over their role.
func (s *Service) RemoveMember(ctx context.Context, userID, boardID, memberUserID uuid.UUID) error {
	fields := append(boardFields(boardID, userID), zap.String("member_id", memberUserID.String()))

	var actorRole Role
	if userID == memberUserID {
		access, err := s.access.Resolve(ctx, boardID, userID)
		if err != nil {
			return s.observe(opRemoveMember, err, fields...)
		}
		if access == nil {
			return s.observe(opRemoveMember, errNoAccess, fields...)
		}
		if access.IsOwner() {
			return s.observe(opRemoveMember, apperrors.BadRequest("the owner cannot leave the board"), fields...)
		}
	} else {
		access, err := s.access.CheckPermission(ctx, boardID, userID, PermMemberRemove)
		if err != nil {
			return s.observe(opRemoveMember, err, fields...)
		}
		actorRole = access.Role
	}

	var removed *BoardMember
	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetMember(ctx, boardID, memberUserID)
		if err != nil {
			return err
		}
		if userID != memberUserID && !CanAssignRole(actorRole, m.Role) {
			return cannotAssign(actorRole, m.Role)
		}
		removed = m
		return s.repo.DeleteMember(ctx, m.ID)
	})
	if err != nil {
		return s.observe(opRemoveMember, err, fields...)
	}

	s.observe(opRemoveMember, nil, fields...)
	s.publish(ctx, boardID, events.EntityMember, removed.ID, events.ActionDeleted, userID, removed)
	return nil
}

func cannotAssign(actor, target Role) error {
	return apperrors.Forbidden(fmt.Sprintf("role %s cannot manage role %s", actor, target))
}

// ========== List Operations ==========

// ListLists returns a board's lists in order.
func (s *Service) ListLists(ctx context.Context, userID, boardID uuid.UUID) ([]*List, error) {
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentRead); err != nil {
		return nil, err
	}
	lists, err := s.repo.ListLists(ctx, boardID)
	if err != nil {
		return nil, apperrors.Internal("list lists", err)
	}
	return lists, nil
}

// CreateList inserts a list at req.Order, or appends it.
func (s *Service) CreateList(ctx context.Context, userID, boardID uuid.UUID, req *CreateListRequest) (*List, error) {
	fields := boardFields(boardID, userID)
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentCreate); err != nil {
		return nil, s.observe(opCreateList, err, fields...)
	}

	var list *List
	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockBoard(ctx, boardID); err != nil {
			return err
		}
		order, err := s.lists.Insert(ctx, boardID, req.Order)
		if err != nil {
			return err
		}
		l := &List{BoardID: boardID, Name: req.Name, Order: order}
		if err := s.repo.CreateList(ctx, l); err != nil {
			return err
		}
		list = l
		return nil
	})
	if err != nil {
		return nil, s.observe(opCreateList, err, fields...)
	}

	s.observe(opCreateList, nil, append(fields, zap.String("list_id", list.ID.String()), zap.Int("order", list.Order))...)
	s.publish(ctx, boardID, events.EntityList, list.ID, events.ActionCreated, userID, list)
	return list, nil
}

// UpdateList renames and/or reorders a list within its board.
func (s *Service) UpdateList(ctx context.Context, userID, boardID, listID uuid.UUID, req *UpdateListRequest) (*List, error) {
	fields := append(boardFields(boardID, userID), zap.String("list_id", listID.String()))
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentUpdate); err != nil {
		return nil, s.observe(opUpdateList, err, fields...)
	}
	if req.BoardID != nil && *req.BoardID != boardID {
		return nil, s.observe(opUpdateList, errListBoardMove, fields...)
	}

	var list *List
	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockBoard(ctx, boardID); err != nil {
			return err
		}
		l, err := s.repo.GetList(ctx, listID)
		if err != nil {
			return err
		}
		if l.BoardID != boardID {
			return errListOffBoard
		}
		if req.Order != nil {
			if err := s.lists.Reorder(ctx, boardID, l.Order, *req.Order); err != nil {
				return err
			}
			l.Order = *req.Order
		}
		if req.Name != nil {
			l.Name = *req.Name
		}
		if err := s.repo.SaveList(ctx, l); err != nil {
			return err
		}
		list = l
		return nil
	})
	if err != nil {
		return nil, s.observe(opUpdateList, err, fields...)
	}

	s.observe(opUpdateList, nil, append(fields, zap.Int("order", list.Order))...)
	s.publish(ctx, boardID, events.EntityList, list.ID, events.ActionUpdated, userID, list)
	return list, nil
}

// DeleteList deletes a list with its cards and compacts the board's lists.
func (s *Service) DeleteList(ctx context.Context, userID, boardID, listID uuid.UUID) error {
	fields := append(boardFields(boardID, userID), zap.String("list_id", listID.String()))
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentDelete); err != nil {
		return s.observe(opDeleteList, err, fields...)
	}

	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockBoard(ctx, boardID); err != nil {
			return err
		}
		locked, err := s.repo.LockLists(ctx, listID)
		if err != nil {
			return err
		}
		l := locked[listID]
		if l.BoardID != boardID {
			return errListOffBoard
		}
		if err := s.repo.DeleteList(ctx, l.ID); err != nil {
			return err
		}
		return s.lists.Remove(ctx, boardID, l.Order)
	})
	if err != nil {
		return s.observe(opDeleteList, err, fields...)
	}

	s.observe(opDeleteList, nil, fields...)
	s.publish(ctx, boardID, events.EntityList, listID, events.ActionDeleted, userID, nil)
	return nil
}

// ========== Card Operations ==========

// ListCards returns a list's cards in order.
func (s *Service) ListCards(ctx context.Context, userID, boardID, listID uuid.UUID) ([]*Card, error) {
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentRead); err != nil {
		return nil, err
	}
	l, err := s.repo.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if l.BoardID != boardID {
		return nil, errListOffBoard
	}
	cards, err := s.repo.ListCards(ctx, listID)
	if err != nil {
		return nil, apperrors.Internal("list cards", err)
	}
	return cards, nil
}

// GetCard returns one card of the board.
func (s *Service) GetCard(ctx context.Context, userID, boardID, cardID uuid.UUID) (*Card, error) {
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentRead); err != nil {
		return nil, err
	}
	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	l, err := s.repo.GetList(ctx, card.ListID)
	if err != nil {
		return nil, err
	}
	if l.BoardID != boardID {
		return nil, errCardOffBoard
	}
	return card, nil
}

// CreateCard inserts a card into listID at req.Order, or appends it.
func (s *Service) CreateCard(ctx context.Context, userID, boardID, listID uuid.UUID, req *CreateCardRequest) (*Card, error) {
	fields := append(boardFields(boardID, userID), zap.String("list_id", listID.String()))
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentCreate); err != nil {
		return nil, s.observe(opCreateCard, err, fields...)
	}

	var card *Card
	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockLists(ctx, listID)
		if err != nil {
			return err
		}
		if locked[listID].BoardID != boardID {
			return errListOffBoard
		}
		order, err := s.cards.Insert(ctx, listID, req.Order)
		if err != nil {
			return err
		}
		c := &Card{
			ListID:      listID,
			Title:       req.Title,
			Description: req.Description,
			DueAt:       req.DueAt,
			Order:       order,
		}
		if err := s.repo.CreateCard(ctx, c); err != nil {
			return err
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, s.observe(opCreateCard, err, fields...)
	}

	s.observe(opCreateCard, nil, append(fields, zap.String("card_id", card.ID.String()), zap.Int("order", card.Order))...)
	s.publish(ctx, boardID, events.EntityCard, card.ID, events.ActionCreated, userID, card)
	return card, nil
}

// UpdateCard edits a card. When req.ListID names another list the card moves
// there; otherwise req.Order reorders it within its list.
func (s *Service) UpdateCard(ctx context.Context, userID, boardID, cardID uuid.UUID, req *UpdateCardRequest) (*Card, error) {
	fields := append(boardFields(boardID, userID), zap.String("card_id", cardID.String()))
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentUpdate); err != nil {
		return nil, s.observe(opUpdateCard, err, fields...)
	}

	var (
		card  *Card
		moved bool
	)
	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		var target []uuid.UUID
		if req.ListID != nil {
			target = append(target, *req.ListID)
		}
		c, locked, err := s.lockCard(ctx, cardID, target...)
		if err != nil {
			return err
		}
		source, dest := c.ListID, c.ListID
		if req.ListID != nil {
			dest = *req.ListID
		}

		if locked[source].BoardID != boardID {
			return errCardOffBoard
		}
		if locked[dest].BoardID != boardID {
			return errListOffBoard
		}

		moved = dest != source
		switch {
		case moved:
			order, err := s.cards.Transfer(ctx, source, c.Order, dest, req.Order)
			if err != nil {
				return err
			}
			c.ListID, c.Order = dest, order
		case req.Order != nil:
			if err := s.cards.Reorder(ctx, source, c.Order, *req.Order); err != nil {
				return err
			}
			c.Order = *req.Order
		}

		req.apply(c)
		if err := s.repo.SaveCard(ctx, c); err != nil {
			return err
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, s.observe(opUpdateCard, err, fields...)
	}

	action := events.ActionUpdated
	if moved {
		action = events.ActionMoved
	}
	s.observe(opUpdateCard, nil, append(fields,
		zap.String("list_id", card.ListID.String()),
		zap.Int("order", card.Order),
		zap.Bool("moved", moved),
	)...)
	s.publish(ctx, boardID, events.EntityCard, card.ID, action, userID, card)
	return card, nil
}

// DeleteCard deletes a card and compacts its list.
func (s *Service) DeleteCard(ctx context.Context, userID, boardID, cardID uuid.UUID) error {
	fields := append(boardFields(boardID, userID), zap.String("card_id", cardID.String()))
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentDelete); err != nil {
		return s.observe(opDeleteCard, err, fields...)
	}

	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		c, locked, err := s.lockCard(ctx, cardID)
		if err != nil {
			return err
		}
		if locked[c.ListID].BoardID != boardID {
			return errCardOffBoard
		}
		if err := s.repo.DeleteCard(ctx, c.ID); err != nil {
			return err
		}
		return s.cards.Remove(ctx, c.ListID, c.Order)
	})
	if err != nil {
		return s.observe(opDeleteCard, err, fields...)
	}

	s.observe(opDeleteCard, nil, fields...)
	s.publish(ctx, boardID, events.EntityCard, cardID, events.ActionDeleted, userID, nil)
	return nil
}

// lockCard locks the card's list, plus any extra lists, before the card row
// itself, the order every list-scoped mutation takes. A card that changes
// lists between the unlocked read and the lock is read again.
func (s *Service) lockCard(ctx context.Context, cardID uuid.UUID, extra ...uuid.UUID) (*Card, map[uuid.UUID]*List, error) {
	for attempt := 0; attempt < maxCardLockAttempts; attempt++ {
		seen, err := s.repo.GetCard(ctx, cardID)
		if err != nil {
			return nil, nil, err
		}
		locked, err := s.repo.LockLists(ctx, append([]uuid.UUID{seen.ListID}, extra...)...)
		if err != nil {
			return nil, nil, err
		}
		c, err := s.repo.LockCard(ctx, cardID)
		if err != nil {
			return nil, nil, err
		}
		if c.ListID == seen.ListID {
			return c, locked, nil
		}
	}
	return nil, nil, errCardContended
}

// ========== Activity & Stream ==========

// ListActivity returns the board's activity feed, newest first.
func (s *Service) ListActivity(ctx context.Context, userID, boardID uuid.UUID, q *ActivityQuery) ([]*Activity, error) {
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermContentRead); err != nil {
		return nil, err
	}

	limit, offset := s.cfg.ActivityPageSize, 0
	if q != nil {
		if q.Limit > 0 && q.Limit < limit {
			limit = q.Limit
		}
		offset = q.Offset
	}
	out, err := s.repo.ListActivity(ctx, boardID, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("list activity", err)
	}
	return out, nil
}

// Subscribe opens the change stream of a board the caller can read.
func (s *Service) Subscribe(ctx context.Context, userID, boardID uuid.UUID) (events.Subscription, error) {
	if _, err := s.access.CheckPermission(ctx, boardID, userID, PermBoardRead); err != nil {
		return nil, err
	}
	if s.broker == nil {
		return nil, apperrors.Internal("change stream unavailable", nil)
	}
	sub, err := s.broker.Subscribe(ctx, events.BoardTopic(s.cfg.TopicPrefix, boardID))
	if err != nil {
		return nil, apperrors.Internal("subscribe to board", err)
	}
	return sub, nil
}

// ========== Helpers ==========

func boardFields(boardID, userID uuid.UUID) []zap.Field {
	return []zap.Field{
		zap.String("board_id", boardID.String()),
		zap.String("user_id", userID.String()),
	}
}

// publish hands a committed change to the bus.
func (s *Service) publish(ctx context.Context, boardID uuid.UUID, entityType string, entityID uuid.UUID, action string, userID uuid.UUID, data any) {
	if s.bus == nil {
		return
	}
	event := events.NewChangeEvent(boardID, entityType, entityID, action, userID)
	event.Data = data
	s.bus.Publish(ctx, event)
}

// observe records the outcome of op. Domain errors pass through unchanged;
// anything else becomes an internal error.
func (s *Service) observe(op string, err error, fields ...zap.Field) error {
	result := resultOf(err)
	s.metrics.RecordMutation(op, result)

	switch result {
	case "ok":
		s.logger.Info(op, fields...)
		return nil
	case "error":
		s.logger.Error(op+" failed", append(fields, zap.Error(err))...)
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return apperrors.Internal(op+" failed", err)
	default:
		s.logger.Debug(op+" rejected", append(fields, zap.String("reason", result), zap.Error(err))...)
		return err
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrInvalidOrder):
		return "invalid_order"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrBadRequest):
		return "bad_request"
	default:
		return "error"
	}
}
