package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskboard/server/internal/shared/database"
	"github.com/taskboard/server/internal/shared/metrics"
)

// Repository defines the persistence operations of the board module.
// Methods called with a context from RunInTransaction join that transaction.
type Repository interface {
	AccessStore

	// RunInTransaction runs fn in one transaction, replaying it on
	// serialization failures and deadlocks.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Board operations
	CreateBoard(ctx context.Context, b *Board) error
	LockBoard(ctx context.Context, id uuid.UUID) (*Board, error)
	ListBoardsForUser(ctx context.Context, userID uuid.UUID) ([]*BoardWithRole, error)
	UpdateBoard(ctx context.Context, b *Board) error
	DeleteBoard(ctx context.Context, id uuid.UUID) error

	// Member operations
	ListMembers(ctx context.Context, boardID uuid.UUID) ([]*BoardMember, error)
	CreateMember(ctx context.Context, m *BoardMember) error
	UpdateMemberRole(ctx context.Context, id uuid.UUID, role Role) error
	DeleteMember(ctx context.Context, id uuid.UUID) error

	// List operations
	GetList(ctx context.Context, id uuid.UUID) (*List, error)
	LockLists(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*List, error)
	ListLists(ctx context.Context, boardID uuid.UUID) ([]*List, error)
	CreateList(ctx context.Context, l *List) error
	SaveList(ctx context.Context, l *List) error
	DeleteList(ctx context.Context, id uuid.UUID) error
	ListSiblings() Siblings

	// Card operations
	GetCard(ctx context.Context, id uuid.UUID) (*Card, error)
	LockCard(ctx context.Context, id uuid.UUID) (*Card, error)
	ListCards(ctx context.Context, listID uuid.UUID) ([]*Card, error)
	CreateCard(ctx context.Context, c *Card) error
	SaveCard(ctx context.Context, c *Card) error
	DeleteCard(ctx context.Context, id uuid.UUID) error
	CardSiblings() Siblings

	// Activity operations
	CreateActivity(ctx context.Context, a *Activity) error
	ListActivity(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*Activity, error)
}

// RepositoryOption configures the gorm repository.
type RepositoryOption func(*repository)

// WithMaxRetries bounds transaction replays.
func WithMaxRetries(n int) RepositoryOption {
	return func(r *repository) { r.maxRetries = n }
}

// WithRepositoryMetrics counts transaction replays.
func WithRepositoryMetrics(m *metrics.Metrics) RepositoryOption {
	return func(r *repository) { r.metrics = m }
}

// WithRepositoryLogger logs transaction replays.
func WithRepositoryLogger(l *zap.Logger) RepositoryOption {
	return func(r *repository) { r.logger = l }
}

type txKey struct{}

// repository implements Repository using GORM.
type repository struct {
	db         *gorm.DB
	maxRetries int
	// rowLocks is false on engines without SELECT ... FOR UPDATE.
	rowLocks bool
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewRepository creates a new board repository.
func NewRepository(db *gorm.DB, opts ...RepositoryOption) Repository {
	r := &repository{
		db:         db,
		maxRetries: 3,
		rowLocks:   database.IsPostgres(db),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// conn returns the transaction bound to ctx, or the pool.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *repository) forUpdate(ctx context.Context) *gorm.DB {
	db := r.conn(ctx)
	if r.rowLocks {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (r *repository) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	for attempt := 0; ; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
		if err == nil || !isRetryable(err) || attempt >= r.maxRetries {
			return err
		}

		r.metrics.RecordTxRetry()
		r.logger.Warn("retrying transaction",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		backoff := time.Duration(attempt+1) * 10 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// isRetryable reports serialization failures and deadlocks.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return true
	default:
		return false
	}
}

func first[T any](db *gorm.DB, notFound error, query string, args ...any) (*T, error) {
	var out T
	err := db.Where(query, args...).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ========== Board Operations ==========

func (r *repository) CreateBoard(ctx context.Context, b *Board) error {
	return r.conn(ctx).Create(b).Error
}

func (r *repository) GetBoard(ctx context.Context, id uuid.UUID) (*Board, error) {
	return first[Board](r.conn(ctx), ErrBoardNotFound, "id = ?", id)
}

// LockBoard reads the board and holds its row lock until the transaction
// ends, serializing every list mutation on that board.
func (r *repository) LockBoard(ctx context.Context, id uuid.UUID) (*Board, error) {
	return first[Board](r.forUpdate(ctx), ErrBoardNotFound, "id = ?", id)
}

func (r *repository) ListBoardsForUser(ctx context.Context, userID uuid.UUID) ([]*BoardWithRole, error) {
	var owned []*Board
	if err := r.conn(ctx).Where("owner_id = ?", userID).Find(&owned).Error; err != nil {
		return nil, err
	}

	var memberships []*BoardMember
	if err := r.conn(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	roles := make(map[uuid.UUID]Role, len(memberships))
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		roles[m.BoardID] = m.Role
		ids = append(ids, m.BoardID)
	}

	var joined []*Board
	if len(ids) > 0 {
		if err := r.conn(ctx).Where("id IN ?", ids).Find(&joined).Error; err != nil {
			return nil, err
		}
	}

	out := make([]*BoardWithRole, 0, len(owned)+len(joined))
	for _, b := range owned {
		out = append(out, &BoardWithRole{Board: *b, Role: RoleOwner})
	}
	for _, b := range joined {
		out = append(out, &BoardWithRole{Board: *b, Role: roles[b.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *repository) UpdateBoard(ctx context.Context, b *Board) error {
	return r.conn(ctx).Model(b).Select("name", "description").Updates(b).Error
}

// DeleteBoard removes the board and everything it owns.
func (r *repository) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	db := r.conn(ctx)
	lists := db.Model(&List{}).Select("id").Where("board_id = ?", id)
	if err := db.Where("list_id IN (?)", lists).Delete(&Card{}).Error; err != nil {
		return fmt.Errorf("delete cards: %w", err)
	}
	if err := db.Where("board_id = ?", id).Delete(&List{}).Error; err != nil {
		return fmt.Errorf("delete lists: %w", err)
	}
	if err := db.Where("board_id = ?", id).Delete(&BoardMember{}).Error; err != nil {
		return fmt.Errorf("delete members: %w", err)
	}
	if err := db.Where("board_id = ?", id).Delete(&Activity{}).Error; err != nil {
		return fmt.Errorf("delete activities: %w", err)
	}
	return db.Delete(&Board{}, "id = ?", id).Error
}

// ========== Member Operations ==========

func (r *repository) GetMember(ctx context.Context, boardID, userID uuid.UUID) (*BoardMember, error) {
	return first[BoardMember](r.conn(ctx), ErrMemberNotFound, "board_id = ? AND user_id = ?", boardID, userID)
}

func (r *repository) ListMembers(ctx context.Context, boardID uuid.UUID) ([]*BoardMember, error) {
	var members []*BoardMember
	err := r.conn(ctx).
		Where("board_id = ?", boardID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *repository) CreateMember(ctx context.Context, m *BoardMember) error {
	err := r.conn(ctx).Create(m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errAlreadyMember
	}
	return err
}

func (r *repository) UpdateMemberRole(ctx context.Context, id uuid.UUID, role Role) error {
	result := r.conn(ctx).Model(&BoardMember{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *repository) DeleteMember(ctx context.Context, id uuid.UUID) error {
	result := r.conn(ctx).Delete(&BoardMember{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ========== List Operations ==========

func (r *repository) GetList(ctx context.Context, id uuid.UUID) (*List, error) {
	return first[List](r.conn(ctx), ErrListNotFound, "id = ?", id)
}

// LockLists locks the given lists in ascending id order so concurrent moves
// between the same two lists cannot deadlock. Any missing id is ErrListNotFound.
func (r *repository) LockLists(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*List, error) {
	sorted := uniqueSorted(ids)

	out := make(map[uuid.UUID]*List, len(sorted))
	for _, id := range sorted {
		l, err := first[List](r.forUpdate(ctx), ErrListNotFound, "id = ?", id)
		if err != nil {
			return nil, err
		}
		out[id] = l
	}
	return out, nil
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (r *repository) ListLists(ctx context.Context, boardID uuid.UUID) ([]*List, error) {
	var lists []*List
	err := r.conn(ctx).
		Where("board_id = ?", boardID).
		Order("position ASC").
		Find(&lists).Error
	return lists, err
}

func (r *repository) CreateList(ctx context.Context, l *List) error {
	return r.conn(ctx).Create(l).Error
}

func (r *repository) SaveList(ctx context.Context, l *List) error {
	return r.conn(ctx).Model(l).Select("name", "position").Updates(l).Error
}

// DeleteList removes the list and its cards.
func (r *repository) DeleteList(ctx context.Context, id uuid.UUID) error {
	db := r.conn(ctx)
	if err := db.Where("list_id = ?", id).Delete(&Card{}).Error; err != nil {
		return fmt.Errorf("delete cards: %w", err)
	}
	return db.Delete(&List{}, "id = ?", id).Error
}

func (r *repository) ListSiblings() Siblings {
	return &siblingStore{repo: r, table: List{}.TableName(), parentColumn: "board_id"}
}

// ========== Card Operations ==========

func (r *repository) GetCard(ctx context.Context, id uuid.UUID) (*Card, error) {
	return first[Card](r.conn(ctx), ErrCardNotFound, "id = ?", id)
}

func (r *repository) LockCard(ctx context.Context, id uuid.UUID) (*Card, error) {
	return first[Card](r.forUpdate(ctx), ErrCardNotFound, "id = ?", id)
}

func (r *repository) ListCards(ctx context.Context, listID uuid.UUID) ([]*Card, error) {
	var cards []*Card
	err := r.conn(ctx).
		Where("list_id = ?", listID).
		Order("position ASC").
		Find(&cards).Error
	return cards, err
}

func (r *repository) CreateCard(ctx context.Context, c *Card) error {
	return r.conn(ctx).Create(c).Error
}

func (r *repository) SaveCard(ctx context.Context, c *Card) error {
	return r.conn(ctx).Model(c).
		Select("list_id", "title", "description", "due_at", "position").
		Updates(c).Error
}

func (r *repository) DeleteCard(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&Card{}, "id = ?", id).Error
}

func (r *repository) CardSiblings() Siblings {
	return &siblingStore{repo: r, table: Card{}.TableName(), parentColumn: "list_id"}
}

// ========== Activity Operations ==========

func (r *repository) CreateActivity(ctx context.Context, a *Activity) error {
	return r.conn(ctx).Create(a).Error
}

func (r *repository) ListActivity(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*Activity, error) {
	var out []*Activity
	err := r.conn(ctx).
		Where("board_id = ?", boardID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}

// siblingStore applies the ordering algorithm's reads and bulk shifts to one
// table, keyed by its parent column.
type siblingStore struct {
	repo         *repository
	table        string
	parentColumn string
}

func (s *siblingStore) Count(ctx context.Context, parentID uuid.UUID) (int, error) {
	var n int64
	err := s.repo.conn(ctx).Table(s.table).Where(s.parentColumn+" = ?", parentID).Count(&n).Error
	return int(n), err
}

func (s *siblingStore) Shift(ctx context.Context, parentID uuid.UUID, from, to, delta int) error {
	if from > to {
		return nil
	}
	return s.repo.conn(ctx).Table(s.table).
		Where(s.parentColumn+" = ? AND position BETWEEN ? AND ?", parentID, from, to).
		UpdateColumn("position", gorm.Expr("position + ?", delta)).Error
}
