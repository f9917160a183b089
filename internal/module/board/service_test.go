package board

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/taskboard/server/internal/shared/database"
	apperrors "github.com/taskboard/server/internal/shared/errors"
	"github.com/taskboard/server/internal/shared/events"
	"github.com/taskboard/server/internal/shared/metrics"
)

type testEnv struct {
	db      *gorm.DB
	repo    Repository
	svc     *Service
	broker  *events.MemoryBroker
	metrics *metrics.Metrics
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), nil)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	logger := zaptest.NewLogger(t)
	m := metrics.New("test", prometheus.NewRegistry())

	repo := NewRepository(db, WithRepositoryMetrics(m), WithRepositoryLogger(logger))
	broker := events.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	bus := events.NewBus(logger, events.WithMetrics(m))
	bus.Register(NewActivityRecorder(repo))
	bus.Register(NewNotifier(broker, NotifierConfig{TopicPrefix: "test"}, logger))

	svc := NewService(repo, bus, broker, m, logger, Config{ActivityPageSize: 20, TopicPrefix: "test"})
	return &testEnv{db: db, repo: repo, svc: svc, broker: broker, metrics: m}
}

func (e *testEnv) board(t *testing.T, owner uuid.UUID) *Board {
	t.Helper()
	b, err := e.svc.CreateBoard(context.Background(), owner, &CreateBoardRequest{Name: "Roadmap"})
	require.NoError(t, err)
	return b
}

func (e *testEnv) lists(t *testing.T, owner, boardID uuid.UUID, names ...string) map[string]*List {
	t.Helper()
	out := make(map[string]*List, len(names))
	for _, name := range names {
		l, err := e.svc.CreateList(context.Background(), owner, boardID, &CreateListRequest{Name: name})
		require.NoError(t, err)
		out[name] = l
	}
	return out
}

func (e *testEnv) cards(t *testing.T, owner, boardID, listID uuid.UUID, titles ...string) map[string]*Card {
	t.Helper()
	out := make(map[string]*Card, len(titles))
	for _, title := range titles {
		c, err := e.svc.CreateCard(context.Background(), owner, boardID, listID, &CreateCardRequest{Title: title})
		require.NoError(t, err)
		out[title] = c
	}
	return out
}

func (e *testEnv) member(t *testing.T, owner, boardID uuid.UUID, role Role) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	_, err := e.svc.AddMember(context.Background(), owner, boardID, &AddMemberRequest{UserID: userID, Role: role})
	require.NoError(t, err)
	return userID
}

// listNames returns list names in order and checks the orders are dense.
func (e *testEnv) listNames(t *testing.T, boardID uuid.UUID) []string {
	t.Helper()
	lists, err := e.repo.ListLists(context.Background(), boardID)
	require.NoError(t, err)
	names := make([]string, len(lists))
	for i, l := range lists {
		require.Equal(t, i, l.Order, "list orders must be dense")
		names[i] = l.Name
	}
	return names
}

// cardTitles returns card titles in order and checks the orders are dense.
func (e *testEnv) cardTitles(t *testing.T, listID uuid.UUID) []string {
	t.Helper()
	cards, err := e.repo.ListCards(context.Background(), listID)
	require.NoError(t, err)
	titles := make([]string, len(cards))
	for i, c := range cards {
		require.Equal(t, i, c.Order, "card orders must be dense")
		titles[i] = c.Title
	}
	return titles
}

func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
}

func TestService_CreateList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := uuid.New()
	b := env.board(t, owner)

	env.lists(t, owner, b.ID, "A", "C")
	_, err := env.svc.CreateList(ctx, owner, b.ID, &CreateListRequest{Name: "B", Order: intPtr(1)})
	require.NoError(t, err)
	_, err = env.svc.CreateList(ctx, owner, b.ID, &CreateListRequest{Name: "D", Order: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, env.listNames(t, b.ID))

	t.Run("order past the end", func(t *testing.T) {
		_, err := env.svc.CreateList(ctx, owner, b.ID, &CreateListRequest{Name: "X", Order: intPtr(5)})
		assertKind(t, err, apperrors.ErrInvalidOrder)
		assert.Contains(t, err.Error(), "order")
		assert.Equal(t, []string{"A", "B", "C", "D"}, env.listNames(t, b.ID))
	})

	t.Run("negative order", func(t *testing.T) {
		_, err := env.svc.CreateList(ctx, owner, b.ID, &CreateListRequest{Name: "X", Order: intPtr(-1)})
		assertKind(t, err, apperrors.ErrInvalidOrder)
	})

	t.Run("empty board bounds", func(t *testing.T) {
		empty := env.board(t, owner)
		_, err := env.svc.CreateList(ctx, owner, empty.ID, &CreateListRequest{Name: "X", Order: intPtr(1)})
		assertKind(t, err, apperrors.ErrInvalidOrder)

		l, err := env.svc.CreateList(ctx, owner, empty.ID, &CreateListRequest{Name: "X", Order: intPtr(0)})
		require.NoError(t, err)
		assert.Equal(t, 0, l.Order)
	})

	assert.Equal(t, 5.0, testutil.ToFloat64(env.metrics.BoardMutationsTotal.WithLabelValues(opCreateList, "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.BoardMutationsTotal.WithLabelValues(opCreateList, "invalid_order")))
}

func TestService_UpdateList(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	tests := []struct {
		name   string
		move   string
		target int
		want   []string
	}{
		{"first to last", "A", 2, []string{"B", "C", "A"}},
		{"last to first", "C", 0, []string{"C", "A", "B"}},
		{"middle to first", "B", 0, []string{"B", "A", "C"}},
		{"same position", "B", 1, []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			b := env.board(t, owner)
			lists := env.lists(t, owner, b.ID, "A", "B", "C")

			l, err := env.svc.UpdateList(ctx, owner, b.ID, lists[tt.move].ID, &UpdateListRequest{Order: intPtr(tt.target)})
			require.NoError(t, err)
			assert.Equal(t, tt.target, l.Order)
			assert.Equal(t, tt.want, env.listNames(t, b.ID))
		})
	}

	t.Run("rename keeps order", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		lists := env.lists(t, owner, b.ID, "A", "B")

		name := "Done"
		l, err := env.svc.UpdateList(ctx, owner, b.ID, lists["B"].ID, &UpdateListRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, 1, l.Order)
		assert.Equal(t, []string{"A", "Done"}, env.listNames(t, b.ID))
	})

	t.Run("reorder bounds", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		lists := env.lists(t, owner, b.ID, "A", "B", "C")

		_, err := env.svc.UpdateList(ctx, owner, b.ID, lists["A"].ID, &UpdateListRequest{Order: intPtr(3)})
		assertKind(t, err, apperrors.ErrInvalidOrder)
		assert.Equal(t, []string{"A", "B", "C"}, env.listNames(t, b.ID))
	})

	t.Run("lists do not change boards", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		other := env.board(t, owner)
		lists := env.lists(t, owner, b.ID, "A")

		_, err := env.svc.UpdateList(ctx, owner, b.ID, lists["A"].ID, &UpdateListRequest{BoardID: &other.ID})
		assertKind(t, err, apperrors.ErrForbidden)

		l, err := env.svc.UpdateList(ctx, owner, b.ID, lists["A"].ID, &UpdateListRequest{BoardID: &b.ID})
		require.NoError(t, err)
		assert.Equal(t, b.ID, l.BoardID)
	})
}

func TestService_DeleteList(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	tests := []struct {
		name   string
		delete string
		want   []string
	}{
		{"first", "A", []string{"B", "C"}},
		{"middle", "B", []string{"A", "C"}},
		{"last", "C", []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			b := env.board(t, owner)
			lists := env.lists(t, owner, b.ID, "A", "B", "C")
			env.cards(t, owner, b.ID, lists[tt.delete].ID, "x", "y")

			require.NoError(t, env.svc.DeleteList(ctx, owner, b.ID, lists[tt.delete].ID))
			assert.Equal(t, tt.want, env.listNames(t, b.ID))

			var orphans int64
			require.NoError(t, env.db.Model(&Card{}).Where("list_id = ?", lists[tt.delete].ID).Count(&orphans).Error)
			assert.Zero(t, orphans)
		})
	}

	t.Run("unknown list", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		err := env.svc.DeleteList(ctx, owner, b.ID, uuid.New())
		assertKind(t, err, apperrors.ErrNotFound)
	})
}

func TestService_Cards(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("insert and reorder", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		l := env.lists(t, owner, b.ID, "Todo")["Todo"]
		cards := env.cards(t, owner, b.ID, l.ID, "A", "B", "C")

		_, err := env.svc.CreateCard(ctx, owner, b.ID, l.ID, &CreateCardRequest{Title: "Z", Order: intPtr(0)})
		require.NoError(t, err)
		assert.Equal(t, []string{"Z", "A", "B", "C"}, env.cardTitles(t, l.ID))

		_, err = env.svc.UpdateCard(ctx, owner, b.ID, cards["A"].ID, &UpdateCardRequest{Order: intPtr(3)})
		require.NoError(t, err)
		assert.Equal(t, []string{"Z", "B", "C", "A"}, env.cardTitles(t, l.ID))

		_, err = env.svc.CreateCard(ctx, owner, b.ID, l.ID, &CreateCardRequest{Title: "Y", Order: intPtr(5)})
		assertKind(t, err, apperrors.ErrInvalidOrder)
		_, err = env.svc.UpdateCard(ctx, owner, b.ID, cards["A"].ID, &UpdateCardRequest{Order: intPtr(4)})
		assertKind(t, err, apperrors.ErrInvalidOrder)
		assert.Equal(t, []string{"Z", "B", "C", "A"}, env.cardTitles(t, l.ID))
	})

	t.Run("move between lists", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		lists := env.lists(t, owner, b.ID, "src", "dst")
		src := env.cards(t, owner, b.ID, lists["src"].ID, "A", "B", "C")
		env.cards(t, owner, b.ID, lists["dst"].ID, "X", "Y")

		moved, err := env.svc.UpdateCard(ctx, owner, b.ID, src["B"].ID, &UpdateCardRequest{
			ListID: &lists["dst"].ID,
			Order:  intPtr(1),
		})
		require.NoError(t, err)
		assert.Equal(t, lists["dst"].ID, moved.ListID)
		assert.Equal(t, 1, moved.Order)
		assert.Equal(t, []string{"A", "C"}, env.cardTitles(t, lists["src"].ID))
		assert.Equal(t, []string{"X", "B", "Y"}, env.cardTitles(t, lists["dst"].ID))
	})

	t.Run("move appends without order", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		lists := env.lists(t, owner, b.ID, "src", "dst")
		src := env.cards(t, owner, b.ID, lists["src"].ID, "A")
		env.cards(t, owner, b.ID, lists["dst"].ID, "X")

		moved, err := env.svc.UpdateCard(ctx, owner, b.ID, src["A"].ID, &UpdateCardRequest{ListID: &lists["dst"].ID})
		require.NoError(t, err)
		assert.Equal(t, 1, moved.Order)
		assert.Empty(t, env.cardTitles(t, lists["src"].ID))
		assert.Equal(t, []string{"X", "A"}, env.cardTitles(t, lists["dst"].ID))
	})

	t.Run("move out of range leaves both lists", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		lists := env.lists(t, owner, b.ID, "src", "dst")
		src := env.cards(t, owner, b.ID, lists["src"].ID, "A", "B")
		env.cards(t, owner, b.ID, lists["dst"].ID, "X")

		_, err := env.svc.UpdateCard(ctx, owner, b.ID, src["A"].ID, &UpdateCardRequest{
			ListID: &lists["dst"].ID,
			Order:  intPtr(2),
		})
		assertKind(t, err, apperrors.ErrInvalidOrder)
		assert.Equal(t, []string{"A", "B"}, env.cardTitles(t, lists["src"].ID))
		assert.Equal(t, []string{"X"}, env.cardTitles(t, lists["dst"].ID))
	})

	t.Run("delete compacts", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		l := env.lists(t, owner, b.ID, "Todo")["Todo"]
		cards := env.cards(t, owner, b.ID, l.ID, "A", "B", "C")

		require.NoError(t, env.svc.DeleteCard(ctx, owner, b.ID, cards["A"].ID))
		assert.Equal(t, []string{"B", "C"}, env.cardTitles(t, l.ID))

		_, err := env.svc.GetCard(ctx, owner, b.ID, cards["A"].ID)
		assertKind(t, err, apperrors.ErrNotFound)
	})

	t.Run("field updates", func(t *testing.T) {
		env := newTestEnv(t)
		b := env.board(t, owner)
		l := env.lists(t, owner, b.ID, "Todo")["Todo"]
		card := env.cards(t, owner, b.ID, l.ID, "A")["A"]

		title, desc := "Renamed", "details"
		updated, err := env.svc.UpdateCard(ctx, owner, b.ID, card.ID, &UpdateCardRequest{Title: &title, Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)

		got, err := env.svc.GetCard(ctx, owner, b.ID, card.ID)
		require.NoError(t, err)
		assert.Equal(t, "details", got.Description)
		assert.Equal(t, 0, got.Order)
	})
}

func TestService_DensityAfterMixedSequence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := uuid.New()
	b := env.board(t, owner)
	lists := env.lists(t, owner, b.ID, "L1", "L2", "L3")
	c1 := env.cards(t, owner, b.ID, lists["L1"].ID, "a", "b", "c", "d")
	env.cards(t, owner, b.ID, lists["L2"].ID, "e")

	_, err := env.svc.UpdateCard(ctx, owner, b.ID, c1["a"].ID, &UpdateCardRequest{ListID: &lists["L2"].ID, Order: intPtr(0)})
	require.NoError(t, err)
	_, err = env.svc.UpdateCard(ctx, owner, b.ID, c1["d"].ID, &UpdateCardRequest{Order: intPtr(0)})
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteCard(ctx, owner, b.ID, c1["c"].ID))
	_, err = env.svc.UpdateCard(ctx, owner, b.ID, c1["b"].ID, &UpdateCardRequest{ListID: &lists["L3"].ID})
	require.NoError(t, err)
	_, err = env.svc.UpdateList(ctx, owner, b.ID, lists["L3"].ID, &UpdateListRequest{Order: intPtr(0)})
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteList(ctx, owner, b.ID, lists["L2"].ID))

	assert.Equal(t, []string{"L3", "L1"}, env.listNames(t, b.ID))
	assert.Equal(t, []string{"d"}, env.cardTitles(t, lists["L1"].ID))
	assert.Equal(t, []string{"b"}, env.cardTitles(t, lists["L3"].ID))
}

func TestService_CrossBoardScoping(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := uuid.New()
	mine := env.board(t, owner)
	other := env.board(t, owner)

	mineList := env.lists(t, owner, mine.ID, "mine")["mine"]
	otherList := env.lists(t, owner, other.ID, "other")["other"]
	mineCard := env.cards(t, owner, mine.ID, mineList.ID, "A")["A"]
	otherCard := env.cards(t, owner, other.ID, otherList.ID, "B")["B"]

	tests := []struct {
		name string
		call func() error
	}{
		{"update list of another board", func() error {
			_, err := env.svc.UpdateList(ctx, owner, mine.ID, otherList.ID, &UpdateListRequest{Order: intPtr(0)})
			return err
		}},
		{"update list with invalid order", func() error {
			_, err := env.svc.UpdateList(ctx, owner, mine.ID, otherList.ID, &UpdateListRequest{Order: intPtr(99)})
			return err
		}},
		{"delete list of another board", func() error {
			return env.svc.DeleteList(ctx, owner, mine.ID, otherList.ID)
		}},
		{"create card in another board's list", func() error {
			_, err := env.svc.CreateCard(ctx, owner, mine.ID, otherList.ID, &CreateCardRequest{Title: "x", Order: intPtr(42)})
			return err
		}},
		{"update card of another board", func() error {
			_, err := env.svc.UpdateCard(ctx, owner, mine.ID, otherCard.ID, &UpdateCardRequest{Order: intPtr(0)})
			return err
		}},
		{"move card to another board's list", func() error {
			_, err := env.svc.UpdateCard(ctx, owner, mine.ID, mineCard.ID, &UpdateCardRequest{ListID: &otherList.ID, Order: intPtr(7)})
			return err
		}},
		{"delete card of another board", func() error {
			return env.svc.DeleteCard(ctx, owner, mine.ID, otherCard.ID)
		}},
		{"read card of another board", func() error {
			_, err := env.svc.GetCard(ctx, owner, mine.ID, otherCard.ID)
			return err
		}},
		{"list cards of another board's list", func() error {
			_, err := env.svc.ListCards(ctx, owner, mine.ID, otherList.ID)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertKind(t, tt.call(), apperrors.ErrForbidden)
		})
	}

	assert.Equal(t, []string{"A"}, env.cardTitles(t, mineList.ID))
	assert.Equal(t, []string{"B"}, env.cardTitles(t, otherList.ID))
}

func TestService_Permissions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := uuid.New()
	b := env.board(t, owner)
	l := env.lists(t, owner, b.ID, "Todo")["Todo"]

	viewer := env.member(t, owner, b.ID, RoleViewer)
	member := env.member(t, owner, b.ID, RoleMember)
	stranger := uuid.New()

	_, err := env.svc.CreateCard(ctx, viewer, b.ID, l.ID, &CreateCardRequest{Title: "x"})
	assertKind(t, err, apperrors.ErrForbidden)

	_, err = env.svc.CreateCard(ctx, stranger, b.ID, l.ID, &CreateCardRequest{Title: "x"})
	assertKind(t, err, apperrors.ErrForbidden)

	_, err = env.svc.CreateCard(ctx, member, b.ID, l.ID, &CreateCardRequest{Title: "x"})
	require.NoError(t, err)

	cards, err := env.svc.ListCards(ctx, viewer, b.ID, l.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 1)

	_, err = env.svc.GetBoard(ctx, stranger, b.ID)
	assertKind(t, err, apperrors.ErrForbidden)

	_, err = env.svc.GetBoard(ctx, owner, uuid.New())
	assertKind(t, err, apperrors.ErrNotFound)

	// Permission is checked before the order is validated.
	_, err = env.svc.CreateList(ctx, viewer, b.ID, &CreateListRequest{Name: "x", Order: intPtr(99)})
	assertKind(t, err, apperrors.ErrForbidden)

	err = env.svc.DeleteBoard(ctx, member, b.ID)
	assertKind(t, err, apperrors.ErrForbidden)
}

func TestService_Boards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner, admin := uuid.New(), uuid.New()
	b := env.board(t, owner)
	other := env.board(t, uuid.New())
	_, err := env.svc.AddMember(ctx, other.OwnerID, other.ID, &AddMemberRequest{UserID: admin, Role: RoleAdmin})
	require.NoError(t, err)
	_, err = env.svc.AddMember(ctx, owner, b.ID, &AddMemberRequest{UserID: admin, Role: RoleAdmin})
	require.NoError(t, err)
	env.lists(t, owner, b.ID, "A", "B")

	t.Run("list boards with roles", func(t *testing.T) {
		boards, err := env.svc.ListBoards(ctx, admin)
		require.NoError(t, err)
		require.Len(t, boards, 2)
		for _, bw := range boards {
			assert.Equal(t, RoleAdmin, bw.Role)
		}

		boards, err = env.svc.ListBoards(ctx, owner)
		require.NoError(t, err)
		require.Len(t, boards, 1)
		assert.Equal(t, RoleOwner, boards[0].Role)
	})

	t.Run("get board", func(t *testing.T) {
		detail, err := env.svc.GetBoard(ctx, admin, b.ID)
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, detail.Role)
		require.Len(t, detail.Lists, 2)
		assert.Equal(t, "A", detail.Lists[0].Name)
	})

	t.Run("admin updates but cannot delete", func(t *testing.T) {
		name := "Renamed"
		updated, err := env.svc.UpdateBoard(ctx, admin, b.ID, &UpdateBoardRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)

		assertKind(t, env.svc.DeleteBoard(ctx, admin, b.ID), apperrors.ErrForbidden)
	})

	t.Run("owner deletes with contents", func(t *testing.T) {
		require.NoError(t, env.svc.DeleteBoard(ctx, owner, b.ID))

		_, err := env.svc.GetBoard(ctx, owner, b.ID)
		assertKind(t, err, apperrors.ErrNotFound)

		for _, model := range []any{&List{}, &BoardMember{}, &Activity{}} {
			var n int64
			require.NoError(t, env.db.Model(model).Where("board_id = ?", b.ID).Count(&n).Error)
			assert.Zero(t, n)
		}
	})
}

func TestService_Members(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := uuid.New()
	b := env.board(t, owner)
	admin := env.member(t, owner, b.ID, RoleAdmin)
	member := env.member(t, owner, b.ID, RoleMember)

	t.Run("add rules", func(t *testing.T) {
		_, err := env.svc.AddMember(ctx, owner, b.ID, &AddMemberRequest{UserID: uuid.New(), Role: RoleOwner})
		assertKind(t, err, apperrors.ErrBadRequest)

		_, err = env.svc.AddMember(ctx, admin, b.ID, &AddMemberRequest{UserID: uuid.New(), Role: RoleAdmin})
		assertKind(t, err, apperrors.ErrForbidden)

		_, err = env.svc.AddMember(ctx, owner, b.ID, &AddMemberRequest{UserID: owner, Role: RoleMember})
		assertKind(t, err, apperrors.ErrConflict)

		_, err = env.svc.AddMember(ctx, owner, b.ID, &AddMemberRequest{UserID: member, Role: RoleViewer})
		assertKind(t, err, apperrors.ErrConflict)

		_, err = env.svc.AddMember(ctx, member, b.ID, &AddMemberRequest{UserID: uuid.New(), Role: RoleViewer})
		assertKind(t, err, apperrors.ErrForbidden)

		added, err := env.svc.AddMember(ctx, admin, b.ID, &AddMemberRequest{UserID: uuid.New(), Role: RoleViewer})
		require.NoError(t, err)
		assert.Equal(t, RoleViewer, added.Role)
	})

	t.Run("update rules", func(t *testing.T) {
		_, err := env.svc.UpdateMemberRole(ctx, admin, b.ID, member, &UpdateMemberRequest{Role: RoleAdmin})
		assertKind(t, err, apperrors.ErrForbidden)

		other := env.member(t, owner, b.ID, RoleAdmin)
		_, err = env.svc.UpdateMemberRole(ctx, admin, b.ID, other, &UpdateMemberRequest{Role: RoleMember})
		assertKind(t, err, apperrors.ErrForbidden)

		updated, err := env.svc.UpdateMemberRole(ctx, admin, b.ID, member, &UpdateMemberRequest{Role: RoleViewer})
		require.NoError(t, err)
		assert.Equal(t, RoleViewer, updated.Role)

		_, err = env.svc.UpdateMemberRole(ctx, owner, b.ID, uuid.New(), &UpdateMemberRequest{Role: RoleViewer})
		assertKind(t, err, apperrors.ErrNotFound)
	})

	t.Run("remove rules", func(t *testing.T) {
		peer := env.member(t, owner, b.ID, RoleAdmin)
		assertKind(t, env.svc.RemoveMember(ctx, admin, b.ID, peer), apperrors.ErrForbidden)
		require.NoError(t, env.svc.RemoveMember(ctx, owner, b.ID, peer))

		leaver := env.member(t, owner, b.ID, RoleViewer)
		require.NoError(t, env.svc.RemoveMember(ctx, leaver, b.ID, leaver))
		_, err := env.svc.GetBoard(ctx, leaver, b.ID)
		assertKind(t, err, apperrors.ErrForbidden)

		assertKind(t, env.svc.RemoveMember(ctx, owner, b.ID, owner), apperrors.ErrBadRequest)
		assertKind(t, env.svc.RemoveMember(ctx, owner, b.ID, uuid.New()), apperrors.ErrNotFound)
	})

	members, err := env.svc.ListMembers(ctx, member, b.ID)
	require.NoError(t, err)
	for _, m := range members {
		assert.NotEqual(t, owner, m.UserID)
	}
}

func TestService_ActivityAndStream(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := uuid.New()
	b := env.board(t, owner)

	sub, err := env.svc.Subscribe(ctx, owner, b.ID)
	require.NoError(t, err)
	defer sub.Close()

	_, err = env.svc.Subscribe(ctx, uuid.New(), b.ID)
	assertKind(t, err, apperrors.ErrForbidden)

	l := env.lists(t, owner, b.ID, "Todo")["Todo"]
	card := env.cards(t, owner, b.ID, l.ID, "A")["A"]
	_, err = env.svc.CreateList(ctx, owner, b.ID, &CreateListRequest{Name: "bad", Order: intPtr(9)})
	require.Error(t, err)

	activity, err := env.svc.ListActivity(ctx, owner, b.ID, nil)
	require.NoError(t, err)
	require.Len(t, activity, 3)
	assert.Equal(t, events.EntityCard, activity[0].EntityType)
	assert.Equal(t, card.ID, activity[0].EntityID)
	assert.Equal(t, events.ActionCreated, activity[0].Action)

	page, err := env.svc.ListActivity(ctx, owner, b.ID, &ActivityQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, l.ID, page[0].EntityID)

	// The board was created before subscribing, so the stream starts at the list.
	msg := <-sub.C()
	assert.Equal(t, events.BoardTopic("test", b.ID), msg.Topic)
	assert.Contains(t, string(msg.Payload), l.ID.String())
	msg = <-sub.C()
	assert.Contains(t, string(msg.Payload), `"action":"created"`)
	assert.Contains(t, string(msg.Payload), card.ID.String())
}
