package board

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskboard/server/internal/shared/metrics"
	"github.com/taskboard/server/internal/shared/middleware"
	"github.com/taskboard/server/internal/shared/response"
)

const defaultHeartbeat = 15 * time.Second

// Handler handles HTTP requests for boards.
type Handler struct {
	service   *Service
	metrics   *metrics.Metrics
	heartbeat time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHeartbeat sets the keep-alive interval of change streams.
func WithHeartbeat(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// WithHandlerMetrics tracks open change streams.
func WithHandlerMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler creates a new board handler.
func NewHandler(service *Service, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, heartbeat: defaultHeartbeat}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the board routes. The group must already
// authenticate the caller.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	boards := r.Group("/boards")
	{
		boards.POST("", h.CreateBoard)
		boards.GET("", h.ListBoards)
		boards.GET("/:board_id", h.GetBoard)
		boards.PATCH("/:board_id", h.UpdateBoard)
		boards.DELETE("/:board_id", h.DeleteBoard)

		boards.GET("/:board_id/members", h.ListMembers)
		boards.POST("/:board_id/members", h.AddMember)
		boards.PATCH("/:board_id/members/:user_id", h.UpdateMemberRole)
		boards.DELETE("/:board_id/members/:user_id", h.RemoveMember)

		boards.GET("/:board_id/lists", h.ListLists)
		boards.POST("/:board_id/lists", h.CreateList)
		boards.PATCH("/:board_id/lists/:list_id", h.UpdateList)
		boards.DELETE("/:board_id/lists/:list_id", h.DeleteList)

		boards.GET("/:board_id/lists/:list_id/cards", h.ListCards)
		boards.POST("/:board_id/lists/:list_id/cards", h.CreateCard)
		boards.GET("/:board_id/cards/:card_id", h.GetCard)
		boards.PATCH("/:board_id/cards/:card_id", h.UpdateCard)
		boards.DELETE("/:board_id/cards/:card_id", h.DeleteCard)

		boards.GET("/:board_id/activity", h.ListActivity)
		boards.GET("/:board_id/events", h.Stream)
	}
}

// ========== Board Handlers ==========

// CreateBoard creates a board owned by the caller.
func (h *Handler) CreateBoard(c *gin.Context) {
	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	b, err := h.service.CreateBoard(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// ListBoards lists the caller's boards.
func (h *Handler) ListBoards(c *gin.Context) {
	boards, err := h.service.ListBoards(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boards": boards})
}

// GetBoard returns a board with its lists.
func (h *Handler) GetBoard(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}

	detail, err := h.service.GetBoard(c.Request.Context(), middleware.GetUserID(c), boardID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateBoard updates a board.
func (h *Handler) UpdateBoard(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	var req UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	b, err := h.service.UpdateBoard(c.Request.Context(), middleware.GetUserID(c), boardID, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DeleteBoard deletes a board.
func (h *Handler) DeleteBoard(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}

	if err := h.service.DeleteBoard(c.Request.Context(), middleware.GetUserID(c), boardID); err != nil {
		response.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ========== Member Handlers ==========

// ListMembers lists a board's members.
func (h *Handler) ListMembers(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), middleware.GetUserID(c), boardID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMember adds a member to a board.
func (h *Handler) AddMember(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.service.AddMember(c.Request.Context(), middleware.GetUserID(c), boardID, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// UpdateMemberRole changes a member's role.
func (h *Handler) UpdateMemberRole(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.service.UpdateMemberRole(c.Request.Context(), middleware.GetUserID(c), boardID, memberID, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// RemoveMember removes a member from a board.
func (h *Handler) RemoveMember(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), middleware.GetUserID(c), boardID, memberID); err != nil {
		response.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ========== List Handlers ==========

// ListLists lists a board's lists in order.
func (h *Handler) ListLists(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}

	lists, err := h.service.ListLists(c.Request.Context(), middleware.GetUserID(c), boardID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lists": lists})
}

// CreateList creates a list.
func (h *Handler) CreateList(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	list, err := h.service.CreateList(c.Request.Context(), middleware.GetUserID(c), boardID, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// UpdateList renames or reorders a list.
func (h *Handler) UpdateList(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	listID, ok := pathID(c, "list_id")
	if !ok {
		return
	}
	var req UpdateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	list, err := h.service.UpdateList(c.Request.Context(), middleware.GetUserID(c), boardID, listID, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteList deletes a list and its cards.
func (h *Handler) DeleteList(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	listID, ok := pathID(c, "list_id")
	if !ok {
		return
	}

	if err := h.service.DeleteList(c.Request.Context(), middleware.GetUserID(c), boardID, listID); err != nil {
		response.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ========== Card Handlers ==========

// ListCards lists a list's cards in order.
func (h *Handler) ListCards(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	listID, ok := pathID(c, "list_id")
	if !ok {
		return
	}

	cards, err := h.service.ListCards(c.Request.Context(), middleware.GetUserID(c), boardID, listID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

// CreateCard creates a card.
func (h *Handler) CreateCard(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	listID, ok := pathID(c, "list_id")
	if !ok {
		return
	}
	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	card, err := h.service.CreateCard(c.Request.Context(), middleware.GetUserID(c), boardID, listID, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

// GetCard returns a card.
func (h *Handler) GetCard(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	cardID, ok := pathID(c, "card_id")
	if !ok {
		return
	}

	card, err := h.service.GetCard(c.Request.Context(), middleware.GetUserID(c), boardID, cardID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// UpdateCard updates, reorders or moves a card.
func (h *Handler) UpdateCard(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	cardID, ok := pathID(c, "card_id")
	if !ok {
		return
	}
	var req UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	card, err := h.service.UpdateCard(c.Request.Context(), middleware.GetUserID(c), boardID, cardID, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// DeleteCard deletes a card.
func (h *Handler) DeleteCard(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	cardID, ok := pathID(c, "card_id")
	if !ok {
		return
	}

	if err := h.service.DeleteCard(c.Request.Context(), middleware.GetUserID(c), boardID, cardID); err != nil {
		response.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ========== Activity & Stream Handlers ==========

// ListActivity pages through the board's activity feed.
func (h *Handler) ListActivity(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	var q ActivityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	activity, err := h.service.ListActivity(c.Request.Context(), middleware.GetUserID(c), boardID, &q)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": activity})
}

// Stream sends the board's committed changes as server-sent events until
// the client goes away.
func (h *Handler) Stream(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	sub, err := h.service.Subscribe(ctx, middleware.GetUserID(c), boardID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	defer sub.Close()
	defer h.metrics.StreamOpened()()

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", boardID.String())
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent("change", string(msg.Payload))
			return true
		case <-ticker.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
