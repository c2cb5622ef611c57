package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/oathbound/oathbound/internal/domain"
	"github.com/oathbound/oathbound/internal/present/rest/presenter"
	"github.com/oathbound/oathbound/internal/service"
	"github.com/oathbound/oathbound/internal/usecase"
)

// userHeader carries the acting user. Identity provisioning is out of scope;
// the gateway in front of this service is expected to set it.
const userHeader = "X-User-Id"

type Handler struct {
	oaths         *usecase.OathUsecase
	checkIns      *usecase.CheckInUsecase
	disputes      *usecase.DisputeUsecase
	notifications *service.NotificationService
}

func NewHandler(
	oaths *usecase.OathUsecase,
	checkIns *usecase.CheckInUsecase,
	disputes *usecase.DisputeUsecase,
	notifications *service.NotificationService,
) *Handler {
	return &Handler{
		oaths:         oaths,
		checkIns:      checkIns,
		disputes:      disputes,
		notifications: notifications,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/oaths", h.handleCreateOath)
	e.POST("/api/v1/oaths/solo", h.handleCreateSoloOath)
	e.GET("/api/v1/oaths/:id", h.handleGetOath)
	e.POST("/api/v1/oaths/:id/accept", h.handleAcceptOath)
	e.POST("/api/v1/oaths/:id/decline", h.handleDeclineOath)
	e.GET("/api/v1/users/:id/oaths", h.handleListOaths)
	e.GET("/api/v1/users/:id/invitations", h.handleListInvitations)
	e.POST("/api/v1/oaths/:id/checkins", h.handleSubmitCheckIn)
	e.GET("/api/v1/oaths/:id/checkins", h.handleListCheckIns)
	e.POST("/api/v1/checkins/:id/verify", h.handleVerifyCheckIn)
	e.POST("/api/v1/checkins/:id/dispute", h.handleOpenDispute)
	e.POST("/api/v1/disputes/:id/resolve", h.handleResolveDispute)
	e.GET("/api/v1/users/:id/disputes/pending", h.handlePendingDisputes)
	e.GET("/api/v1/users/:id/notifications", h.handleListNotifications)
	e.POST("/api/v1/notifications/:id/read", h.handleMarkNotificationRead)
	e.POST("/api/v1/oaths/:id/check-proof", h.handleCheckProof)
	e.POST("/webhooks/leetcode-solved", h.handleProofWebhook)
	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) user(c echo.Context) string {
	return c.Request().Header.Get(userHeader)
}

func (h *Handler) handleCreateOath(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.user(c)
	if userID == "" {
		return presenter.BadRequestMessage(c, "missing user header")
	}

	var input usecase.CreateOathInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	oath, err := h.oaths.Create(ctx, userID, input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, oath)
}

func (h *Handler) handleCreateSoloOath(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.user(c)
	if userID == "" {
		return presenter.BadRequestMessage(c, "missing user header")
	}

	var input usecase.CreateOathInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	oath, err := h.oaths.CreateSolo(ctx, userID, input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, oath)
}

func (h *Handler) handleGetOath(c echo.Context) error {
	ctx := c.Request().Context()

	oath, err := h.oaths.Get(ctx, c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}

	staked, err := h.oaths.TotalStaked(ctx, oath.ID)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, echo.Map{"oath": oath, "totalStaked": staked})
}

func (h *Handler) handleAcceptOath(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.user(c)
	if userID == "" {
		return presenter.BadRequestMessage(c, "missing user header")
	}

	result, err := h.oaths.Accept(ctx, c.Param("id"), userID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, result)
}

func (h *Handler) handleDeclineOath(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.user(c)
	if userID == "" {
		return presenter.BadRequestMessage(c, "missing user header")
	}

	err := h.oaths.Decline(ctx, c.Param("id"), userID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleListOaths(c echo.Context) error {
	ctx := c.Request().Context()

	status := domain.OathStatus(c.QueryParam("status"))
	oaths, err := h.oaths.ListForUser(ctx, c.Param("id"), status)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, oaths)
}

func (h *Handler) handleListInvitations(c echo.Context) error {
	ctx := c.Request().Context()

	oaths, err := h.oaths.ListInvitations(ctx, c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, oaths)
}

type submitCheckInRequest struct {
	Proof domain.Proof `json:"proof"`
	Day   *time.Time   `json:"day,omitempty"`
}

func (h *Handler) handleSubmitCheckIn(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.user(c)
	if userID == "" {
		return presenter.BadRequestMessage(c, "missing user header")
	}

	var req submitCheckInRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	day := time.Now()
	if req.Day != nil {
		day = *req.Day
	}

	checkIn, err := h.checkIns.Submit(ctx, c.Param("id"), userID, day, req.Proof)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, checkIn)
}

func (h *Handler) handleListCheckIns(c echo.Context) error {
	ctx := c.Request().Context()

	checkIns, err := h.checkIns.ListForOath(ctx, c.Param("id"), c.QueryParam("user"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, checkIns)
}

type verifyCheckInRequest struct {
	Complete bool   `json:"complete"`
	Note     string `json:"note"`
}

func (h *Handler) handleVerifyCheckIn(c echo.Context) error {
	ctx := c.Request().Context()

	var req verifyCheckInRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	checkIn, err := h.checkIns.Verify(ctx, c.Param("id"), req.Complete, req.Note)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, checkIn)
}

type openDisputeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleOpenDispute(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.user(c)
	if userID == "" {
		return presenter.BadRequestMessage(c, "missing user header")
	}

	var req openDisputeRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	dispute, err := h.disputes.Open(ctx, c.Param("id"), userID, req.Reason)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, dispute)
}

type resolveDisputeRequest struct {
	Complete bool   `json:"complete"`
	Notes    string `json:"notes"`
}

func (h *Handler) handleResolveDispute(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.user(c)
	if userID == "" {
		return presenter.BadRequestMessage(c, "missing user header")
	}

	var req resolveDisputeRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	dispute, err := h.disputes.Resolve(ctx, c.Param("id"), userID, req.Complete, req.Notes)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, dispute)
}

func (h *Handler) handlePendingDisputes(c echo.Context) error {
	ctx := c.Request().Context()

	disputes, err := h.disputes.ListPendingForJudge(ctx, c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, disputes)
}

func (h *Handler) handleListNotifications(c echo.Context) error {
	ctx := c.Request().Context()

	unreadOnly := c.QueryParam("unread") == "true"
	notifications, err := h.notifications.ListForUser(ctx, c.Param("id"), unreadOnly)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, notifications)
}

func (h *Handler) handleMarkNotificationRead(c echo.Context) error {
	ctx := c.Request().Context()

	userID := h.user(c)
	if userID == "" {
		return presenter.BadRequestMessage(c, "missing user header")
	}

	if err := h.notifications.MarkRead(ctx, userID, c.Param("id")); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleCheckProof(c echo.Context) error {
	ctx := c.Request().Context()

	verified, err := h.checkIns.CheckNow(ctx, c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"verified": verified})
}

type proofWebhookRequest struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	SolvedAt  int64  `json:"solvedAt"`
	Username  string `json:"username"`
}

func (h *Handler) handleProofWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	var req proofWebhookRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Username == "" || req.TitleSlug == "" {
		return presenter.BadRequestMessage(c, "username and titleSlug are required")
	}
	if req.SolvedAt <= 0 {
		return presenter.BadRequestMessage(c, "solvedAt must be a positive unix timestamp")
	}

	solvedAt := req.SolvedAt
	if solvedAt >= 1_000_000_000_000 {
		solvedAt = solvedAt / 1000
	}
	event := domain.ProofEvent{
		ID:        req.ID,
		Title:     req.Title,
		Slug:      req.TitleSlug,
		Timestamp: time.Unix(solvedAt, 0).UTC(),
	}

	processed, _, err := h.checkIns.HandleProofEvent(ctx, req.Username, event)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"processed": processed})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type       string   `json:"type"`
	Recipients []string `json:"recipients"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan domain.Event)

	go h.notifications.Realtime(ctx, input, output)

	// Closed by the reader so the write loop can exit first on a failed
	// write without stranding the reader on a send.
	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				break
			}

			switch req.Type {
			case "listen":
				input <- req.Recipients
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
