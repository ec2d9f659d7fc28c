package api

import (
	"context"
	"net/http"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/service/ratelimit"
	"FinRisk/internal/usecase"
	xhttp "FinRisk/pkg/http"
	xlogger "FinRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Boards is the use case surface the handler drives.
type Boards interface {
	Open(ctx context.Context, symbol string) (usecase.View, error)
	ChangeSymbol(ctx context.Context, boardID, symbol string) (usecase.View, error)
	Reload(ctx context.Context, boardID string) (usecase.View, error)
	Close(boardID string) error
	Edit(ctx context.Context, boardID string, index int, field, value string) (usecase.View, error)
	SaveSlot(ctx context.Context, boardID string, index int) (usecase.View, error)
	Submit(ctx context.Context, boardID string) (usecase.View, error)
	View(boardID string) (usecase.View, error)
	Comparison(boardID string) (usecase.Comparison, error)
	Subscribe(boardID string) (<-chan usecase.View, func(), error)
}

// BoardsHandler exposes forecast boards over HTTP and WebSocket.
type BoardsHandler struct {
	logger       *xlogger.Logger
	boards       Boards
	limiter      *ratelimit.Limiter
	submitPerMin int
	pingInterval time.Duration
	now          func() time.Time
}

func NewBoardsHandler(logger *xlogger.Logger, boards Boards, limiter *ratelimit.Limiter, submitPerMin int) *BoardsHandler {
	return &BoardsHandler{
		logger:       logger,
		boards:       boards,
		limiter:      limiter,
		submitPerMin: submitPerMin,
		pingInterval: 30 * time.Second,
		now:          time.Now,
	}
}

func (h *BoardsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)

	b := g.Group("/boards")
	b.POST("", h.Open)
	b.GET("/:id", h.Get)
	b.DELETE("/:id", h.Close)
	b.PUT("/:id/symbol", h.ChangeSymbol)
	b.POST("/:id/reload", h.Reload)
	b.PATCH("/:id/slots/:index", h.EditSlot)
	b.POST("/:id/slots/:index/save", h.SaveSlot)
	b.POST("/:id/submit", h.Submit, ratelimit.Middleware(h.limiter, h.submitPerMin, ratelimit.ByParam("id")))
	b.GET("/:id/comparison", h.Comparison)
	b.GET("/:id/stream", h.Stream)
}

func (h *BoardsHandler) Health(c echo.Context) error {
	return xhttp.OK(c, map[string]interface{}{
		"status":    "ok",
		"timestamp": h.now().UTC(),
	})
}

func (h *BoardsHandler) Open(c echo.Context) error {
	req := &models.OpenBoardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	v, err := h.boards.Open(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "open board", err)
	}
	return xhttp.Created(c, boardResponse(v))
}

func (h *BoardsHandler) Get(c echo.Context) error {
	req := &models.BoardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	v, err := h.boards.View(req.ID)
	if err != nil {
		return h.fail(c, "get board", err)
	}
	return xhttp.OK(c, boardResponse(v))
}

func (h *BoardsHandler) Close(c echo.Context) error {
	req := &models.BoardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	if err := h.boards.Close(req.ID); err != nil {
		return h.fail(c, "close board", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BoardsHandler) ChangeSymbol(c echo.Context) error {
	req := &models.ChangeSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	v, err := h.boards.ChangeSymbol(c.Request().Context(), req.ID, req.Symbol)
	if err != nil {
		return h.fail(c, "change symbol", err)
	}
	return xhttp.OK(c, boardResponse(v))
}

func (h *BoardsHandler) Reload(c echo.Context) error {
	req := &models.BoardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	v, err := h.boards.Reload(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "reload board", err)
	}
	return xhttp.OK(c, boardResponse(v))
}

func (h *BoardsHandler) EditSlot(c echo.Context) error {
	req := &models.EditSlotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	v, err := h.boards.Edit(c.Request().Context(), req.ID, req.Index, req.Field, string(req.Value))
	if err != nil {
		return h.fail(c, "edit slot", err)
	}
	return xhttp.OK(c, boardResponse(v))
}

func (h *BoardsHandler) SaveSlot(c echo.Context) error {
	req := &models.SlotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	v, err := h.boards.SaveSlot(c.Request().Context(), req.ID, req.Index)
	if err != nil {
		return h.fail(c, "save slot", err)
	}
	return xhttp.OK(c, boardResponse(v))
}

func (h *BoardsHandler) Submit(c echo.Context) error {
	req := &models.BoardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	v, err := h.boards.Submit(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "submit", err)
	}
	return xhttp.OK(c, boardResponse(v))
}

func (h *BoardsHandler) Comparison(c echo.Context) error {
	req := &models.ComparisonRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	cmp, err := h.boards.Comparison(req.ID)
	if err != nil {
		return h.fail(c, "comparison", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.OK(c, comparisonResponse(cmp, req.MinSamples))
}

// fail writes err as an API error. Validation failures become 400 with
// per-field details; everything else goes through toAppError.
func (h *BoardsHandler) fail(c echo.Context, op string, err error) error {
	if verrs, ok := validationErrors(err); ok {
		return xhttp.Invalid(c, verrs)
	}
	ae := toAppError(err)
	if ae.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.String("path", c.Path()), xlogger.Error(err))
	}
	return xhttp.Fail(c, ae)
}
