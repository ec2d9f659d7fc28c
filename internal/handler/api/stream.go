package api

import (
	"net/http"
	"time"

	"FinRisk/internal/domain/models"
	xhttp "FinRisk/pkg/http"
	xlogger "FinRisk/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Stream upgrades to a WebSocket and pushes the board after every change
// until the client disconnects or the board is closed.
func (h *BoardsHandler) Stream(c echo.Context) error {
	req := &models.BoardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	views, cancel, err := h.boards.Subscribe(req.ID)
	if err != nil {
		return h.fail(c, "stream", err)
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("board stream upgrade failed", xlogger.String("board", req.ID), xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	// reader: only needed to notice the client going away and answer pongs
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		select {
		case v, ok := <-views:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "board closed"), time.Now().Add(writeWait))
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(boardResponse(v)); err != nil {
				h.logger.Debug("board stream write failed", xlogger.String("board", req.ID), xlogger.Error(err))
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-gone:
			return nil
		}
	}
}
