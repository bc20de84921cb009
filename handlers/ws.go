package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
	"github.com/sirupsen/logrus"
)

// WSHandler pushes expense-change signals to connected clients so the
// SPA can refresh without polling. Sessions subscribe to one user id.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get("user_id")
		logrus.Debugf("websocket client disconnected for user %v", userID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		logrus.Warnf("websocket error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades the request and ties the session to a user id.
// The id travels as a per-session key; melody's connect handler is
// global, so writing it there would race across connections.
func (h *WSHandler) HandleWS(c *gin.Context) {
	keys := map[string]interface{}{"user_id": c.Param("userID")}

	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		logrus.Warnf("failed to upgrade websocket: %v", err)
	}
}

// BroadcastExpenseEvent signals the given user's sessions that their
// expense list changed.
func (h *WSHandler) BroadcastExpenseEvent(userID int64, eventType string) {
	msg := []byte(`{"type": "` + eventType + `"}`)
	target := fmt.Sprintf("%d", userID)

	err := h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get("user_id")
		return exists && id == target
	})
	if err != nil {
		logrus.Warnf("failed to broadcast %s for user %d: %v", eventType, userID, err)
	}
}
