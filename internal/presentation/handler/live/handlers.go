package live

import (
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/pulsewall/pulsewall/internal/infrastructure/ws"
)

type Handler struct {
	core *ws.Core
}

func NewHandler(core *ws.Core) *Handler {
	return &Handler{core: core}
}

// ConnectHandler upgrades the request and attaches the connection to the
// hub. Room membership is driven by join/leave frames sent over the socket.
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.core.Upgrade(w, r)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := ws.NewClient(conn, uuid.NewString())

	h.core.Register() <- client

	go client.WriteMessage()
	go client.ReadMessage(h.core)
}
