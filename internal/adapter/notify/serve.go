package notify

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Desktop and CLI clients connect from arbitrary origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and runs the subscriber until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, name string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c, err := h.Register(conn, name)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		_ = conn.Close()
		return nil
	}
	go c.WritePump()
	c.ReadPump()
	return nil
}
