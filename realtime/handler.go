package realtime

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Authorization happens upstream; the bus accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a tracking channel session and starts
// its read and write pumps.
func ServeWS(hub *Hub, engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Error upgrading connection: %v", err)
			return
		}

		c := newClient(hub, engine, conn)
		hub.Register(c)
		log.Printf("connection %s opened from %s", c.id, r.RemoteAddr)

		go c.writePump()
		go c.readPump()
	}
}
