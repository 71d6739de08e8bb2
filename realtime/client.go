package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vainnor/delivery-tracking/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 32
)

// Client is one live channel to a connected peer (driver, customer or
// operator). Inbound events are read and dispatched serially by readPump,
// which is what keeps one driver's samples ordered; outbound messages go
// through the buffered send channel drained by writePump.
type Client struct {
	id     string
	hub    *Hub
	engine *Engine
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func newClient(hub *Hub, engine *Engine, conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.NewString(),
		hub:    hub,
		engine: engine,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// close tears the session down exactly once, whatever triggered it: a clean
// close frame, a read error or a write error. Leaving every room is the
// implicit part of disconnect; a reconnecting peer is a new session with a
// new id and must re-join.
func (c *Client) close() {
	c.once.Do(func() {
		c.hub.Unregister(c)
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
		log.Printf("connection %s closed", c.id)
	})
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("connection %s read error: %v", c.id, err)
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleMessage dispatches one inbound frame. Every rejected frame gets an
// error event back to this connection; nothing is dropped silently.
func (c *Client) handleMessage(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("", "invalid message frame")
		return
	}

	switch env.Event {
	case EventJoinDeliveryRoom:
		var data JoinDeliveryRoomData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.DeliveryID == "" {
			c.sendError(env.RequestID, "joinDeliveryRoom requires a deliveryId")
			return
		}
		c.hub.Join(c, DeliveryRoom(data.DeliveryID))

	case EventJoinAdminRoom:
		c.hub.Join(c, AdminRoom)

	case EventLocationUpdate:
		var upd models.LocationUpdate
		if err := json.Unmarshal(env.Data, &upd); err != nil {
			c.sendError(env.RequestID, "invalid locationUpdate payload")
			return
		}
		if err := c.engine.SubmitSample(context.Background(), upd); err != nil {
			c.sendError(env.RequestID, err.Error())
		}

	case EventGetLastLocation:
		var data GetLastLocationData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			c.sendError(env.RequestID, "invalid getLastLocation payload")
			return
		}
		sample, found, err := c.engine.LastKnown(context.Background(), data.DeliveryID)
		if err != nil {
			c.sendError(env.RequestID, err.Error())
			return
		}
		c.sendEvent(EventLastLocation, env.RequestID, LastLocationData{Found: found, Location: sample})

	default:
		c.sendError(env.RequestID, "unknown event: "+env.Event)
	}
}

func (c *Client) sendEvent(event, requestID string, data any) {
	message, err := encodeEvent(event, requestID, data)
	if err != nil {
		log.Printf("Error encoding %s event for connection %s: %v", event, c.id, err)
		return
	}
	select {
	case c.send <- message:
	default:
		log.Printf("connection %s send buffer full, dropping %s event", c.id, event)
	}
}

func (c *Client) sendError(requestID, message string) {
	c.sendEvent(EventError, requestID, ErrorData{Message: message})
}
