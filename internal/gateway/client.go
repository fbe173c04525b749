package gateway

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// Client mirrors the teacher's Client: one websocket connection, one
// buffered outbound channel drained by writePump, one inbound loop
// (readPump) decoding frames and handing them to the owning Hub.
// playerID becomes seat (resolved from the participant roster at
// connect time) plus isHost (resolved from the game's host id).
type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
	seat     int
	isHost   bool
}

// inboundFrame pairs a decoded frame with the client that sent it, the
// single channel Hub.run selects on in place of the teacher's
// per-message-kind channels (joins/mods/guesses) — this spec has
// twenty-one frame kinds routed through one dispatch table instead of
// three hand-written handlers.
type inboundFrame struct {
	client *Client
	raw    clientFrame
}

// clientFrame is the wire shape of one inbound message: a type
// discriminator plus a bag of fields, matching spec.md section 6's
// "every frame has a type field, other fields depend on type."
type clientFrame struct {
	Type string         `json:"type"`
	Rest map[string]any `json:"-"`
}

// UnmarshalJSON decodes Type normally and keeps every other field in
// Rest, so the dispatch table can read whatever fields a given type
// needs without twenty-one hand-written structs.
func (c *clientFrame) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if t, ok := m["type"].(string); ok {
		c.Type = t
	}
	delete(m, "type")
	c.Rest = m
	return nil
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var frame clientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}
		h.inbound <- inboundFrame{client: c, raw: frame}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
