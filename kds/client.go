package kds

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-ops/utils"
)

const (
	sendBuffer   = 16
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	maxFrameSize = 1 << 16
)

// ErrClientGone is returned by Send once the client disconnected or fell behind.
var ErrClientGone = errors.New("display client gone")

// Command is a message sent by a display.
type Command struct {
	Action  string `json:"action"`
	OrderID uint   `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Client is one websocket connection. All writes go through WritePump.
type Client struct {
	RestaurantID uint
	UserID       uint
	Role         string
	Stream       string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, restaurantID, userID uint, role, stream string) *Client {
	return &Client{
		RestaurantID: restaurantID,
		UserID:       userID,
		Role:         role,
		Stream:       stream,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
	}
}

// Done is closed when the client disconnects.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send queues v as a JSON text frame. A client whose buffer is full is dropped.
func (c *Client) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClientGone
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientGone
	default:
		utils.ErrorLogger.WithField("user_id", c.UserID).Warn("Display send buffer full, dropping client")
		c.close()
		return ErrClientGone
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) WritePump() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				utils.ErrorLogger.Warnf("Display write error: %v", err)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}

// ReadPump blocks until the connection fails, passing decoded commands to handle.
func (c *Client) ReadPump(handle func(Command)) {
	defer c.close()
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				utils.InfoLogger.WithField("user_id", c.UserID).Debugf("Display read ended: %v", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if handle != nil {
			handle(cmd)
		}
	}
}
