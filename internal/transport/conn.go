package transport

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeWriteTimeout = time.Second

// Conn is one gateway websocket. Reads must come from a single goroutine;
// writes may come from any.
type Conn struct {
	ws  *websocket.Conn
	url string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a gateway connection. A nil dialer uses websocket.DefaultDialer.
func Dial(ctx context.Context, url string, dialer *websocket.Dialer) (*Conn, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, &ConnectionError{Op: "dial", URL: url, Err: err}
	}

	return &Conn{ws: ws, url: url}, nil
}

// URL returns the address the connection was dialed with
func (c *Conn) URL() string {
	return c.url
}

// ReadFrame blocks until one whole message has arrived and decodes it.
// Fragmented messages are reassembled before decoding. Binary messages are
// zlib streams and are inflated first.
func (c *Conn) ReadFrame() (*Frame, error) {
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, &ConnectionError{Op: "read", URL: c.url, Err: err}
	}

	if kind == websocket.BinaryMessage {
		inflated, err := inflate(data)
		if err != nil {
			return nil, &ProtocolError{Payload: data, Err: err}
		}
		data = inflated
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, &ProtocolError{Payload: data, Err: err}
	}

	return &frame, nil
}

// WriteFrame encodes and writes one frame as a text message
func (c *Conn) WriteFrame(frame *Frame) error {
	if frame == nil {
		return errors.New("frame cannot be nil")
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding op %d frame: %w", frame.Op, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return &ConnectionError{Op: "write", URL: c.url, Err: err}
	}
	return nil
}

// Close sends a normal close and tears down the socket. It is safe to call
// more than once; a blocked ReadFrame returns a ConnectionError.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		c.writeMu.Unlock()

		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening zlib stream: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflating payload: %w", err)
	}
	return out, nil
}
