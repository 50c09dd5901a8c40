package trough

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Methods whose result keeps the leading field: for GetData it is the
// pending-sample count, for DeviceIdentification it is part of the
// identification itself.
const (
	MethodGetData              = "GetData"
	MethodDeviceIdentification = "DeviceIdentification"
)

// prologueLimit bounds the single greeting read performed on connect.
const prologueLimit = 1024

// Client owns the single TCP connection to the trough server and
// serializes commands over it. Safe for concurrent use; exactly one
// request is in flight at any instant, and the mutex is held only for
// the send+read round trip, not while decoding.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader

	addr      string
	closeOnce sync.Once
}

// Dial connects to the trough server and consumes its prologue.
func Dial(addr string) (*Client, error) {
	return DialContext(context.Background(), addr)
}

// DialContext connects with a context for cancellation. The server's
// greeting is read once (bounded) and logged, never parsed. The returned
// client owns the connection; close it exactly once with Close.
func DialContext(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}

	buf := make([]byte, prologueLimit)
	n, err := conn.Read(buf)
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Op: "prologue", Err: err}
	}
	log.Debug().
		Str("addr", addr).
		Str("prologue", strings.TrimSpace(string(buf[:n]))).
		Msg("trough connected")

	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		addr:   addr,
	}, nil
}

// Addr returns the server address this client dialed.
func (c *Client) Addr() string {
	return c.addr
}

// Close closes the connection. Subsequent operations fail with a
// ConnectionError. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// exchange performs one request/response round trip under the connection
// mutex. An empty read means the peer closed the connection.
func (c *Client) exchange(request string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.conn.Write([]byte(request)); err != nil {
		return "", &ConnectionError{Op: "send", Err: err}
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", &ConnectionError{Op: "read", Err: err}
	}
	return line, nil
}

// command sends one encoded line and parses the response into coerced
// fields. Parsing happens outside the connection mutex.
func (c *Client) command(request string) (Fields, error) {
	line, err := c.exchange(request)
	if err != nil {
		return nil, err
	}
	raw, err := parseResponse(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return nil, err
	}
	return coerceFields(raw), nil
}

// Call invokes a trough method. The result is shaped by field count:
// GetData and DeviceIdentification keep the full sequence including the
// leading field; otherwise an empty sequence stays empty, a single field
// is returned as-is, and for two or more fields the leading status code
// is dropped.
func (c *Client) Call(method string, args ...any) (Fields, error) {
	fields, err := c.command(encodeCall(method, formatArgs(args)))
	if err != nil {
		return nil, err
	}
	switch {
	case method == MethodGetData || method == MethodDeviceIdentification:
		return fields, nil
	case len(fields) <= 1:
		return fields, nil
	default:
		return fields[1:], nil
	}
}

// Get reads a trough property. The response must carry exactly one field.
func (c *Client) Get(prop string) (Value, error) {
	fields, err := c.command(encodeGet(prop))
	if err != nil {
		return Value{}, err
	}
	if len(fields) != 1 {
		return Value{}, &ProtocolError{Prop: prop, Fields: fields}
	}
	return fields[0], nil
}

// Set writes a trough property. The response must carry no fields.
func (c *Client) Set(prop string, value any) error {
	fields, err := c.command(encodeSet(prop, formatArg(value)))
	if err != nil {
		return err
	}
	if len(fields) != 0 {
		return &ProtocolError{Prop: prop, Fields: fields}
	}
	return nil
}

// Ctrl updates a control value in the server and returns the coerced
// fields unshaped.
func (c *Client) Ctrl(name string, value any) (Fields, error) {
	return c.command(encodeCtrl(name, formatArg(value)))
}
