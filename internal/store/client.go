package store

import (
	"encoding/json"
	"net"
	"time"
)

// Client implements Store over a Unix socket served by Serve.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 500 * time.Millisecond}
}

func (c *Client) withConn(fn func(conn net.Conn) error) error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return ErrUnavailable
	}
	defer conn.Close()
	return fn(conn)
}

func (c *Client) roundTrip(req Request) (Response, error) {
	var resp Response
	err := c.withConn(func(conn net.Conn) error {
		if err := json.NewEncoder(conn).Encode(&req); err != nil {
			return err
		}
		return json.NewDecoder(conn).Decode(&resp)
	})
	if err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return resp, responseError(resp)
	}
	return resp, nil
}

// Available pings the daemon.
func (c *Client) Available() bool {
	_, err := c.roundTrip(Request{Op: "ping"})
	return err == nil
}

func (c *Client) GetItem(key string) (string, bool, error) {
	resp, err := c.roundTrip(Request{Op: "get", Key: key})
	if err != nil {
		return "", false, err
	}
	return resp.Value, resp.Found, nil
}

func (c *Client) SetItem(key, value string) error {
	_, err := c.roundTrip(Request{Op: "set", Key: key, Value: value})
	return err
}

func (c *Client) RemoveItem(key string) error {
	_, err := c.roundTrip(Request{Op: "remove", Key: key})
	return err
}

// SetItems forwards the batch in one request; atomicity is that of the served store.
func (c *Client) SetItems(items []Item) error {
	_, err := c.roundTrip(Request{Op: "set_many", Items: items})
	return err
}

func (c *Client) RemoveItems(keys ...string) error {
	_, err := c.roundTrip(Request{Op: "remove_many", Keys: keys})
	return err
}

var _ Batcher = (*Client)(nil)
