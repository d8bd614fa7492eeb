// Package client 是面向行的 TCP 客户端：每条记录追加 '\n' 后发送，服务端不回包。
package client

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"time"
)

// ErrDelimiter 记录中含有保留的分隔符
var ErrDelimiter = errors.New("client: record contains '\\n'")

type Client struct {
	conn net.Conn
	mu   sync.Mutex
	wb   []byte
}

// Dial 连接服务端
func Dial(network, address string) (*Client, error) {
	return DialTimeout(network, address, 0)
}

func DialTimeout(network, address string, timeout time.Duration) (*Client, error) {
	nc, err := net.DialTimeout(network, address, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{conn: nc}, nil
}

// WriteLine 发送一条记录；记录不得包含 '\n'
func (c *Client) WriteLine(rec []byte) error {
	if bytes.IndexByte(rec, '\n') >= 0 {
		return ErrDelimiter
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wb = append(append(c.wb[:0], rec...), '\n')
	_, err := c.conn.Write(c.wb)
	return err
}

// Write 原样发送字节，用于发送跨多次写入的半行
func (c *Client) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(p)
}

// CloseWrite 半关闭写端，服务端读到 EOF
func (c *Client) CloseWrite() error {
	if tc, ok := c.conn.(*net.TCPConn); ok {
		return tc.CloseWrite()
	}
	return c.conn.Close()
}

func (c *Client) LocalAddr() net.Addr { return c.conn.LocalAddr() }

func (c *Client) Close() error { return c.conn.Close() }
