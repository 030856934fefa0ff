package server

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/igs-sky/1A2B-Game/internal/bytespool"
)

// lineConn frames a TCP connection on newline boundaries. Reads are
// single-owner (the reader task); writes are serialized so the
// orchestrator and the heartbeat watcher can interleave safely.
type lineConn struct {
	conn net.Conn
	r    *bufio.Reader

	wmtx sync.Mutex
}

func newLineConn(conn net.Conn) *lineConn {
	return &lineConn{conn: conn, r: bufio.NewReader(conn)}
}

// ReadLine blocks for the next newline-terminated line, trimmed of the
// frame delimiters.
func (c *lineConn) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// WriteLine frames and sends one line in a single Write call.
func (c *lineConn) WriteLine(line string) error {
	buf := bytespool.Get()
	defer bytespool.Put(buf)

	buf.WriteString(line)
	buf.WriteByte('\n')

	c.wmtx.Lock()
	defer c.wmtx.Unlock()

	_, err := c.conn.Write(buf.Bytes())
	return err
}

func (c *lineConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *lineConn) Close() error {
	return c.conn.Close()
}
