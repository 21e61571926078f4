// Package session implements the single-exchange connections that carry instructions between peers.
//
// Every connection carries exactly one request line and one response line,
// then both sides close it.
// Each read and write is bounded by a timeout,
// so a peer that vanishes mid-exchange cannot stall the other forever.
package session

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultMaxLine is the default limit on the length of a line.
const DefaultMaxLine = 64 << 20

// ErrLineTooLong is the error produced when the peer sends a line longer than the session's limit.
var ErrLineTooLong = errors.New("line too long")

// Session is one connection to a peer.
type Session struct {
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration

	// MaxLine is the longest line ReadLine accepts, not counting the newline.
	MaxLine int
}

// New wraps conn in a Session.
// A timeout of zero means reads and writes are unbounded.
func New(conn net.Conn, timeout time.Duration) *Session {
	return &Session{
		conn:    conn,
		r:       bufio.NewReader(conn),
		timeout: timeout,
		MaxLine: DefaultMaxLine,
	}
}

// Dial connects to the TCP address addr.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Session, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}
	return New(conn, timeout), nil
}

// RemoteAddr is the address of the peer.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// ReadLine reads one newline-terminated line,
// stripping the line terminator.
func (s *Session) ReadLine() (string, error) {
	if err := s.deadline(); err != nil {
		return "", err
	}

	var buf []byte
	for {
		chunk, err := s.r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > s.MaxLine+2 {
			return "", ErrLineTooLong
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, "reading line")
		}
		break
	}

	line := strings.TrimSuffix(string(buf), "\n")
	line = strings.TrimSuffix(line, "\r")
	if len(line) > s.MaxLine {
		return "", ErrLineTooLong
	}
	return line, nil
}

// WriteLine writes line followed by a newline.
func (s *Session) WriteLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return errors.New("line contains a line break")
	}
	if err := s.deadline(); err != nil {
		return err
	}
	_, err := s.conn.Write([]byte(line + "\n"))
	return errors.Wrap(err, "writing line")
}

// Exchange writes a request line and reads the response line.
func (s *Session) Exchange(line string) (string, error) {
	if err := s.WriteLine(line); err != nil {
		return "", err
	}
	return s.ReadLine()
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) deadline() error {
	if s.timeout <= 0 {
		return nil
	}
	err := s.conn.SetDeadline(time.Now().Add(s.timeout))
	return errors.Wrap(err, "setting deadline")
}
