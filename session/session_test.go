package session

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/engine"
)

func TestExchange(t *testing.T) {
	c1, c2 := net.Pipe()
	var (
		client = New(c1, time.Second)
		server = New(c2, time.Second)
	)
	defer client.Close()
	defer server.Close()

	errch := make(chan error, 1)
	go func() {
		line, err := server.ReadLine()
		if err != nil {
			errch <- err
			return
		}
		errch <- server.WriteLine("echo " + line)
	}()

	got, err := client.Exchange("hello")
	if err != nil {
		t.Fatal(err)
	}
	if err = <-errch; err != nil {
		t.Fatal(err)
	}
	if got != "echo hello" {
		t.Errorf("got %q, want %q", got, "echo hello")
	}
}

func TestReadLineCRLF(t *testing.T) {
	c1, c2 := net.Pipe()
	s := New(c1, time.Second)
	defer s.Close()
	defer c2.Close()

	go c2.Write([]byte("windows\r\n"))

	got, err := s.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if got != "windows" {
		t.Errorf("got %q", got)
	}
}

func TestReadLineTooLong(t *testing.T) {
	c1, c2 := net.Pipe()
	s := New(c1, time.Second)
	s.MaxLine = 10
	defer s.Close()
	defer c2.Close()

	go c2.Write([]byte(strings.Repeat("x", 5000) + "\n"))

	if _, err := s.ReadLine(); err != ErrLineTooLong {
		t.Errorf("got error %v, want ErrLineTooLong", err)
	}
}

func TestReadTimeout(t *testing.T) {
	c1, c2 := net.Pipe()
	s := New(c1, 50*time.Millisecond)
	defer s.Close()
	defer c2.Close()

	if _, err := s.ReadLine(); err == nil {
		t.Error("got no error reading from a silent peer")
	}
}

func TestWriteLineRejectsBreaks(t *testing.T) {
	c1, c2 := net.Pipe()
	s := New(c1, time.Second)
	defer s.Close()
	defer c2.Close()

	if err := s.WriteLine("two\nlines"); err == nil {
		t.Error("got no error writing an embedded newline")
	}
}

func TestDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s := New(conn, time.Second)
		defer s.Close()
		if _, err := s.ReadLine(); err == nil {
			s.WriteLine(ReplyOK)
		}
	}()

	s, err := Dial(context.Background(), ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	reply, err := s.Exchange(`{"index":0,"size":0,"type":"reference"}`)
	if err != nil {
		t.Fatal(err)
	}
	if reply != ReplyOK {
		t.Errorf("got reply %q", reply)
	}
}

func TestHandshake(t *testing.T) {
	h := Handshake{BlockSize: 1024, Direction: bsync.Push}
	line := h.String()
	if line != "BlockSize:1024;Direction:push" {
		t.Errorf("got %q", line)
	}
	if !IsHandshake(line) {
		t.Error("IsHandshake is false for a handshake")
	}
	got, err := ParseHandshake(line)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(h, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{
		"",
		"BlockSize:1024",
		"BlockSize:x;Direction:push",
		"BlockSize:1024;Direction:sideways",
		"Direction:push;BlockSize:1024",
		"BlockSize:1024;Direction:push;Extra:1",
	} {
		if _, err := ParseHandshake(bad); err == nil {
			t.Errorf("got no error parsing %q", bad)
		}
	}

	if IsHandshake(`{"index":0,"size":0,"type":"reference"}`) {
		t.Error("IsHandshake is true for an instruction")
	}
}

func TestReplies(t *testing.T) {
	for _, o := range []engine.Outcome{engine.OK, engine.Unavailable} {
		line, ok := ReplyFor(o)
		if !ok {
			t.Fatalf("no reply for %s", o)
		}
		got, err := ParseReply(line)
		if err != nil {
			t.Fatal(err)
		}
		if got != o {
			t.Errorf("got %s, want %s", got, o)
		}
	}
	for _, o := range []engine.Outcome{engine.Malformed, engine.OutOfRange, engine.IOFailure} {
		if _, ok := ReplyFor(o); ok {
			t.Errorf("got a reply for %s", o)
		}
	}
	if _, err := ParseReply(HandshakeReply); err == nil {
		t.Error("got no error parsing a handshake reply as an instruction reply")
	}
}
