package trough

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

const testPrologue = "MicroTrough Remote Server ready\n"

// fakeTroughServer speaks the line protocol over real TCP so client
// tests exercise the full dial/prologue/round-trip path. The handler
// receives each request line (without terminator) and returns the
// response line to send back; returning "" closes the connection.
type fakeTroughServer struct {
	listener net.Listener
	handler  func(line string) string

	mu    sync.Mutex
	conns []net.Conn
	lines []string

	wg sync.WaitGroup
}

func startFakeServer(t *testing.T, handler func(line string) string) *fakeTroughServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if handler == nil {
		handler = func(string) string { return "OK:\n" }
	}

	s := &fakeTroughServer{listener: listener, handler: handler}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.shutdown)
	return s
}

func (s *fakeTroughServer) Addr() string {
	return s.listener.Addr().String()
}

// Received returns every request line seen so far, in arrival order.
func (s *fakeTroughServer) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *fakeTroughServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *fakeTroughServer) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if _, err := conn.Write([]byte(testPrologue)); err != nil {
		return
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		s.mu.Lock()
		s.lines = append(s.lines, line)
		s.mu.Unlock()

		resp := s.handler(line)
		if resp == "" {
			return
		}
		if _, err := conn.Write([]byte(resp)); err != nil {
			return
		}
	}
}

func (s *fakeTroughServer) shutdown() {
	_ = s.listener.Close()
	s.mu.Lock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// dialFake connects a client to the fake server with cleanup wired in.
func dialFake(t *testing.T, s *fakeTroughServer) *Client {
	t.Helper()
	client, err := Dial(s.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
