// Package ipc carries control commands from strom-ctl to the daemon over a
// unix socket, one JSON request and one JSON response per connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const (
	CmdTrigger = "trigger"
	CmdSay     = "say"
	CmdStatus  = "status"
)

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type Response struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

type Handler func(ctx context.Context, msg ControlMessage) Response

type Server struct {
	path    string
	handler Handler
	ln      net.Listener
}

// Listen binds the socket, replacing a stale one left by a previous run.
func Listen(path string, handler Handler) (*Server, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	return &Server{path: path, handler: handler, ln: ln}, nil
}

// Serve accepts connections until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				os.Remove(s.path)
				return nil
			}
			log.Warn("Accept failed", "err", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		json.NewEncoder(conn).Encode(Response{Error: "bad request"})
		return
	}

	log.Debug("Control message", "cmd", msg.Cmd)

	resp := s.handler(ctx, msg)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Debug("Failed to write response", "err", err)
	}
}

// Send delivers msg to the daemon listening on path and waits up to timeout
// for its response.
func Send(path string, msg ControlMessage, timeout time.Duration) (Response, error) {
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Response{}, fmt.Errorf("send: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
