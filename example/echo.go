// Command echo serves raw WebSocket frames on a TCP port: data frames are
// echoed back, pings are answered with pongs and a close frame is answered
// with a close frame before the connection ends.
//
// It expects peers that start sending frames right away, for example behind
// a proxy that terminates the HTTP upgrade.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Zereker/wsframe"
)

type echoServer struct {
	sync.RWMutex
	connections map[uuid.UUID]*wsframe.Conn
}

func newEchoServer() *echoServer {
	return &echoServer{connections: make(map[uuid.UUID]*wsframe.Conn)}
}

func (s *echoServer) Handle(conn net.Conn) {
	var c *wsframe.Conn

	onFrame := wsframe.OnFrameOption(func(f *wsframe.Frame) error {
		switch f.Header().OpCode {
		case wsframe.OpPing:
			return c.Write(wsframe.PongFrame(f.Payload()))
		case wsframe.OpPong:
			return nil
		case wsframe.OpClose:
			cf, err := f.CloseFrame()
			if err != nil {
				cf = &wsframe.CloseFrame{Code: wsframe.CloseProtocol}
			}
			// The peer drops the TCP connection once it sees our reply.
			return c.Write(wsframe.CloseMessageFrame(cf))
		default:
			echo := wsframe.MessageFrame(f.Header().OpCode, f.Payload(), f.Header().Fin)
			return c.Write(echo)
		}
	})

	errorOption := wsframe.OnErrorOption(func(err error) wsframe.ErrorAction {
		slog.Error("connection error", "error", err)
		return wsframe.Disconnect
	})

	c, err := wsframe.NewConn(conn,
		onFrame,
		errorOption,
		wsframe.BufferSizeOption(64),
		wsframe.MaxFrameSizeOption(64*1024),
		wsframe.WriteThresholdOption(4096),
		wsframe.ReadRateLimitOption(rate.Limit(1000), 100),
	)
	if err != nil {
		slog.Error("failed to create connection", "error", err)
		_ = conn.Close()
		return
	}

	s.addConn(c)
	defer s.deleteConn(c)

	_ = c.Run(context.Background())
}

func (s *echoServer) addConn(c *wsframe.Conn) {
	s.Lock()
	defer s.Unlock()

	slog.Info("add new conn", "conn_id", c.ID(), "addr", c.Addr())
	s.connections[c.ID()] = c
}

func (s *echoServer) deleteConn(c *wsframe.Conn) {
	s.Lock()
	defer s.Unlock()

	delete(s.connections, c.ID())
}

func main() {
	server, err := wsframe.Listen("tcp", "127.0.0.1:12345")
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("server start", "addr", server.Addr().String())
	if err := server.Serve(ctx, newEchoServer()); err != nil && ctx.Err() == nil {
		slog.Error("server error", "error", err)
	}
}
