// Package embeddednats starts a local NATS server in-process, for the
// bundled dev harness where no external NATS deployment is available to
// mirror comment traffic onto.
package embeddednats

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// Server wraps an embedded *natsserver.Server.
type Server struct {
	port     int
	httpPort int
	storeDir string
	server   *natsserver.Server
}

// New builds a Server. port/httpPort default to 4222/8222; storeDir
// defaults to <dataRoot>/nats.
func New(port, httpPort int, dataRoot string) *Server {
	if port == 0 {
		port = 4222
	}
	if httpPort == 0 {
		httpPort = 8222
	}
	return &Server{port: port, httpPort: httpPort, storeDir: filepath.Join(dataRoot, "nats")}
}

// Start launches the embedded server and blocks until it accepts
// connections or the 10s startup timeout elapses.
func (s *Server) Start() error {
	if err := os.MkdirAll(s.storeDir, 0o755); err != nil {
		return fmt.Errorf("embeddednats: failed to create store directory %s: %w", s.storeDir, err)
	}

	opts := &natsserver.Options{
		Host:         "127.0.0.1",
		Port:         s.port,
		HTTPPort:     s.httpPort,
		JetStream:    false,
		StoreDir:     s.storeDir,
		MaxPayload:   4 * 1024 * 1024,
		ServerName:   "adw-dev-nats",
		NoSigs:       true,
		PingInterval: 2 * time.Minute,
		MaxPingsOut:  2,
	}

	server, err := natsserver.NewServer(opts)
	if err != nil {
		return fmt.Errorf("embeddednats: failed to create server: %w", err)
	}
	server.ConfigureLogger()

	go server.Start()

	if !server.ReadyForConnections(10 * time.Second) {
		server.Shutdown()
		return fmt.Errorf("embeddednats: server did not become ready within 10s")
	}

	s.server = server
	return nil
}

// Shutdown stops the embedded server, if running.
func (s *Server) Shutdown() {
	if s.server == nil {
		return
	}
	s.server.Shutdown()
	s.server.WaitForShutdown()
	s.server = nil
}

// ClientURL is the nats:// URL a client should dial.
func (s *Server) ClientURL() string {
	return fmt.Sprintf("nats://127.0.0.1:%d", s.port)
}
