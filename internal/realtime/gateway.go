package realtime

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/config"
)

const (
	principalLocal   = "realtime_principal"
	joinCheckTimeout = 5 * time.Second
)

// Conn is the subset of a websocket connection the gateway drives.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Gateway serves realtime websocket connections.
type Gateway struct {
	registry Registry
	auth     *auth.Middleware
	access   *auth.AccessChecker
	cfg      config.RealtimeConfig
	logger   *zap.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(registry Registry, authMiddleware *auth.Middleware, access *auth.AccessChecker, cfg config.RealtimeConfig, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		registry: registry,
		auth:     authMiddleware,
		access:   access,
		cfg:      cfg,
		logger:   logger.Named("gateway"),
	}
}

// Handshake rejects non-upgrade requests and resolves the optional identity
// carried by the "token" query parameter or auth headers. A credential that
// does not resolve still connects, without identity.
func (g *Gateway) Handshake(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	creds := g.auth.Credentials(c)
	if token := c.Query("token"); token != "" {
		creds = g.auth.TokenCredentials(token)
	}
	if creds.Empty() {
		return c.Next()
	}

	principal, err := g.auth.Resolver().Resolve(c.UserContext(), creds)
	if err != nil {
		g.logger.Info("realtime handshake without identity", zap.Error(err))
		return c.Next()
	}
	c.Locals(principalLocal, principal)
	return c.Next()
}

// Handler upgrades the connection and serves it.
func (g *Gateway) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		principal, _ := conn.Locals(principalLocal).(*auth.Principal)
		g.Serve(conn, principal)
	})
}

// Serve runs one connection until it closes. The session is always
// deregistered on return.
func (g *Gateway) Serve(conn Conn, principal *auth.Principal) {
	session := NewSession(principal, defaultSendBuffer)
	g.registry.Register(session)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		g.writeLoop(conn, session)
	}()
	defer func() {
		g.registry.Deregister(session.ID())
		<-writerDone
	}()

	g.readLoop(conn, session)
}

func (g *Gateway) readLoop(conn Conn, session *Session) {
	if limit := g.cfg.ReadLimitBytes; limit > 0 {
		conn.SetReadLimit(int64(limit))
	}
	if ping := g.cfg.PingInterval(); ping > 0 {
		pongWait := 2 * ping
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			g.logger.Debug("realtime read ended", zap.String("session_id", session.ID()), zap.Error(err))
			return
		}
		frame, err := ParseControlFrame(data)
		if err != nil {
			g.logger.Debug("ignored control frame", zap.String("session_id", session.ID()), zap.Error(err))
			continue
		}
		g.apply(session, frame)
	}
}

func (g *Gateway) apply(session *Session, frame ControlFrame) {
	room := frame.Room()
	if !frame.Join() {
		_ = g.registry.Unsubscribe(session.ID(), room)
		return
	}

	principal := session.Principal()
	if principal == nil {
		g.logger.Info("join rejected: no identity",
			zap.String("session_id", session.ID()),
			zap.String("room", room.String()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), joinCheckTimeout)
	defer cancel()
	if err := g.access.CheckRoom(ctx, principal, room.Kind, room.ID); err != nil {
		g.logger.Info("join rejected",
			zap.String("session_id", session.ID()),
			zap.String("principal_id", principal.ID()),
			zap.String("room", room.String()),
			zap.Error(err))
		return
	}
	if err := g.registry.Subscribe(session.ID(), room); err != nil {
		g.logger.Warn("subscribe failed", zap.String("session_id", session.ID()), zap.Error(err))
	}
}

func (g *Gateway) writeLoop(conn Conn, session *Session) {
	var tick <-chan time.Time
	if ping := g.cfg.PingInterval(); ping > 0 {
		ticker := time.NewTicker(ping)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case frame, ok := <-session.Outbound():
			g.setWriteDeadline(conn)
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				g.logger.Debug("realtime write failed", zap.String("session_id", session.ID()), zap.Error(err))
				session.Close()
				_ = conn.Close()
				return
			}
		case <-tick:
			g.setWriteDeadline(conn)
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				session.Close()
				_ = conn.Close()
				return
			}
		}
	}
}

func (g *Gateway) setWriteDeadline(conn Conn) {
	if timeout := g.cfg.WriteTimeout(); timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	}
}
