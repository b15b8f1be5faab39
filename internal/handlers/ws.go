package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"teamchat-backend/internal/logger"
	"teamchat-backend/internal/services"
	"teamchat-backend/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsClient serializes writes to a single websocket connection. The underlying
// connection is not safe for concurrent writes, and broadcasts may arrive
// from other connections' event handlers at any time.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) SendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// SessionMiddleware is the session bridge: it resolves the session token
// established at login to a user identity, exactly once, before the upgrade.
// The token is read from the session cookie the browser sends with the
// handshake; query param and bearer header are fallbacks for non-browser
// clients. Rejection carries no body, only the status: an unauthenticated
// caller is owed nothing about session internals.
func SessionMiddleware() fiber.Handler {
	cookieName := utils.GetEnv("SESSION_COOKIE", "session_token")

	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			authHeader := c.Get("Authorization")
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				token = authHeader[7:]
			}
		}

		if token == "" {
			logger.L().Info().Str("ip", c.IP()).Msg("connection rejected: no session")
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		userID, err := services.ValidateSessionToken(token)
		if err != nil {
			logger.L().Info().Str("ip", c.IP()).Msg("connection rejected: invalid session")
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

// WebSocketHandler runs the read loop for one authenticated connection. Each
// connection's events are handled one at a time in arrival order; the defer
// performs the implicit leave of every joined room on disconnect.
func WebSocketHandler(gw *Gateway, users *services.UserService) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		// Identity resolved by the session bridge before the upgrade. The
		// display name comes from the user store, not from session claims.
		userID := conn.Locals("user_id").(uuid.UUID)
		user, err := users.GetUser(context.Background(), userID)
		if err != nil {
			logger.L().Info().Str("user_id", userID.String()).Msg("connection rejected: unknown user")
			conn.Close()
			return
		}
		userName := user.Name

		connID := uuid.New().String()
		client := &wsClient{conn: conn}

		gw.Rooms().Register(connID, userID, client)
		logger.L().Debug().Str("conn_id", connID).Str("user_id", userID.String()).Msg("socket connected")

		done := make(chan struct{})
		defer func() {
			close(done)
			gw.Rooms().Unregister(connID)
			conn.Close()
			logger.L().Debug().Str("conn_id", connID).Msg("socket disconnected")
		}()

		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		go func() {
			ticker := time.NewTicker(pingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := client.ping(); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.L().Warn().Err(err).Str("conn_id", connID).Msg("socket read error")
				}
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}

			gw.HandleEvent(context.Background(), client, connID, userID, userName, msg)
		}
	})
}
