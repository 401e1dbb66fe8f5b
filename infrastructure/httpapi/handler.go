// Package httpapi exposes the REST surface of the relay: account
// management, message history and submission, and a health probe.
package httpapi

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/process"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"
	"chat-relay/wire"
)

type Handler struct {
	log          *slog.Logger
	auth         services.IAuthService
	tokens       auth.TokenIssuer
	pipeline     contract.IPipeline
	registry     contract.IRegistry
	historyLimit int
}

func NewHandler(
	log *slog.Logger,
	authService services.IAuthService,
	tokens auth.TokenIssuer,
	pipeline contract.IPipeline,
	registry contract.IRegistry,
	historyLimit int,
) *Handler {
	return &Handler{
		log:          log,
		auth:         authService,
		tokens:       tokens,
		pipeline:     pipeline,
		registry:     registry,
		historyLimit: historyLimit,
	}
}

// RegisterRoutes registers middleware and all routes, including the
// WebSocket upgrade endpoint owned by the ws package. Browser frontends
// are served from arbitrary origins, so the API answers CORS preflights.
func (h *Handler) RegisterRoutes(e *echo.Echo, wsUpgrade echo.HandlerFunc) {
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.POST("/api/signup", h.Signup)
	e.POST("/api/login", h.Login)
	e.GET("/api/messages", h.GetMessages)
	e.POST("/api/messages", h.PostMessage)
	e.GET("/api/health", h.Health)
	e.GET("/ws", wsUpgrade)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup creates an account and returns a session token.
// POST /api/signup
func (h *Handler) Signup(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.ErrInvalidPayload))
	}

	token, err := h.auth.Register(req.Username, req.Password)
	if err != nil {
		h.log.Debug("Signup rejected", "username", req.Username, "error", err)
		return c.JSON(errors.MapToHTTPStatus(err), errorBody(err))
	}

	h.log.Info("User registered", "username", req.Username)
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"ok":    true,
		"token": token,
	})
}

// Login verifies credentials and returns a session token.
// POST /api/login
func (h *Handler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.ErrInvalidPayload))
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		return c.JSON(errors.MapToHTTPStatus(err), errorBody(err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":    true,
		"token": token,
	})
}

// GetMessages returns the newest messages in chronological order, using
// the same message shape as the WebSocket envelope.
// GET /api/messages?limit=
func (h *Handler) GetMessages(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > h.historyLimit {
		limit = h.historyLimit
	}

	messages, err := h.pipeline.History(limit)
	if err != nil {
		h.log.Error("Loading history failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": lo.Map(messages, func(m domain.Message, _ int) wire.MessageBody {
			return wire.ToBody(m)
		}),
	})
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// PostMessage submits one human message on behalf of the authenticated
// user. The response is sent once the message is durable and broadcast;
// any bot reply arrives later over the WebSocket channel.
// POST /api/messages
func (h *Handler) PostMessage(c echo.Context) error {
	claims, err := h.authenticate(c)
	if err != nil {
		return c.JSON(errors.MapToHTTPStatus(err), errorBody(err))
	}

	var req postMessageRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, errorBody(errors.ErrInvalidPayload))
	}

	message, err := h.pipeline.SubmitHumanMessage(c.Request().Context(), claims.UserID, req.Content)
	if err != nil {
		h.log.Error("Message submission failed", "user_id", claims.UserID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok": true,
		"id": message.ID,
	})
}

// Health reports process self stats and the live connection count.
// GET /api/health
func (h *Handler) Health(c echo.Context) error {
	body := map[string]interface{}{
		"status":      "ok",
		"pid":         os.Getpid(),
		"connections": h.registry.Count(),
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := p.MemoryInfo(); err == nil {
			body["ram_bytes"] = memInfo.RSS
		}
		if cpuPercent, err := p.CPUPercent(); err == nil {
			body["cpu_percent"] = cpuPercent
		}
	}

	return c.JSON(http.StatusOK, body)
}

// authenticate extracts and validates the bearer token.
func (h *Handler) authenticate(c echo.Context) (*auth.CustomClaims, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil, errors.ErrInvalidToken
	}
	return h.tokens.Validate(token)
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
