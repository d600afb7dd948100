package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/watchparty/internal/adapters/signal"
	"github.com/dkeye/watchparty/internal/app"
	"github.com/dkeye/watchparty/internal/config"
	"github.com/dkeye/watchparty/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sessionCookie  = "watchparty"
	clientTokenKey = "client_token"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware gives every browser a stable client token kept
// in the signed cookie session.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			s.Set(clientTokenKey, token)
			if err := s.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save client token")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

type createSessionRequest struct {
	VideoID string `json:"videoId" binding:"required,max=2048"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, relay *app.Relay) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionCookie, store))
	r.Use(ClientTokenMiddleware())

	ctrl := signal.NewSignalWSController(relay, cfg)
	serveSignal := func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString(clientTokenKey)).Str("path", c.FullPath()).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	}

	r.Static("/static", cfg.StaticPath)
	// The original player dials the WebSocket on "/", so upgrades there go
	// to the signal controller and plain GETs get the UI.
	r.GET("/", func(c *gin.Context) {
		if websocket.IsWebSocketUpgrade(c.Request) {
			serveSignal(c)
			return
		}
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": relay.Registry.Len()})
	})

	// Routes used by the original web client.
	r.POST("/session", createSession(relay, http.StatusOK))
	r.GET("/session/:id", getSession(relay))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.POST("/sessions", createSession(relay, http.StatusCreated))
	api.GET("/sessions/:id", getSession(relay))

	// GET /api/sessions/:id/state: current playback state
	api.GET("/sessions/:id/state", func(c *gin.Context) {
		sid := domain.SessionID(c.Param("id"))
		snap, err := relay.Registry.Snapshot(sid)
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sessionId": snap.ID,
			"videoId":   snap.VideoRef,
			"playing":   snap.Playback.Playing,
			"position":  snap.Playback.At(relay.Registry.Clock().Now()),
			"live":      snap.Phase == domain.PhaseLive,
			"members":   relay.Members(sid),
		})
	})

	// GET /api/rooms: sessions with a relay room and their member counts
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": relay.Rooms.List()})
	})

	api.GET("/ws", serveSignal)

	return r
}

// createSession registers a new session for a video and answers with its
// id using the given success status.
func createSession(relay *app.Relay, status int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid videoId"})
			return
		}
		if err := domain.ValidateVideoRef(req.VideoID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sid := domain.NewSessionID()
		if err := relay.Registry.Create(sid, req.VideoID); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("create session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
			return
		}
		c.JSON(status, gin.H{"sessionId": sid})
	}
}

func getSession(relay *app.Relay) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := domain.SessionID(c.Param("id"))
		video, err := relay.Registry.VideoRef(sid)
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"videoId": video})
	}
}
