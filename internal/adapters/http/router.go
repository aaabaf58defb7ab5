package http

import (
	"context"

	"github.com/dkeye/liveclass/internal/adapters/signal"
	"github.com/dkeye/liveclass/internal/app/orch"
	"github.com/dkeye/liveclass/internal/config"
	"github.com/dkeye/liveclass/internal/storage"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "ct"

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware keeps a stable per-browser token in the session
// cookie so connection logs can be tied back to one browser.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type Deps struct {
	Config   *config.Config
	Orch     *orch.Orchestrator
	Store    storage.Store
	Gatherer prometheus.Gatherer
}

func SetupRouter(ctx context.Context, d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	secret := cfg.Secret
	if secret == "" {
		// cookies from an unset secret only live as long as the process
		secret = uuid.NewString()
	}
	r.Use(sessions.Sessions("LiveClassSessions", cookie.NewStore([]byte(secret))))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	h := &handlers{
		orch:         d.Orch,
		store:        d.Store,
		historyLimit: cfg.HistoryLimit,
		rtc:          cfg.WebRTC(),
	}

	r.GET("/healthz", h.health)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	ctrl := signal.NewSignalWSController(d.Orch, signal.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		PongWait:     cfg.PongWait,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
		JoinLimit:    cfg.JoinLimit,
		JoinInterval: cfg.JoinInterval,
	})

	api := r.Group("/api")
	api.GET("/ws/live", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client_token", c.GetString("client_token")).Msg("ws live endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:room/messages", h.history)
	api.POST("/rooms/:room/notifications", RequireSecret(cfg.Secret), h.publish)
	api.GET("/rtc/config", h.rtcConfig)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
