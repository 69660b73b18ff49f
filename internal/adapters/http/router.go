package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/webcat/internal/adapters/signal"
	"github.com/dkeye/webcat/internal/app"
	"github.com/dkeye/webcat/internal/config"
	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	sessionName   = "webcat"
	keyUsername   = "username"
	keySessionID  = "sid"
	ctxUser       = "user"
	ctxSessionID  = "session_id"
	cookieMaxAge  = 3600 * 24 * 7
	errBadRequest = "bad arguments"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Client   string `json:"client" binding:"required"`
}

// SessionMiddleware resolves the cookie session to a live user session and
// aborts with 401 otherwise.
func SessionMiddleware(svc *app.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		username, _ := s.Get(keyUsername).(string)
		sid, _ := s.Get(keySessionID).(string)
		u, err := svc.User(username, sid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ctxUser, u)
		c.Set(ctxSessionID, sid)
		c.Next()
	}
}

func currentUser(c *gin.Context) (*core.User, string) {
	u, _ := c.MustGet(ctxUser).(*core.User)
	return u, c.GetString(ctxSessionID)
}

func SetupRouter(ctx context.Context, cfg *config.Config, svc *app.Service, hub *signal.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: cookieMaxAge, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	api.POST("/login", func(c *gin.Context) { handleLogin(c, svc) })

	authed := api.Group("", SessionMiddleware(svc))
	authed.POST("/logout", func(c *gin.Context) { handleLogout(c, svc) })
	authed.GET("/me", func(c *gin.Context) {
		u, _ := currentUser(c)
		c.JSON(http.StatusOK, u.Info())
	})
	authed.GET("/friends", func(c *gin.Context) {
		u, sid := currentUser(c)
		friends, err := svc.Friends(u.Name(), sid)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, friends)
	})
	authed.GET("/ws", func(c *gin.Context) {
		u, sid := currentUser(c)
		hub.HandleWS(ctx, c, u, sid)
	})

	table := rpcTable(svc)
	authed.POST("/rpc/:method", func(c *gin.Context) {
		method := c.Param("method")
		fn, ok := table[method]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown method"})
			return
		}
		u, sid := currentUser(c)
		res, err := fn(c, u, sid)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	return r
}

func handleLogin(c *gin.Context, svc *app.Service) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
		return
	}
	sid, err := svc.Login(c.Request.Context(), req.Username, req.Password, req.Client)
	if err != nil {
		writeError(c, err)
		return
	}
	s := sessions.Default(c)
	s.Set(keyUsername, req.Username)
	s.Set(keySessionID, sid)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
		svc.Logout(req.Username, sid)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": req.Username, "session_id": sid})
}

func handleLogout(c *gin.Context, svc *app.Service) {
	u, sid := currentUser(c)
	svc.Logout(u.Name(), sid)
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("clear session")
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	var startErr *domain.StartError
	var bad badArgs
	switch {
	case errors.As(err, &startErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": string(startErr.Reason)})
	case errors.As(err, &bad):
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest})
	case errors.Is(err, app.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrUnknownClient),
		errors.Is(err, domain.ErrUsernameEmpty),
		errors.Is(err, domain.ErrUsernameInvalid),
		errors.Is(err, domain.ErrUsernameTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrNotAuthenticated.Error()})
	case errors.Is(err, domain.ErrActivityFull), errors.Is(err, domain.ErrSessionOccupied):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
