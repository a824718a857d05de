package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"exam-bridge/internal/config"
	"exam-bridge/internal/directory"
	"exam-bridge/internal/errs"
	"exam-bridge/internal/handler"
	"exam-bridge/pkg"
)

type App struct {
	e   *gin.Engine
	h   handler.Handler
	cfg *config.Config
	g   prometheus.Gatherer
}

func NewApp(h handler.Handler, cfg *config.Config, g prometheus.Gatherer) *App {
	registerValidators()

	e := gin.New()
	e.Use(gin.Recovery(), requestLogger(), cors(cfg))

	app := &App{
		e:   e,
		h:   h,
		cfg: cfg,
		g:   g,
	}

	app.SetupRoutes()

	return app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    app.cfg.Server.Addr,
		Handler: app.e,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errs.Wrapf(err, "server start failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrapf(err, "server shutdown failed")
	}
	log.Info().Msg("server stopped")
	return nil
}

func (app *App) SetupRoutes() {
	app.e.GET("/health", app.Health)
	app.e.GET("/health/status", app.HealthStatus)
	app.e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.g, promhttp.HandlerOpts{})))

	api := app.e.Group("/api")

	api.GET("/schools/search", app.SearchSchools)

	api.POST("/auth/login", app.Login)
	api.POST("/auth/logout", app.Logout)

	api.GET("/exams", app.GetExams)
	api.POST("/exams/range", app.GetExamsByRange)
}

func (app *App) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (app *App) HealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     version,
		"environment": app.cfg.Env,
	})
}

type SearchSchoolsReq struct {
	Query string `form:"query" binding:"required,notblank"`
}

func (app *App) SearchSchools(c *gin.Context) {
	var req SearchSchoolsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search query is required"})
		return
	}

	schools, err := app.h.SearchSchools(c, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidArgument), directory.IsTooManyResults(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": errs.Message(err)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error searching schools: " + errs.Message(err)})
		}
		return
	}

	c.JSON(http.StatusOK, schools)
}

type LoginReq struct {
	School   string `json:"school" binding:"required,notblank"`
	Username string `json:"username" binding:"required,notblank"`
	Password string `json:"password" binding:"required,notblank"`
}

func (app *App) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "school, username, and password are required"})
		return
	}

	out := app.h.Login(c, req.School, req.Username, req.Password)
	if !out.Success {
		c.JSON(http.StatusBadRequest, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

type LogoutReq struct {
	SessionID string `form:"sessionId" binding:"required,notblank"`
}

func (app *App) Logout(c *gin.Context) {
	var req LogoutReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session ID is required"})
		return
	}

	app.h.Logout(c, req.SessionID)
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

type GetExamsReq struct {
	SessionID string `form:"sessionId" binding:"required,notblank"`
	StartDate string `form:"startDate" binding:"required"`
	EndDate   string `form:"endDate" binding:"required"`
}

func (app *App) GetExams(c *gin.Context) {
	var req GetExamsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session ID, start date and end date are required"})
		return
	}

	startDate, err := pkg.ParseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate format"})
		return
	}
	endDate, err := pkg.ParseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate format"})
		return
	}

	app.getExams(c, req.SessionID, startDate, endDate)
}

// GetExamsRangeReq dates are ISO strings, pkg.Date rejects any other form.
type GetExamsRangeReq struct {
	SessionID string   `json:"sessionId" binding:"required,notblank"`
	StartDate pkg.Date `json:"startDate"`
	EndDate   pkg.Date `json:"endDate"`
}

func (app *App) GetExamsByRange(c *gin.Context) {
	var req GetExamsRangeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session ID and ISO start and end dates are required"})
		return
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start date and end date are required"})
		return
	}

	app.getExams(c, req.SessionID, req.StartDate, req.EndDate)
}

func (app *App) getExams(c *gin.Context, sessionID string, startDate, endDate pkg.Date) {
	list, err := app.h.GetExams(c, sessionID, startDate, endDate)
	if err != nil {
		if errors.Is(err, errs.ErrUnauthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error getting exams: " + errs.Message(err)})
		return
	}

	c.JSON(http.StatusOK, list)
}

// registerValidators adds the rules used by the request structs to gin's validator.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// requestLogger logs the path only, query strings carry session ids.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

func cors(cfg *config.Config) gin.HandlerFunc {
	anyOrigin := cfg.AllowsAnyOrigin()
	allowed := make(map[string]struct{}, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case anyOrigin:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; !ok {
				break
			}
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
