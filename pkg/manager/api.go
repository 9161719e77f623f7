package manager

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dreylabs/drey/pkg/log"
	"github.com/dreylabs/drey/pkg/metrics"
	"github.com/dreylabs/drey/pkg/task"
)

// API serves the manager's HTTP surface: validated task submission, task
// and worker inspection, health and metrics.
type API struct {
	manager  *Manager
	addr     string
	router   *gin.Engine
	srv      *http.Server
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAPI creates the manager API bound to addr.
func NewAPI(m *Manager, addr string) *API {
	gin.SetMode(gin.ReleaseMode)

	a := &API{
		manager:  m,
		addr:     addr,
		validate: validator.New(),
		logger:   log.WithComponent("manager-api"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), metrics.InstrumentGin())

	router.POST("/tasks", a.submitTask)
	router.GET("/tasks", a.getTasks)
	router.GET("/workers", a.getWorkers)
	router.GET("/healthz", a.healthz)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	a.router = router
	a.srv = &http.Server{Addr: addr, Handler: router}
	return a
}

// Router exposes the underlying handler, mainly for tests.
func (a *API) Router() http.Handler {
	return a.router
}

// Start serves the API until Shutdown is called. It blocks.
func (a *API) Start() error {
	a.logger.Info().Str("addr", a.addr).Msg("Manager API listening")
	if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("manager api: %w", err)
	}
	return nil
}

// Shutdown stops the API gracefully.
func (a *API) Shutdown(ctx context.Context) error {
	return a.srv.Shutdown(ctx)
}

// submitTask accepts a task event, enqueues it and dispatches inline. The
// event is accepted (201) once it is queued; a dispatch failure is reported
// in the response but rolls nothing back.
func (a *API) submitTask(c *gin.Context) {
	var event task.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.validate.Struct(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a.manager.AddTask(&event)

	body := gin.H{"task_id": event.TaskID}
	if err := a.manager.SendWork(c.Request.Context()); err != nil {
		a.logger.Error().Err(err).Str("task_id", event.TaskID.String()).Msg("Dispatch failed")
		body["dispatch_error"] = err.Error()
	} else if worker, ok := a.manager.TaskWorker(event.TaskID); ok {
		body["worker"] = worker
	}

	c.JSON(http.StatusCreated, body)
}

func (a *API) getTasks(c *gin.Context) {
	c.JSON(http.StatusOK, a.manager.Tasks())
}

func (a *API) getWorkers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"workers": a.manager.Workers()})
}

func (a *API) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
