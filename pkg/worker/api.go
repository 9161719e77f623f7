package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dreylabs/drey/pkg/log"
	"github.com/dreylabs/drey/pkg/metrics"
	"github.com/dreylabs/drey/pkg/task"
)

// API serves the worker's HTTP surface: task submission and inspection,
// stop-by-id, host telemetry, health and metrics.
type API struct {
	worker *Worker
	addr   string
	router *gin.Engine
	srv    *http.Server
	logger zerolog.Logger
}

// NewAPI creates the worker API bound to addr.
func NewAPI(w *Worker, addr string) *API {
	gin.SetMode(gin.ReleaseMode)

	a := &API{
		worker: w,
		addr:   addr,
		logger: log.WithComponent("worker-api"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), metrics.InstrumentGin())

	router.GET("/tasks", a.getTasks)
	router.POST("/tasks", a.startTask)
	router.DELETE("/tasks/:id", a.stopTask)
	router.GET("/stats", a.getStats)
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
	a.logger.Info().Str("addr", a.addr).Msg("Worker API listening")
	if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("worker api: %w", err)
	}
	return nil
}

// Shutdown stops the API gracefully.
func (a *API) Shutdown(ctx context.Context) error {
	return a.srv.Shutdown(ctx)
}

func (a *API) getTasks(c *gin.Context) {
	c.JSON(http.StatusOK, a.worker.GetTasks())
}

func (a *API) startTask(c *gin.Context) {
	var event task.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a.worker.AddTask(&event.Task)
	a.logger.Info().
		Str("task_id", event.TaskID.String()).
		Str("state", event.Task.State.String()).
		Msg("Task queued")
	c.Status(http.StatusCreated)
}

// stopTask enqueues a Completed-state clone of the task; the run loop
// performs the actual stop so the state machine stays the single path to
// the runtime.
func (a *API) stopTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid task id %q", c.Param("id"))
		return
	}

	t, ok := a.worker.Task(id)
	if !ok {
		c.String(http.StatusNotFound, "task %s not found", id)
		return
	}

	stopped := *t
	stopped.State = task.Completed
	a.worker.AddTask(&stopped)

	a.logger.Info().Str("task_id", id.String()).Msg("Task stop requested")
	c.String(http.StatusOK, "task %s stopped", id)
}

func (a *API) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, a.worker.CollectStats())
}

func (a *API) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
