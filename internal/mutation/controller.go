// Package mutation coordinates task writes: it validates drafts, talks to the
// remote API and invalidates cached task lists after a successful write.
package mutation

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/cache"
	"github.com/dzoniD/FullstackExercise/internal/model"
)

// ErrValidation is returned when a draft fails local validation. The gateway
// is not contacted in that case.
var ErrValidation = errors.New("draft failed validation")

// Gateway is the subset of the remote API the controller needs.
type Gateway interface {
	CreateTask(ctx context.Context, d model.Draft, tags ...string) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, d model.Draft) (model.Task, error)
}

// Invalidator marks cached resources stale.
type Invalidator interface {
	Invalidate(resource string)
}

type Controller struct {
	gateway Gateway
	cache   Invalidator
	logger  *zap.Logger

	mu      sync.Mutex
	pending bool
}

func NewController(gateway Gateway, cache Invalidator, logger *zap.Logger) *Controller {
	return &Controller{gateway: gateway, cache: cache, logger: logger}
}

// Pending reports whether a submission is currently in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// SubmitCreate validates the draft and creates the task remotely. Cached task
// lists are invalidated only after the server confirms the write.
func (c *Controller) SubmitCreate(ctx context.Context, d model.Draft) (model.Task, error) {
	return c.submit(ctx, d, func(ctx context.Context, d model.Draft) (model.Task, error) {
		return c.gateway.CreateTask(ctx, d)
	})
}

// SubmitUpdate validates the draft and overwrites the task with the given id.
func (c *Controller) SubmitUpdate(ctx context.Context, id int64, d model.Draft) (model.Task, error) {
	return c.submit(ctx, d, func(ctx context.Context, d model.Draft) (model.Task, error) {
		return c.gateway.UpdateTask(ctx, id, d)
	})
}

func (c *Controller) submit(ctx context.Context, d model.Draft, call func(context.Context, model.Draft) (model.Task, error)) (model.Task, error) {
	d = d.Trimmed()
	if errs := d.Validate(); !errs.Empty() {
		return model.Task{}, ErrValidation
	}

	if !c.begin() {
		return model.Task{}, errors.New("a submission is already in progress")
	}
	defer c.end()

	task, err := call(ctx, d)
	if err != nil {
		c.logger.Warn("Task write rejected", zap.Error(err))
		return model.Task{}, err
	}

	// Каждый успешный write сбрасывает все списки задач
	c.cache.Invalidate(cache.ResourceTasks)
	c.logger.Info("Task saved", zap.Int64("id", task.ID))
	return task, nil
}

func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return false
	}
	c.pending = true
	return true
}

func (c *Controller) end() {
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()
}
