package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/cache"
	"github.com/dzoniD/FullstackExercise/internal/config"
	"github.com/dzoniD/FullstackExercise/internal/filter"
	"github.com/dzoniD/FullstackExercise/internal/form"
	"github.com/dzoniD/FullstackExercise/internal/gateway"
	"github.com/dzoniD/FullstackExercise/internal/model"
	"github.com/dzoniD/FullstackExercise/internal/mutation"
	"github.com/dzoniD/FullstackExercise/internal/session"
	"github.com/dzoniD/FullstackExercise/internal/stub"
	"github.com/dzoniD/FullstackExercise/internal/worker"
)

// Env собирает весь клиентский стек поверх заглушек API
type Env struct {
	Store      *stub.Store
	Auth       *httptest.Server
	Tasks      *httptest.Server
	Session    *session.Store
	Client     *gateway.Client
	Cache      *cache.Store
	Controller *mutation.Controller
	Dialog     *form.Machine

	taskRequests atomic.Int64
	taskWrites   atomic.Int64
}

// SetupEnv starts the stub auth and tasks servers and wires a complete
// client stack against them.
func SetupEnv(t *testing.T) *Env {
	t.Helper()
	logger := zap.NewNop()

	env := &Env{Store: stub.NewStore()}
	srv := stub.NewServer(env.Store, logger)

	env.Auth = httptest.NewServer(srv.AuthRouter())
	tasksRouter := srv.TasksRouter()
	env.Tasks = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/tasks" {
			env.taskRequests.Add(1)
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			env.taskWrites.Add(1)
		}
		tasksRouter.ServeHTTP(w, r)
	}))
	t.Cleanup(env.Auth.Close)
	t.Cleanup(env.Tasks.Close)

	cfg := config.Config{
		AuthAPIURL:  env.Auth.URL,
		TasksAPIURL: env.Tasks.URL,
		TokenPath:   filepath.Join(t.TempDir(), "token"),
		WorkerCount: 3,
	}

	env.Session = session.NewStore(cfg.TokenPath, logger)
	env.Client = gateway.NewClient(cfg, env.Session, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pool := worker.NewPool(logger, cfg.WorkerCount)
	pool.Start(ctx)
	t.Cleanup(pool.Stop)

	env.Cache = cache.NewStore(env.Session, pool, logger)
	env.Cache.Register(cache.ResourceTasks, func(ctx context.Context, params string) (any, error) {
		vals, err := url.ParseQuery(params)
		if err != nil {
			return nil, err
		}
		sel := filter.NewSelection(strings.Split(vals.Get("tags"), ",")...)
		if vals.Get("mode") == string(filter.ModeAll) {
			sel = sel.WithMode(filter.ModeAll)
		}
		return env.Client.ListTasks(ctx, sel)
	})
	env.Cache.Register(cache.ResourceTags, func(ctx context.Context, _ string) (any, error) {
		return env.Client.ListTags(ctx)
	})
	env.Cache.Start(ctx)

	env.Controller = mutation.NewController(env.Client, env.Cache, logger)
	env.Dialog = form.NewMachine(env.Controller, logger)
	return env
}

// TaskListRequests counts GET /tasks round trips the stub has served.
func (e *Env) TaskListRequests() int64 {
	return e.taskRequests.Load()
}

// TaskWrites counts POST and PUT requests against the tasks API.
func (e *Env) TaskWrites() int64 {
	return e.taskWrites.Load()
}

// LogIn регистрирует, верифицирует и логинит пользователя
func (e *Env) LogIn(t *testing.T, email string) {
	t.Helper()
	ctx := context.Background()
	const password = "secret123"

	require.NoError(t, e.Client.SignUp(ctx, email, password))

	verifyToken, ok := e.Store.VerifyTokenFor(email)
	require.True(t, ok, "user %s should exist after signup", email)
	require.NoError(t, e.Client.VerifyEmail(ctx, verifyToken))

	token, err := e.Client.LogIn(ctx, email, password)
	require.NoError(t, err)
	require.NoError(t, e.Session.Save(token))
}

// CreateTask создает задачу напрямую через шлюз, минуя диалог
func (e *Env) CreateTask(t *testing.T, title, description string, tags ...string) int64 {
	t.Helper()
	task, err := e.Client.CreateTask(context.Background(),
		draft(title, description), tags...)
	require.NoError(t, err)
	e.Cache.Invalidate(cache.ResourceTasks)
	return task.ID
}

func draft(title, description string) model.Draft {
	return model.Draft{Title: title, Description: description}
}

// WaitForCondition ждет выполнения условия с таймаутом
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
