package ui

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/cache"
	"github.com/dzoniD/FullstackExercise/internal/filter"
	"github.com/dzoniD/FullstackExercise/internal/form"
	"github.com/dzoniD/FullstackExercise/internal/model"
	"github.com/dzoniD/FullstackExercise/internal/mutation"
	"github.com/dzoniD/FullstackExercise/internal/worker"
)

type fixedSession struct {
	token  string
	events chan struct{}
}

func (f *fixedSession) Token() (string, bool)   { return f.token, f.token != "" }
func (f *fixedSession) Events() <-chan struct{} { return f.events }

type fixedGateway struct{}

func (fixedGateway) CreateTask(ctx context.Context, d model.Draft, tags ...string) (model.Task, error) {
	return model.Task{ID: 1, Title: d.Title, Description: d.Description}, nil
}

func (fixedGateway) UpdateTask(ctx context.Context, id int64, d model.Draft) (model.Task, error) {
	return model.Task{ID: id, Title: d.Title, Description: d.Description}, nil
}

func newTestApp(t *testing.T, token string, tasks []model.Task) *App {
	t.Helper()
	pool := worker.NewPool(zap.NewNop(), 2)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	sess := &fixedSession{token: token, events: make(chan struct{}, 1)}
	store := cache.NewStore(sess, pool, zap.NewNop())
	store.Register(cache.ResourceTasks, func(context.Context, string) (any, error) {
		return tasks, nil
	})
	store.Register(cache.ResourceTags, func(context.Context, string) (any, error) {
		return []model.Tag{{ID: 1, Name: "home"}, {ID: 2, Name: "work"}}, nil
	})

	ctrl := mutation.NewController(fixedGateway{}, store, zap.NewNop())
	dialog := form.NewMachine(ctrl, zap.NewNop())
	return NewApp(store, dialog, filter.NewState(nil), zap.NewNop())
}

func waitForTasks(t *testing.T, a *App) {
	t.Helper()
	require.Eventually(t, func() bool {
		a.refresh()
		return a.tasks.Status == cache.StatusSuccess
	}, 3*time.Second, 5*time.Millisecond)
}

func TestApp_LoggedOutBanner(t *testing.T) {
	a := newTestApp(t, "", nil)

	view := a.View()

	assert.Contains(t, view, "Log in to see your tasks")
}

func TestApp_RendersTaskList(t *testing.T) {
	a := newTestApp(t, "tok", []model.Task{
		{ID: 1, Title: "Buy milk", Description: "Two liters please", Tags: []string{"errands"}},
		{ID: 2, Title: "Fix the sink", Description: "Leaking again"},
	})
	waitForTasks(t, a)

	view := a.View()

	assert.Contains(t, view, "Buy milk")
	assert.Contains(t, view, "Fix the sink")
	assert.Contains(t, view, "errands")
}

func TestApp_FailedRefetchShowsErrorPageOnly(t *testing.T) {
	pool := worker.NewPool(zap.NewNop(), 2)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	sess := &fixedSession{token: "tok", events: make(chan struct{}, 1)}
	store := cache.NewStore(sess, pool, zap.NewNop())
	var failing atomic.Bool
	store.Register(cache.ResourceTasks, func(context.Context, string) (any, error) {
		if failing.Load() {
			return nil, errors.New("request failed")
		}
		return []model.Task{{ID: 1, Title: "Buy milk", Description: "Two liters please"}}, nil
	})
	store.Register(cache.ResourceTags, func(context.Context, string) (any, error) {
		return []model.Tag{}, nil
	})

	ctrl := mutation.NewController(fixedGateway{}, store, zap.NewNop())
	dialog := form.NewMachine(ctrl, zap.NewNop())
	a := NewApp(store, dialog, filter.NewState(nil), zap.NewNop())
	waitForTasks(t, a)
	require.Contains(t, a.View(), "Buy milk")

	failing.Store(true)
	store.Invalidate(cache.ResourceTasks)
	require.Eventually(t, func() bool {
		a.refresh()
		return a.tasks.Status == cache.StatusError
	}, 3*time.Second, 5*time.Millisecond)

	view := a.View()
	assert.Contains(t, view, "request failed")
	// Ни одной строки из устаревшего списка
	assert.NotContains(t, view, "Buy milk")

	// Edit has nothing to operate on while the error page is up
	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	a = m.(*App)
	assert.Equal(t, form.Closed{}, a.dialog.State())
}

func TestApp_AddOpensDialog(t *testing.T) {
	a := newTestApp(t, "tok", nil)
	waitForTasks(t, a)

	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	a = m.(*App)

	assert.Contains(t, a.View(), "New Task")
}

func TestApp_EditPrefillsDialog(t *testing.T) {
	a := newTestApp(t, "tok", []model.Task{
		{ID: 7, Title: "Buy milk", Description: "Two liters please"},
	})
	waitForTasks(t, a)

	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	a = m.(*App)

	view := a.View()
	assert.Contains(t, view, "Edit Task")
	assert.Contains(t, view, "Buy milk")
	assert.Equal(t, "Buy milk", a.titleInput.Value())
}

func TestApp_EscClosesDialog(t *testing.T) {
	a := newTestApp(t, "tok", nil)
	waitForTasks(t, a)

	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	a = m.(*App)
	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	a = m.(*App)

	assert.Equal(t, form.Closed{}, a.dialog.State())
}

func TestApp_ToggleTagMovesSubscription(t *testing.T) {
	a := newTestApp(t, "tok", nil)
	waitForTasks(t, a)
	require.Eventually(t, func() bool {
		a.refresh()
		return a.tags.Status == cache.StatusSuccess
	}, 3*time.Second, 5*time.Millisecond)

	before := a.taskKey
	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	a = m.(*App)

	assert.NotEqual(t, before, a.taskKey)
	assert.Equal(t, "tags=home", a.taskKey.Params)
}
