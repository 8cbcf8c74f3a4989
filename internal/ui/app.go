// Package ui renders the task board: the filtered task list, the tag bar and
// the shared create/edit dialog. All data comes out of the query cache; the
// UI never talks to the API directly.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/cache"
	"github.com/dzoniD/FullstackExercise/internal/filter"
	"github.com/dzoniD/FullstackExercise/internal/form"
	"github.com/dzoniD/FullstackExercise/internal/model"
)

// cacheChangedMsg wakes the UI after a cache entry it observes moved.
type cacheChangedMsg struct{}

type submitDoneMsg struct{ err error }

type App struct {
	cache   *cache.Store
	dialog  *form.Machine
	filters *filter.State
	logger  *zap.Logger
	styles  *Styles

	taskKey cache.Key
	tasks   cache.Result
	tags    cache.Result

	unsubTasks cache.Unsubscribe
	unsubTags  cache.Unsubscribe

	// Уведомление уже ожидает обработки - канал емкости 1
	changed chan struct{}

	titleInput  textinput.Model
	descInput   textarea.Model
	editingDesc bool

	cursor int
	width  int
	height int
}

func NewApp(store *cache.Store, dialog *form.Machine, filters *filter.State, logger *zap.Logger) *App {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = model.TitleMaxLen

	desc := textarea.New()
	desc.Placeholder = "Description"
	desc.CharLimit = model.DescriptionMaxLen
	desc.SetHeight(4)

	a := &App{
		cache:      store,
		dialog:     dialog,
		filters:    filters,
		logger:     logger,
		styles:     NewStyles(),
		changed:    make(chan struct{}, 1),
		titleInput: title,
		descInput:  desc,
	}
	a.taskKey = cache.TaskListKey(filters.Selection())
	a.subscribe()
	return a
}

func (a *App) notify(cache.Result) {
	select {
	case a.changed <- struct{}{}:
	default:
	}
}

func (a *App) subscribe() {
	a.unsubTasks = a.cache.Subscribe(a.taskKey, a.notify)
	if a.unsubTags == nil {
		a.unsubTags = a.cache.Subscribe(cache.TagListKey(), a.notify)
	}
	a.refresh()
}

func (a *App) refresh() {
	a.tasks = a.cache.Read(a.taskKey)
	a.tags = a.cache.Read(cache.TagListKey())
	if tasks := a.taskList(); a.cursor >= len(tasks) {
		a.cursor = max(0, len(tasks)-1)
	}
}

// taskList returns the tasks of the current snapshot. Fallback data from a
// failed refetch is deliberately excluded: the list, cursor and edit actions
// must never operate on stale data.
func (a *App) taskList() []model.Task {
	tasks, _ := a.tasks.Data.([]model.Task)
	return tasks
}

func (a *App) tagList() []model.Tag {
	tags, _ := a.tags.Data.([]model.Tag)
	return tags
}

func (a *App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-a.changed
		return cacheChangedMsg{}
	}
}

func (a *App) Init() tea.Cmd {
	return a.waitForChange()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.titleInput.Width = min(60, msg.Width-8)
		a.descInput.SetWidth(min(60, msg.Width-8))
		return a, nil

	case cacheChangedMsg:
		a.refresh()
		return a, a.waitForChange()

	case submitDoneMsg:
		if msg.err != nil {
			a.logger.Debug("Dialog submit failed", zap.Error(msg.err))
		}
		a.syncDialog()
		return a, nil

	case tea.KeyMsg:
		if _, closed := a.dialog.State().(form.Closed); !closed {
			return a.updateDialog(msg)
		}
		return a.updateList(msg)
	}
	return a, nil
}

func (a *App) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tasks := a.taskList()

	switch msg.String() {
	case "q", "ctrl+c":
		a.unsubTasks()
		a.unsubTags()
		return a, tea.Quit

	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}

	case "down", "j":
		if a.cursor < len(tasks)-1 {
			a.cursor++
		}

	case "a":
		a.dialog.OpenForCreate()
		a.syncDialog()

	case "e":
		if a.cursor < len(tasks) {
			a.dialog.OpenForEdit(tasks[a.cursor])
			a.syncDialog()
		}

	case "m":
		if a.filters.Selection().Mode() == filter.ModeAll {
			a.filters.SetMode(filter.ModeAny)
		} else {
			a.filters.SetMode(filter.ModeAll)
		}
		a.resubscribe()

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		tags := a.tagList()
		idx := int(msg.String()[0] - '1')
		if idx < len(tags) {
			a.filters.Toggle(tags[idx].Name)
			a.resubscribe()
		}
	}
	return a, nil
}

// resubscribe moves the task subscription to the key of the current filter
// selection. The tag subscription is not touched.
func (a *App) resubscribe() {
	key := cache.TaskListKey(a.filters.Selection())
	if key == a.taskKey {
		return
	}
	a.unsubTasks()
	a.taskKey = key
	a.cursor = 0
	a.unsubTasks = a.cache.Subscribe(a.taskKey, a.notify)
	a.refresh()
}

func (a *App) updateDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.dialog.Submitting() {
		return a, nil
	}

	switch msg.String() {
	case "esc":
		a.dialog.Cancel()
		return a, nil

	case "tab", "shift+tab":
		a.editingDesc = !a.editingDesc
		if a.editingDesc {
			a.titleInput.Blur()
			a.descInput.Focus()
		} else {
			a.descInput.Blur()
			a.titleInput.Focus()
		}
		return a, nil

	case "enter":
		if !a.editingDesc {
			return a, a.submit()
		}
	case "ctrl+s":
		return a, a.submit()
	}

	var cmd tea.Cmd
	if a.editingDesc {
		a.descInput, cmd = a.descInput.Update(msg)
		a.dialog.SetDescription(a.descInput.Value())
	} else {
		a.titleInput, cmd = a.titleInput.Update(msg)
		a.dialog.SetTitle(a.titleInput.Value())
	}
	return a, cmd
}

func (a *App) submit() tea.Cmd {
	if a.dialog.Submitting() {
		return nil
	}
	return func() tea.Msg {
		return submitDoneMsg{err: a.dialog.Submit(context.Background())}
	}
}

// syncDialog copies the machine's draft into the text widgets after a state
// transition it did not type itself (open, prefill, submit outcome).
func (a *App) syncDialog() {
	var draft model.Draft
	switch st := a.dialog.State().(type) {
	case form.OpenCreate:
		draft = st.Draft
	case form.OpenEdit:
		draft = st.Draft
	default:
		a.titleInput.Blur()
		a.descInput.Blur()
		return
	}
	a.titleInput.SetValue(draft.Title)
	a.descInput.SetValue(draft.Description)
	a.editingDesc = false
	a.titleInput.Focus()
	a.descInput.Blur()
}

func (a *App) View() string {
	if _, closed := a.dialog.State().(form.Closed); !closed {
		return a.viewDialog()
	}
	return a.viewList()
}

func (a *App) viewList() string {
	var b strings.Builder
	b.WriteString(a.styles.Header.Render("Tasks"))
	b.WriteString("\n")
	b.WriteString(a.viewTagBar())
	b.WriteString("\n\n")

	switch a.tasks.Status {
	case cache.StatusDisabled:
		b.WriteString(a.styles.Subtle.Render("Log in to see your tasks."))

	case cache.StatusLoading:
		b.WriteString(a.styles.Subtle.Render("Loading..."))

	case cache.StatusError:
		// Full-page error, no partial list
		b.WriteString(a.styles.Error.Render(a.tasks.Err))

	case cache.StatusSuccess:
		tasks := a.taskList()
		if len(tasks) == 0 {
			b.WriteString(a.styles.Subtle.Render("No tasks yet. Press 'a' to add one."))
		} else {
			b.WriteString(a.renderTasks(tasks))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(a.styles.StatusBar.Render(
		"a: add  e: edit  1-9: toggle tag  m: match mode  j/k: move  q: quit"))
	return b.String()
}

func (a *App) renderTasks(tasks []model.Task) string {
	lines := make([]string, 0, len(tasks))
	for i, t := range tasks {
		line := fmt.Sprintf("%s  %s", t.Title, a.styles.Subtle.Render(t.Description))
		if len(t.Tags) > 0 {
			line += "  " + a.styles.TagOn.Render("["+strings.Join(t.Tags, ", ")+"]")
		}
		if i == a.cursor {
			line = a.styles.Selected.Render("> " + line)
		} else {
			line = a.styles.Unselected.Render("  " + line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (a *App) viewTagBar() string {
	tags := a.tagList()
	if len(tags) == 0 {
		return a.styles.Subtle.Render("no tags")
	}

	sel := a.filters.Selection()
	parts := make([]string, 0, len(tags)+1)
	for i, tag := range tags {
		label := fmt.Sprintf("%d:%s", i+1, tag.Name)
		if sel.Has(tag.Name) {
			parts = append(parts, a.styles.TagOn.Render(label))
		} else {
			parts = append(parts, a.styles.TagOff.Render(label))
		}
	}
	if !sel.Empty() {
		parts = append(parts, a.styles.Subtle.Render("(match "+string(sel.Mode())+")"))
	}
	return strings.Join(parts, "  ")
}

func (a *App) viewDialog() string {
	title := "New Task"
	if _, edit := a.dialog.State().(form.OpenEdit); edit {
		title = "Edit Task"
	}

	errs := a.dialog.Errors()
	var b strings.Builder
	b.WriteString(a.styles.DialogTitle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(a.titleInput.View())
	b.WriteString("\n")
	if errs.Title != "" {
		b.WriteString(a.styles.FieldError.Render(errs.Title))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(a.descInput.View())
	b.WriteString("\n")
	if errs.Description != "" {
		b.WriteString(a.styles.FieldError.Render(errs.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	hint := "enter: save  tab: next field  esc: cancel"
	if a.dialog.Submitting() {
		hint = "saving..."
	}
	b.WriteString(a.styles.StatusBar.Render(hint))

	return a.styles.Dialog.Render(b.String())
}
