// Package form holds the create/edit dialog state machine. The same dialog
// serves both flows; which one is in play is encoded in the state itself.
package form

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/model"
)

// DialogState is a closed set: Closed, OpenCreate or OpenEdit.
type DialogState interface {
	dialogState()
}

type Closed struct{}

type OpenCreate struct {
	Draft model.Draft
}

type OpenEdit struct {
	TaskID int64
	Draft  model.Draft
}

func (Closed) dialogState()     {}
func (OpenCreate) dialogState() {}
func (OpenEdit) dialogState()   {}

// Submitter persists a validated draft. Satisfied by mutation.Controller.
type Submitter interface {
	SubmitCreate(ctx context.Context, d model.Draft) (model.Task, error)
	SubmitUpdate(ctx context.Context, id int64, d model.Draft) (model.Task, error)
}

type Machine struct {
	submitter Submitter
	logger    *zap.Logger

	mu         sync.Mutex
	state      DialogState
	errs       model.FieldErrors
	submitting bool
}

func NewMachine(submitter Submitter, logger *zap.Logger) *Machine {
	return &Machine{submitter: submitter, logger: logger, state: Closed{}}
}

func (m *Machine) State() DialogState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Errors() model.FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs
}

func (m *Machine) Submitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitting
}

// OpenForCreate opens an empty dialog. A dialog that is already open stays as
// it is, so a stray keypress cannot wipe what the user typed.
func (m *Machine) OpenForCreate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, closed := m.state.(Closed); !closed {
		return
	}
	m.state = OpenCreate{}
	m.errs = model.FieldErrors{}
}

// OpenForEdit opens the dialog prefilled from an existing task.
func (m *Machine) OpenForEdit(task model.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, closed := m.state.(Closed); !closed {
		return
	}
	m.state = OpenEdit{
		TaskID: task.ID,
		Draft:  model.Draft{Title: task.Title, Description: task.Description},
	}
	m.errs = model.FieldErrors{}
}

// Cancel closes the dialog and discards the draft and any errors.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitting {
		return
	}
	m.state = Closed{}
	m.errs = model.FieldErrors{}
}

// SetTitle updates the draft title. A stale title error is cleared only when
// the value actually changes; any description error stays in place.
func (m *Machine) SetTitle(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitting {
		return
	}
	var changed bool
	switch st := m.state.(type) {
	case OpenCreate:
		changed = st.Draft.Title != title
		st.Draft.Title = title
		m.state = st
	case OpenEdit:
		changed = st.Draft.Title != title
		st.Draft.Title = title
		m.state = st
	default:
		return
	}
	if changed {
		m.errs.Title = ""
	}
}

func (m *Machine) SetDescription(description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitting {
		return
	}
	var changed bool
	switch st := m.state.(type) {
	case OpenCreate:
		changed = st.Draft.Description != description
		st.Draft.Description = description
		m.state = st
	case OpenEdit:
		changed = st.Draft.Description != description
		st.Draft.Description = description
		m.state = st
	default:
		return
	}
	if changed {
		m.errs.Description = ""
	}
}

// Submit validates the draft and, if valid, persists it. On a validation
// failure the dialog stays open with per-field messages and nothing goes over
// the wire. On a server rejection the dialog also stays open, with the
// server's message shown under the description field, and the draft is kept
// exactly as typed.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	if m.submitting {
		m.mu.Unlock()
		return nil
	}

	var draft model.Draft
	var edit bool
	var taskID int64
	switch st := m.state.(type) {
	case OpenCreate:
		draft = st.Draft
	case OpenEdit:
		draft, edit, taskID = st.Draft, true, st.TaskID
	default:
		m.mu.Unlock()
		return nil
	}

	if errs := draft.Trimmed().Validate(); !errs.Empty() {
		m.errs = errs
		m.mu.Unlock()
		return nil
	}

	m.submitting = true
	m.errs = model.FieldErrors{}
	m.mu.Unlock()

	var err error
	if edit {
		_, err = m.submitter.SubmitUpdate(ctx, taskID, draft)
	} else {
		_, err = m.submitter.SubmitCreate(ctx, draft)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitting = false
	if err != nil {
		m.errs.Description = err.Error()
		return err
	}

	m.logger.Debug("Dialog submitted", zap.Bool("edit", edit))
	m.state = Closed{}
	m.errs = model.FieldErrors{}
	return nil
}
