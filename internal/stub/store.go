// Package stub is an in-memory stand-in for the auth and tasks APIs, with the
// same routes, status codes and error bodies. It backs local development and
// the end-to-end tests.
package stub

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"is_verified"`

	password    string
	verifyToken string
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`

	ownerID int64
}

// Store хранит все состояние заглушки в памяти
type Store struct {
	mu     sync.Mutex
	nextID int64

	users  map[string]*User  // by email
	tokens map[string]*User  // access token -> user
	tags   map[string]*Tag   // by name
	tasks  map[int64]*Task
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]*User),
		tokens: make(map[string]*User),
		tags:   make(map[string]*Tag),
		tasks:  make(map[int64]*Task),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(email, password, verifyToken string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return User{}, ErrorConflict
	}
	u := &User{ID: s.id(), Email: email, password: password, verifyToken: verifyToken}
	s.users[email] = u
	return *u, nil
}

// VerifyTokenFor exposes the pending verification token for an email. The
// real service mails it; here the caller picks it up directly.
func (s *Store) VerifyTokenFor(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return "", false
	}
	return u.verifyToken, true
}

func (s *Store) VerifyUser(verifyToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.verifyToken != "" && u.verifyToken == verifyToken {
			u.Verified = true
			return nil
		}
	}
	return ErrorNotFound
}

// Authenticate checks credentials and returns the user on success. The caller
// decides how to mint the access token.
func (s *Store) Authenticate(email, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok || u.password != password {
		return User{}, ErrorNotFound
	}
	return *u, nil
}

func (s *Store) SaveToken(token, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = s.users[email]
}

func (s *Store) UserByToken(token string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.tokens[token]
	if !ok {
		return User{}, ErrorNotFound
	}
	return *u, nil
}

// ListTasks returns the owner's tasks, optionally filtered by tag names.
// With mode "all" a task must carry every requested tag, otherwise any
// overlap is enough.
func (s *Store) ListTasks(ownerID int64, tagNames []string, mode string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0)
	for _, t := range s.tasks {
		if t.ownerID != ownerID {
			continue
		}
		if len(tagNames) > 0 && !matches(t.Tags, tagNames, mode) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matches(have, want []string, mode string) bool {
	set := make(map[string]struct{}, len(have))
	for _, name := range have {
		set[name] = struct{}{}
	}
	hits := 0
	for _, name := range want {
		if _, ok := set[name]; ok {
			hits++
		}
	}
	if mode == "all" {
		return hits == len(want)
	}
	return hits > 0
}

func (s *Store) GetTask(ownerID, id int64) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.ownerID != ownerID {
		return Task{}, ErrorNotFound
	}
	return *t, nil
}

func (s *Store) CreateTask(ownerID int64, title, description string, tagNames []string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ownerID == ownerID && strings.EqualFold(t.Title, title) {
			return Task{}, ErrorConflict
		}
	}

	t := &Task{
		ID:          s.id(),
		Title:       title,
		Description: description,
		Tags:        s.resolveTagsLocked(tagNames),
		ownerID:     ownerID,
	}
	s.tasks[t.ID] = t
	return *t, nil
}

func (s *Store) UpdateTask(ownerID, id int64, title, description string, tagNames []string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.ownerID != ownerID {
		return Task{}, ErrorNotFound
	}

	for _, other := range s.tasks {
		if other.ID != id && other.ownerID == ownerID && strings.EqualFold(other.Title, title) {
			return Task{}, ErrorConflict
		}
	}

	t.Title = title
	t.Description = description
	if tagNames != nil {
		t.Tags = s.resolveTagsLocked(tagNames)
	}
	return *t, nil
}

// resolveTagsLocked creates missing tags on the fly and returns the
// normalized names.
func (s *Store) resolveTagsLocked(names []string) []string {
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := s.tags[name]; !ok {
			s.tags[name] = &Tag{ID: s.id(), Name: name}
		}
		out = append(out, name)
	}
	return out
}

func (s *Store) ListTags() []Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
