package stub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/model"
	"github.com/dzoniD/FullstackExercise/pkg/respond"
)

type ctxKey int

const userKey ctxKey = 0

type Server struct {
	store  *Store
	logger *zap.Logger
}

func NewServer(store *Store, logger *zap.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// AuthRouter serves the signup/verify/login surface.
func (s *Server) AuthRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/signup", s.signUp)
	r.Get("/auth/verify", s.verify)
	r.Post("/auth/login", s.logIn)
	r.With(s.requireUser).Get("/auth/me", s.me)
	return r
}

// TasksRouter serves the task and tag surface. Every route requires a
// verified bearer token.
func (s *Server) TasksRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requireUser)
	r.Get("/tasks", s.listTasks)
	r.Post("/tasks", s.createTask)
	r.Get("/tasks/{id}", s.getTask)
	r.Put("/tasks/{id}", s.updateTask)
	r.Get("/tags", s.listTags)
	return r
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respond.Detail(w, r, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}
		user, err := s.store.UserByToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respond.Detail(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}
		if !user.Verified {
			respond.Detail(w, r, http.StatusForbidden, "Email not verified")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func currentUser(r *http.Request) User {
	return r.Context().Value(userKey).(User)
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Detail(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := s.store.CreateUser(req.Email, req.Password, newToken())
	if errors.Is(err, ErrorConflict) {
		respond.Detail(w, r, http.StatusBadRequest, "Email already registered")
		return
	}
	respond.JSON(w, r, http.StatusCreated, user)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	if err := s.store.VerifyUser(r.URL.Query().Get("token")); err != nil {
		respond.Detail(w, r, http.StatusBadRequest, "Invalid verification token")
		return
	}
	respond.JSON(w, r, http.StatusOK, map[string]string{"message": "Email verified"})
}

func (s *Server) logIn(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Detail(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		respond.Detail(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token := newToken()
	s.store.SaveToken(token, user.Email)
	respond.JSON(w, r, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, currentUser(r))
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	var tagNames []string
	if csv := r.URL.Query().Get("tags"); csv != "" {
		tagNames = strings.Split(csv, ",")
	}
	mode := r.URL.Query().Get("mode")

	tasks := s.store.ListTasks(currentUser(r).ID, tagNames, mode)
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	task, err := s.store.GetTask(currentUser(r).ID, id)
	if err != nil {
		respond.Detail(w, r, http.StatusNotFound, "Task not found")
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

type taskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TagNames    []string `json:"tag_names"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTask(w, r)
	if !ok {
		return
	}

	task, err := s.store.CreateTask(currentUser(r).ID, req.Title, req.Description, req.TagNames)
	if errors.Is(err, ErrorConflict) {
		respond.FieldDetail(w, r, http.StatusBadRequest, "title already exists")
		return
	}
	respond.JSON(w, r, http.StatusCreated, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	req, ok := s.decodeTask(w, r)
	if !ok {
		return
	}

	task, err := s.store.UpdateTask(currentUser(r).ID, id, req.Title, req.Description, req.TagNames)
	switch {
	case errors.Is(err, ErrorNotFound):
		respond.Detail(w, r, http.StatusNotFound, "Task not found or does not belong to you")
	case errors.Is(err, ErrorConflict):
		respond.FieldDetail(w, r, http.StatusBadRequest, "title already exists")
	default:
		respond.JSON(w, r, http.StatusOK, task)
	}
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, s.store.ListTags())
}

// decodeTask parses and validates the shared create/update body. Validation
// failures come back as a 422 with per-field messages.
func (s *Server) decodeTask(w http.ResponseWriter, r *http.Request) (taskRequest, bool) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Error("failed to decode json", zap.Error(err))
		respond.Detail(w, r, http.StatusBadRequest, "invalid json")
		return req, false
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	var msgs []string
	if n := utf8.RuneCountInString(req.Title); n < model.TitleMinLen || n > model.TitleMaxLen {
		msgs = append(msgs, "String should have at least 3 characters")
	}
	if n := utf8.RuneCountInString(req.Description); n < model.DescriptionMinLen || n > model.DescriptionMaxLen {
		msgs = append(msgs, "String should have at least 5 characters")
	}
	if len(msgs) > 0 {
		respond.FieldDetail(w, r, http.StatusUnprocessableEntity, msgs...)
		return req, false
	}
	return req, true
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
