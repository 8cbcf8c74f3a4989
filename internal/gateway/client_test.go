package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/config"
	"github.com/dzoniD/FullstackExercise/internal/filter"
	"github.com/dzoniD/FullstackExercise/internal/model"
)

type staticToken string

func (s staticToken) Token() (string, bool) {
	return string(s), s != ""
}

func newTestClient(serverURL string, token staticToken) *Client {
	cfg := config.Config{AuthAPIURL: serverURL, TasksAPIURL: serverURL}
	return NewClient(cfg, token, zap.NewNop())
}

func TestClient_ListTasks_QuerySerialization(t *testing.T) {
	tests := []struct {
		name     string
		sel      filter.Selection
		wantTags string
		wantMode string
	}{
		{
			name:     "empty selection omits parameters",
			sel:      filter.NewSelection(),
			wantTags: "",
			wantMode: "",
		},
		{
			name:     "tags joined by comma",
			sel:      filter.NewSelection("work", "home"),
			wantTags: "home,work",
			wantMode: "",
		},
		{
			name:     "default mode stays off the wire",
			sel:      filter.NewSelection("work").WithMode(filter.ModeAny),
			wantTags: "work",
			wantMode: "",
		},
		{
			name:     "mode all is explicit",
			sel:      filter.NewSelection("work").WithMode(filter.ModeAll),
			wantTags: "work",
			wantMode: "all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery map[string][]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.Query()
				json.NewEncoder(w).Encode([]model.Task{})
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, "tok").ListTasks(context.Background(), tt.sel)
			require.NoError(t, err)

			if tt.wantTags == "" {
				assert.NotContains(t, gotQuery, "tags")
			} else {
				assert.Equal(t, []string{tt.wantTags}, gotQuery["tags"])
			}
			if tt.wantMode == "" {
				assert.NotContains(t, gotQuery, "mode")
			} else {
				assert.Equal(t, []string{tt.wantMode}, gotQuery["mode"])
			}
		})
	}
}

func TestClient_BearerHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]model.Task{})
	}))
	defer srv.Close()

	t.Run("attached when token exists", func(t *testing.T) {
		_, err := newTestClient(srv.URL, "secret-token").ListTasks(context.Background(), filter.NewSelection())
		require.NoError(t, err)
		assert.Equal(t, "Bearer secret-token", gotAuth)
	})

	t.Run("omitted when token is absent", func(t *testing.T) {
		_, err := newTestClient(srv.URL, "").ListTasks(context.Background(), filter.NewSelection())
		require.NoError(t, err)
		assert.Empty(t, gotAuth)
	})
}

func TestClient_CreateTask(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.Task{ID: 1, Title: "Fix login bug", Description: "Users cannot log in after reset"})
	}))
	defer srv.Close()

	task, err := newTestClient(srv.URL, "tok").CreateTask(context.Background(),
		model.Draft{Title: "Fix login bug", Description: "Users cannot log in after reset"})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/tasks", gotPath)
	assert.Equal(t, "Fix login bug", gotBody["title"])
	assert.Equal(t, "Users cannot log in after reset", gotBody["description"])
	assert.NotContains(t, gotBody, "tag_names")
	assert.EqualValues(t, 1, task.ID)
}

func TestClient_CreateTask_WithTags(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(model.Task{ID: 2})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "tok").CreateTask(context.Background(),
		model.Draft{Title: "Tagged", Description: "with tags"}, "work", "urgent")

	require.NoError(t, err)
	assert.Equal(t, []any{"work", "urgent"}, gotBody["tag_names"])
}

func TestClient_UpdateTask(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(model.Task{ID: 7, Title: "New Title", Description: "Old desc, long enough"})
	}))
	defer srv.Close()

	task, err := newTestClient(srv.URL, "tok").UpdateTask(context.Background(), 7,
		model.Draft{Title: "New Title", Description: "Old desc, long enough"})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/tasks/7", gotPath)
	assert.Equal(t, map[string]any{"title": "New Title", "description": "Old desc, long enough"}, gotBody)
	assert.Equal(t, "New Title", task.Title)
}

func TestClient_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":[{"msg":"title already exists"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "tok").CreateTask(context.Background(),
		model.Draft{Title: "Duplicate", Description: "some description"})

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, http.StatusBadRequest, gerr.Status)
	assert.Equal(t, "title already exists", gerr.Message)
}

func TestClient_MalformedErrorBodyDoesNotCrash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "tok").ListTasks(context.Background(), filter.NewSelection())

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, genericMessage, gerr.Message)
}

func TestClient_NetworkErrorIsNotGatewayError(t *testing.T) {
	// Closed server -> transport error, not *Error
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL, "tok").ListTasks(context.Background(), filter.NewSelection())

	require.Error(t, err)
	var gerr *Error
	assert.False(t, errors.As(err, &gerr))
}

func TestClient_LogIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		require.Equal(t, "user@example.com", creds["email"])
		json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh-token", "token_type": "bearer"})
	}))
	defer srv.Close()

	token, err := newTestClient(srv.URL, "").LogIn(context.Background(), "user@example.com", "hunter22")

	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
}

func TestClient_VerifyEmail(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/verify", r.URL.Path)
		gotToken = r.URL.Query().Get("token")
		json.NewEncoder(w).Encode(map[string]string{"status": "verified"})
	}))
	defer srv.Close()

	err := newTestClient(srv.URL, "").VerifyEmail(context.Background(), "verify-123")

	require.NoError(t, err)
	assert.Equal(t, "verify-123", gotToken)
}

func TestClient_ListTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tags", r.URL.Path)
		json.NewEncoder(w).Encode([]model.Tag{{ID: 1, Name: "work"}, {ID: 2, Name: "home"}})
	}))
	defer srv.Close()

	tags, err := newTestClient(srv.URL, "tok").ListTags(context.Background())

	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "work", tags[0].Name)
}
