package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/config"
	"github.com/dzoniD/FullstackExercise/internal/filter"
	"github.com/dzoniD/FullstackExercise/internal/model"
)

// TokenSource - текущий bearer-токен сессии
type TokenSource interface {
	Token() (string, bool)
}

// Client is the typed HTTP surface of the task and auth services. Every call
// attaches the bearer token when one exists and normalizes non-2xx responses
// into *Error. Successful bodies are decoded as-is; response shape is a trust
// boundary with the remote API and is not validated here.
type Client struct {
	tasksURL string
	authURL  string
	session  TokenSource
	http     *http.Client
	logger   *zap.Logger
}

func NewClient(cfg config.Config, session TokenSource, logger *zap.Logger) *Client {
	return &Client{
		tasksURL: strings.TrimRight(cfg.TasksAPIURL, "/"),
		authURL:  strings.TrimRight(cfg.AuthAPIURL, "/"),
		session:  session,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

func (c *Client) ListTasks(ctx context.Context, sel filter.Selection) ([]model.Task, error) {
	endpoint := c.tasksURL + "/tasks"
	if !sel.Empty() {
		q := url.Values{}
		q.Set("tags", sel.CSV())
		if sel.Mode() == filter.ModeAll {
			q.Set("mode", string(filter.ModeAll))
		}
		endpoint += "?" + q.Encode()
	}

	var tasks []model.Task
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var task model.Task
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/tasks/%d", c.tasksURL, id), nil, &task)
	return task, err
}

type taskBody struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TagNames    []string `json:"tag_names,omitempty"`
}

func (c *Client) CreateTask(ctx context.Context, d model.Draft, tags ...string) (model.Task, error) {
	var task model.Task
	body := taskBody{Title: d.Title, Description: d.Description, TagNames: tags}
	err := c.doJSON(ctx, http.MethodPost, c.tasksURL+"/tasks", body, &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, d model.Draft) (model.Task, error) {
	var task model.Task
	body := taskBody{Title: d.Title, Description: d.Description}
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/tasks/%d", c.tasksURL, id), body, &task)
	return task, err
}

func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	if err := c.doJSON(ctx, http.MethodGet, c.tasksURL+"/tags", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) error {
	return c.doJSON(ctx, http.MethodPost, c.authURL+"/auth/signup", credentials{email, password}, nil)
}

// LogIn exchanges credentials for a bearer token.
func (c *Client) LogIn(ctx context.Context, email, password string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.doJSON(ctx, http.MethodPost, c.authURL+"/auth/login", credentials{email, password}, &out)
	return out.AccessToken, err
}

// VerifyEmail confirms an email address with the token from the
// verification link. The response body is not interesting beyond success.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	endpoint := c.authURL + "/auth/verify?token=" + url.QueryEscape(token)
	return c.doJSON(ctx, http.MethodGet, endpoint, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		gerr := decodeError(resp.StatusCode, data)
		c.logger.Warn("request rejected",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", gerr.Message),
		)
		return gerr
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
