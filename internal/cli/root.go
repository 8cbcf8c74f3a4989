// Package cli wires the client together: config, session store, gateway,
// query cache, mutation controller and the TUI.
package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dzoniD/FullstackExercise/internal/cache"
	"github.com/dzoniD/FullstackExercise/internal/config"
	"github.com/dzoniD/FullstackExercise/internal/filter"
	"github.com/dzoniD/FullstackExercise/internal/form"
	"github.com/dzoniD/FullstackExercise/internal/gateway"
	"github.com/dzoniD/FullstackExercise/internal/mutation"
	"github.com/dzoniD/FullstackExercise/internal/session"
	"github.com/dzoniD/FullstackExercise/internal/ui"
	"github.com/dzoniD/FullstackExercise/internal/worker"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskboard",
		Short: "Terminal client for the task tracker",
		Long: `taskboard is a terminal client for the task tracker. It keeps a local
query cache over the remote tasks API, refreshes it when the data changes and
shares the login session with other clients through the token file.`,
		RunE: run,
	}

	cmd.Flags().String("login", "", "Log in as EMAIL before starting (prompts for the password via TASKBOARD_PASSWORD)")
	cmd.Flags().Bool("logout", false, "Drop the stored session and exit")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Лог в файл, чтобы не ломать отрисовку TUI
	logger, err := newFileLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg := config.Load()
	sess := session.NewStore(cfg.TokenPath, logger)
	client := gateway.NewClient(cfg, sess, logger)

	if logout, _ := cmd.Flags().GetBool("logout"); logout {
		return sess.Clear()
	}

	if email, _ := cmd.Flags().GetString("login"); email != "" {
		token, err := client.LogIn(ctx, email, os.Getenv("TASKBOARD_PASSWORD"))
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := sess.Save(token); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}
	}

	// Другой клиент может логиниться/разлогиниваться параллельно
	if err := sess.StartWatcher(ctx); err != nil {
		logger.Warn("Token file watcher unavailable", zap.Error(err))
	} else {
		defer sess.StopWatcher()
	}

	pool := worker.NewPool(logger, cfg.WorkerCount)
	pool.Start(ctx)
	defer pool.Stop()

	store := cache.NewStore(sess, pool, logger)
	store.Register(cache.ResourceTasks, taskFetcher(client))
	store.Register(cache.ResourceTags, func(ctx context.Context, _ string) (any, error) {
		return client.ListTags(ctx)
	})
	store.Start(ctx)

	controller := mutation.NewController(client, store, logger)
	dialog := form.NewMachine(controller, logger)
	filters := filter.NewState(nil)

	app := ui.NewApp(store, dialog, filters, logger)
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}

// taskFetcher turns a canonical cache-key params string back into a list
// request.
func taskFetcher(client *gateway.Client) cache.FetchFunc {
	return func(ctx context.Context, params string) (any, error) {
		vals, err := url.ParseQuery(params)
		if err != nil {
			return nil, err
		}
		sel := filter.NewSelection(strings.Split(vals.Get("tags"), ",")...)
		if vals.Get("mode") == string(filter.ModeAll) {
			sel = sel.WithMode(filter.ModeAll)
		}
		return client.ListTasks(ctx, sel)
	}
}

func newFileLogger() (*zap.Logger, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	path := dir + "/taskboard"
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{path + "/taskboard.log"}
	zcfg.ErrorOutputPaths = []string{path + "/taskboard.log"}
	return zcfg.Build()
}
