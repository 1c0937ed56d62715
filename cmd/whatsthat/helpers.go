package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	whatsthat "github.com/whatsthat-app/whatsthat-go"
	"github.com/whatsthat-app/whatsthat-go/store"
)

const commandTimeout = 30 * time.Second

// app bundles the local state and client a command works with.
type app struct {
	cfg      *Config
	db       *store.SQLite
	sessions *whatsthat.SessionStore
	drafts   *whatsthat.DraftManager
	client   *whatsthat.Client
}

// openApp loads config, opens the state database and builds a client
// carrying the stored session, if any.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	path, err := statePath(cfg)
	if err != nil {
		return nil, err
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		db:       db,
		sessions: whatsthat.NewSessionStore(db),
		drafts:   whatsthat.NewDraftManager(db),
	}
	a.client = newClient(cfg).WithSession(a.sessions.Load())
	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close state database")
	}
}

// requireLogin fails unless a session is stored.
func (a *app) requireLogin() error {
	if !a.client.Session().LoggedIn() {
		return fmt.Errorf("not logged in; run 'whatsthat login <email>' first")
	}
	return nil
}

// thread opens a Thread on chatID backed by the app's stores.
func (a *app) thread(ctx context.Context, chatID whatsthat.ID) (*whatsthat.Thread, error) {
	t := whatsthat.NewThread(a.client, chatID,
		whatsthat.WithSessionStore(a.sessions),
		whatsthat.WithDrafts(a.drafts),
	)
	if err := t.Open(ctx); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func newClient(cfg *Config) *whatsthat.Client {
	opts := []whatsthat.ClientOption{whatsthat.WithTrailingSpace(cfg.trailingSpace())}
	if cfg.Default.BaseURL != "" {
		opts = append(opts, whatsthat.WithBaseURL(cfg.Default.BaseURL))
	}
	return whatsthat.NewClient(opts...)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// errorText is what the CLI prints for a failed command.
func errorText(err error) string {
	if errors.Is(err, whatsthat.ErrValidation) {
		return whatsthat.UserMessage(err)
	}
	return err.Error()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("index must be a positive number, got %q", s)
	}
	// Shown 1-based, stored 0-based.
	return n - 1, nil
}

// readSecret returns flagValue or, if empty, reads a line from in.
func readSecret(in io.Reader, out io.Writer, prompt, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// renderTimeline prints date separators and messages.
func renderTimeline(w io.Writer, items []whatsthat.TimelineItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, it := range items {
		if it.Separator {
			fmt.Fprintf(w, "-- %s --\n", it.Date)
			continue
		}
		author := it.Author
		if it.Mine {
			author = "me"
		}
		fmt.Fprintf(w, "[%s] #%s %s: %s\n", it.Time, it.Message.MessageID, author, strings.TrimSpace(it.Message.Text))
	}
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
