package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oukeidos/kamekai/internal/apperrors"
	"github.com/oukeidos/kamekai/internal/auth"
	"github.com/oukeidos/kamekai/internal/browser"
	"github.com/oukeidos/kamekai/internal/cleanup"
	"github.com/oukeidos/kamekai/internal/config"
	"github.com/oukeidos/kamekai/internal/files"
	"github.com/oukeidos/kamekai/internal/logger"
	"github.com/oukeidos/kamekai/internal/prompt"
	"github.com/oukeidos/kamekai/internal/render"
	"github.com/oukeidos/kamekai/internal/session"
)

var (
	isTerminal     = term.IsTerminal
	getTermSize    = term.GetSize
	getEnvToken    = auth.GetEnvToken
	promptForToken = auth.PromptForToken
	loadConfig     = config.Load
	newStore       = defaultStore
	newProvider    = func(ctx context.Context, cfg *config.Config) (session.Provider, error) {
		return session.NewOIDCProvider(ctx, cfg)
	}
	newNavigator = func(out io.Writer, disabled bool) session.Navigator {
		return browser.New(out, disabled)
	}
)

const (
	sourceFlag     = "Flag"
	sourceEnv      = "Environment Variable"
	sourceKeychain = "Keychain"
)

func defaultStore(cfg *config.Config) auth.Store {
	if cfg.Keychain {
		return auth.KeyringStore{}
	}
	return &auth.MemoryStore{}
}

// setupLogging initializes the global logger and, when logFile is set, an
// additional JSONL sink closed on exit.
func setupLogging(debug bool, logFile string) error {
	level := logger.LevelInfo
	if debug {
		level = logger.LevelDebug
	}
	var w io.Writer
	if logFile != "" {
		f, err := files.OpenLogFile(logFile)
		if err != nil {
			return err
		}
		cleanup.Register("log file", f.Close)
		w = f
	}
	logger.Init(level, w)
	return nil
}

// restoreSession renews the session saved by `kamekai login`. It returns a
// manager in StatusUnauthenticated when nothing is stored.
func restoreSession(ctx context.Context, cfg *config.Config) (*session.Manager, error) {
	if err := cfg.ValidateIdentity(); err != nil {
		return nil, err
	}
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// One-shot commands never renew in the background.
	restoreCfg := *cfg
	restoreCfg.AutomaticSilentRenew = false
	m := session.NewManager(&restoreCfg, provider, newStore(cfg), nil)
	if err := m.Restore(ctx); err != nil {
		return m, err
	}
	return m, nil
}

// resolveToken finds the credential sent to the translation service:
// the --token flag, then KAMEKAI_TOKEN, then the stored session.
func resolveToken(ctx context.Context, cfg *config.Config, explicit string) (string, string, error) {
	if tok := strings.TrimSpace(explicit); tok != "" {
		return tok, sourceFlag, nil
	}
	if tok, ok := getEnvToken(); ok {
		return tok, sourceEnv, nil
	}
	if cfg.ValidateIdentity() != nil {
		return "", "", fmt.Errorf("%s: set KAMEKAI_TOKEN, pass --token, or configure the identity provider and run `kamekai login`",
			apperrors.MsgCredentialMissing)
	}
	m, err := restoreSession(ctx, cfg)
	if err != nil {
		return "", "", err
	}
	if tok := m.AccessToken(); tok != "" {
		return tok, sourceKeychain, nil
	}
	return "", "", fmt.Errorf("%s: run `kamekai login` first", apperrors.MsgCredentialMissing)
}

// confirmerFor reads from the command's input, which is interactive only
// when it is a terminal.
func confirmerFor(cmd *cobra.Command) prompt.Confirmer {
	c := prompt.DefaultConfirmer()
	c.In = cmd.InOrStdin()
	c.Out = cmd.ErrOrStderr()
	c.IsInteractive = func() bool {
		f, ok := c.In.(*os.File)
		return ok && isTerminal(int(f.Fd()))
	}
	return c
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !isTerminal(fd) {
		return render.DefaultWidth
	}
	w, _, err := getTermSize(fd)
	if err != nil || w <= 0 {
		return render.DefaultWidth
	}
	return w
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}

// shutdownHook stops a server within timeout when the process exits.
func shutdownHook(timeout time.Duration, shutdown func(context.Context) error) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Debug("Shutdown did not finish cleanly", "error", err)
			return err
		}
		return nil
	}
}
