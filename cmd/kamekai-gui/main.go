package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"

	"github.com/oukeidos/kamekai/internal/auth"
	"github.com/oukeidos/kamekai/internal/cleanup"
	"github.com/oukeidos/kamekai/internal/config"
	"github.com/oukeidos/kamekai/internal/logger"
	"github.com/oukeidos/kamekai/internal/screen"
	"github.com/oukeidos/kamekai/internal/session"
	"github.com/oukeidos/kamekai/internal/translation"
)

const receiverShutdownTimeout = 5 * time.Second

type kamekaiApp struct {
	app    fyne.App
	window fyne.Window
	cfg    *config.Config

	manager    *session.Manager // nil when a fixed token is used
	translator *endpointTranslator
	pipeline   *translation.Pipeline
	ctrl       *screen.Controller
	views      *views

	progressMu     sync.Mutex
	progressCancel context.CancelFunc

	panicNoticeOnce sync.Once
}

// urlNavigator opens provider pages in the system browser.
func urlNavigator(open func(*url.URL) error) session.Navigator {
	return session.NavigatorFunc(func(rawURL string) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
		return open(u)
	})
}

func newKamekaiApp(fa fyne.App, w fyne.Window, cfg *config.Config) (*kamekaiApp, error) {
	a := &kamekaiApp{app: fa, window: w, cfg: cfg}
	a.translator = newEndpointTranslator(endpointFromPreferences(fa.Preferences(), cfg))
	a.pipeline = translation.NewPipeline(a.translator)

	var sessions screen.SessionSource
	if tok, ok := auth.GetEnvToken(); ok {
		logger.Info("Using credential", "source", "Environment Variable")
		sessions = session.Fixed{Token: tok}
	} else {
		m, err := a.newManager()
		if err != nil {
			return nil, err
		}
		a.manager = m
		sessions = m
	}

	a.ctrl = screen.NewController(sessions, a.pipeline)
	a.views = newViews(a)
	w.SetContent(a.views.root)
	a.ctrl.OnChange(func(screen.View) {
		a.safeDo("ui.render", a.render)
	})
	a.render()
	return a, nil
}

func (a *kamekaiApp) newManager() (*session.Manager, error) {
	var store auth.Store = &auth.MemoryStore{}
	if a.cfg.Keychain {
		store = auth.KeyringStore{}
	}
	nav := urlNavigator(a.app.OpenURL)

	if err := a.cfg.ValidateIdentity(); err != nil {
		logger.Warn("Sign-in is unavailable", "error", err)
		return session.NewManager(a.cfg, nil, store, nav), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	provider, err := session.NewOIDCProvider(ctx, a.cfg)
	if err != nil {
		logger.Warn("Identity provider unavailable", "error", err)
		return session.NewManager(a.cfg, nil, store, nav), nil
	}
	m := session.NewManager(a.cfg, provider, store, nav)

	rcv, err := session.NewLoopbackReceiver(m, a.cfg.RedirectURI)
	if err != nil {
		return nil, err
	}
	if err := rcv.Start(); err != nil {
		return nil, err
	}
	cleanup.Register("callback listener", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), receiverShutdownTimeout)
		defer cancel()
		return rcv.Shutdown(ctx)
	})

	a.safeGo("session.restore", func() {
		if err := m.Restore(context.Background()); err != nil {
			logger.Warn("Could not restore the previous session", "error", err)
		}
	})
	return m, nil
}

func (a *kamekaiApp) signIn() {
	if a.manager == nil {
		return
	}
	a.safeGo("session.sign_in", func() {
		if err := a.manager.SignIn(context.Background()); err != nil {
			a.showError(err)
		}
	})
}

func (a *kamekaiApp) cancelSignIn() {
	if a.manager == nil {
		return
	}
	a.manager.CancelSignIn()
}

func (a *kamekaiApp) signOut() {
	if a.manager == nil {
		return
	}
	a.safeGo("session.sign_out", func() {
		if err := a.manager.SignOut(); err != nil {
			logger.Warn("Sign-out incomplete", "error", err)
			a.showError(err)
		}
	})
}

// submit is a no-op for blank input.
func (a *kamekaiApp) submit() {
	a.ctrl.SetText(a.views.input.Text)
	a.ctrl.Submit(context.Background())
}

func (a *kamekaiApp) copyText(text string) {
	a.app.Clipboard().SetContent(text)
	delay := a.ctrl.MarkCopied(text)
	time.AfterFunc(delay, func() { a.ctrl.ClearCopied(text) })
}

func (a *kamekaiApp) showError(err error) {
	a.safeDo("ui.error_dialog", func() {
		dialog.ShowError(err, a.window)
	})
}

// startProgress drives the loading screen until stopProgress is called.
func (a *kamekaiApp) startProgress() {
	a.progressMu.Lock()
	if a.progressCancel != nil {
		a.progressMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.progressCancel = cancel
	a.progressMu.Unlock()

	a.safeGo("ui.progress", func() {
		screen.Run(ctx, func(p screen.Progress) {
			a.safeDo("ui.progress.frame", func() { a.views.showProgress(p) })
		})
	})
}

func (a *kamekaiApp) stopProgress() {
	a.progressMu.Lock()
	cancel := a.progressCancel
	a.progressCancel = nil
	a.progressMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *kamekaiApp) render() {
	v := a.ctrl.View()
	if v.Screen == screen.ScreenLoading {
		a.startProgress()
	} else {
		a.stopProgress()
	}
	a.views.show(v)
}

func (a *kamekaiApp) shutdown() {
	a.stopProgress()
	a.ctrl.Close()
	if err := cleanup.RunAll(); err != nil {
		logger.Warn("Cleanup incomplete", "error", err)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level := logger.LevelInfo
	if cfg.Debug {
		level = logger.LevelDebug
	}
	logger.Init(level, nil)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Unrecovered GUI panic", "scope", "main", "panic", fmt.Sprint(r))
			os.Exit(1)
		}
	}()

	myApp := app.NewWithID("com.kamekai.app")
	myApp.SetIcon(theme.MailComposeIcon())

	w := myApp.NewWindow("kamekai")
	w.SetMaster()
	w.Resize(fyne.NewSize(520, 720))
	w.CenterOnScreen()

	ka, err := newKamekaiApp(myApp, w, cfg)
	if err != nil {
		logger.Error("Failed to start", "error", err)
		os.Exit(1)
	}
	w.SetCloseIntercept(func() {
		ka.shutdown()
		w.SetCloseIntercept(nil)
		w.Close()
	})

	w.ShowAndRun()
}
