package screen

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oukeidos/kamekai/internal/language"
	"github.com/oukeidos/kamekai/internal/session"
	"github.com/oukeidos/kamekai/internal/token"
	"github.com/oukeidos/kamekai/internal/translation"
)

// CopiedResetDelay is how long a copy button shows its confirmation.
const CopiedResetDelay = 2 * time.Second

// SessionSource is the part of session.Manager the controller reads.
type SessionSource interface {
	Snapshot() session.Session
	AccessToken() string
	Subscribe(func(session.Session)) (unsubscribe func())
}

// Card is one translated sentence as shown on the result screen.
type Card struct {
	Index          int
	Original       string
	Japanese       translation.LanguageDetails
	Chinese        translation.LanguageDetails
	Expanded       bool
	OriginalCopied bool
	JapaneseCopied bool
	ChineseCopied  bool
}

// Details returns the card's payload for lang.
func (c Card) Details(lang language.Language) translation.LanguageDetails {
	if lang.Code == language.Chinese.Code {
		return c.Chinese
	}
	return c.Japanese
}

// ErrorView is the content of the error screen.
type ErrorView struct {
	Title   string
	Message string
	Hint    string
	Action  string
}

// AuthView is the content of the auth screen.
type AuthView struct {
	Status      session.Status
	Email       string
	IDToken     string
	Decoded     token.Decoded
	ShowDecoded bool
	Error       string
}

// View is a consistent snapshot of everything a renderer needs.
type View struct {
	Screen   Screen
	Session  session.Session
	Pipeline translation.State
	Text     string
}

// Controller holds the transient UI state and routes between screens.
type Controller struct {
	sessions SessionSource
	pipeline *translation.Pipeline

	mu          sync.Mutex
	text        string
	submitted   bool
	showAuth    bool
	showDecoded bool
	expanded    map[int]bool
	copied      string
	observers   []func(View)
	unsubscribe func()
}

func NewController(sessions SessionSource, pipeline *translation.Pipeline) *Controller {
	c := &Controller{
		sessions: sessions,
		pipeline: pipeline,
		expanded: make(map[int]bool),
	}
	c.unsubscribe = sessions.Subscribe(func(session.Session) { c.notify() })
	pipeline.OnChange(func(translation.State) { c.notify() })
	return c
}

// Close detaches the controller from the session manager.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// OnChange registers fn for every change that may alter the view.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *Controller) View() View {
	s := c.sessions.Snapshot()
	st := c.pipeline.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Screen: Route(Inputs{
			Session:   s.Status,
			Pipeline:  st.Status,
			ShowAuth:  c.showAuth,
			Submitted: c.submitted,
		}),
		Session:  s,
		Pipeline: st,
		Text:     c.text,
	}
}

func (c *Controller) Screen() Screen {
	return c.View().Screen
}

func (c *Controller) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

func (c *Controller) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Submit sends the current text for translation. Blank text does nothing
// and returns nil.
func (c *Controller) Submit(ctx context.Context) <-chan translation.State {
	c.mu.Lock()
	text := c.text
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return nil
	}
	c.submitted = true
	c.expanded = make(map[int]bool)
	c.copied = ""
	c.mu.Unlock()

	return c.pipeline.Submit(ctx, text, c.sessions.AccessToken())
}

// Back is the single recovery action: it returns to the input form and
// drops the text, the pipeline state, the expanded cards and the copied flag.
func (c *Controller) Back() {
	c.mu.Lock()
	c.text = ""
	c.submitted = false
	c.expanded = make(map[int]bool)
	c.copied = ""
	c.mu.Unlock()
	c.pipeline.Reset()
}

func (c *Controller) ShowAuth() {
	c.mu.Lock()
	c.showAuth = true
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) HideAuth() {
	c.mu.Lock()
	c.showAuth = false
	c.showDecoded = false
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) ToggleDecoded() {
	c.mu.Lock()
	c.showDecoded = !c.showDecoded
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) ToggleExpanded(i int) {
	c.mu.Lock()
	c.expanded[i] = !c.expanded[i]
	c.mu.Unlock()
	c.notify()
}

// MarkCopied flags text as just copied. The caller should call
// ClearCopied(text) after the returned delay.
func (c *Controller) MarkCopied(text string) (clearAfter time.Duration) {
	c.mu.Lock()
	c.copied = text
	c.mu.Unlock()
	c.notify()
	return CopiedResetDelay
}

// ClearCopied drops the copied flag if it still refers to text.
func (c *Controller) ClearCopied(text string) {
	c.mu.Lock()
	if c.copied != text {
		c.mu.Unlock()
		return
	}
	c.copied = ""
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) Copied() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copied
}

// Cards returns the result cards, or nil unless the pipeline succeeded.
func (c *Controller) Cards() []Card {
	st := c.pipeline.State()
	if st.Status != translation.StatusSuccess || st.Response == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cards := make([]Card, 0, len(st.Response.Translations))
	for i, t := range st.Response.Translations {
		original := t.DisplayOriginal()
		cards = append(cards, Card{
			Index:          i,
			Original:       original,
			Japanese:       t.Japanese,
			Chinese:        t.Chinese,
			Expanded:       c.expanded[i],
			OriginalCopied: c.copied != "" && c.copied == original,
			JapaneseCopied: c.copied != "" && c.copied == t.Japanese.Translation,
			ChineseCopied:  c.copied != "" && c.copied == t.Chinese.Translation,
		})
	}
	return cards
}

func (c *Controller) ErrorView() ErrorView {
	return ErrorView{
		Title:   "Oops! Something went wrong",
		Message: c.pipeline.State().Message,
		Hint:    "Please try again in a few moments",
		Action:  "Return Home",
	}
}

func (c *Controller) AuthView() AuthView {
	s := c.sessions.Snapshot()
	c.mu.Lock()
	showDecoded := c.showDecoded
	c.mu.Unlock()

	v := AuthView{Status: s.Status, ShowDecoded: showDecoded}
	if s.User != nil {
		v.Email = s.User.Email
		v.IDToken = s.User.IDToken
		if showDecoded {
			v.Decoded = token.Decode(s.User.IDToken)
		}
	}
	if s.Err != nil {
		v.Error = s.Err.Message
	}
	return v
}

func (c *Controller) notify() {
	c.mu.Lock()
	observers := c.observers
	c.mu.Unlock()
	if len(observers) == 0 {
		return
	}
	v := c.View()
	for _, fn := range observers {
		fn(v)
	}
}
