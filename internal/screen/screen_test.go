package screen

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukeidos/kamekai/internal/apperrors"
	"github.com/oukeidos/kamekai/internal/mockserver"
	"github.com/oukeidos/kamekai/internal/session"
	"github.com/oukeidos/kamekai/internal/token"
	"github.com/oukeidos/kamekai/internal/translation"
)

type staticSessions struct {
	mu  sync.Mutex
	s   session.Session
	tok string
}

func signedIn(tok string) *staticSessions {
	return &staticSessions{
		s: session.Session{
			Status: session.StatusAuthenticated,
			User:   &session.User{Email: "user@example.com", IDToken: tok, AccessToken: tok},
		},
		tok: tok,
	}
}

func (s *staticSessions) Snapshot() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

func (s *staticSessions) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok
}

func (s *staticSessions) Subscribe(func(session.Session)) func() { return func() {} }

func wait(t *testing.T, ch <-chan translation.State) translation.State {
	t.Helper()
	require.NotNil(t, ch)
	select {
	case st := <-ch:
		return st
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for translation")
		return translation.State{}
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want Screen
	}{
		{"unauthenticated", Inputs{Session: session.StatusUnauthenticated}, ScreenAuth},
		{"authenticating", Inputs{Session: session.StatusAuthenticating, Submitted: true}, ScreenAuth},
		{"failed", Inputs{Session: session.StatusFailed}, ScreenAuth},
		{"auth diagnostics", Inputs{Session: session.StatusAuthenticated, ShowAuth: true, Submitted: true, Pipeline: translation.StatusSuccess}, ScreenAuth},
		{"home", Inputs{Session: session.StatusAuthenticated}, ScreenHome},
		{"home ignores stale pipeline", Inputs{Session: session.StatusAuthenticated, Pipeline: translation.StatusError}, ScreenHome},
		{"submitted idle", Inputs{Session: session.StatusAuthenticated, Submitted: true}, ScreenLoading},
		{"loading", Inputs{Session: session.StatusAuthenticated, Submitted: true, Pipeline: translation.StatusLoading}, ScreenLoading},
		{"result", Inputs{Session: session.StatusAuthenticated, Submitted: true, Pipeline: translation.StatusSuccess}, ScreenResult},
		{"error", Inputs{Session: session.StatusAuthenticated, Submitted: true, Pipeline: translation.StatusError}, ScreenError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.in))
		})
	}
}

func TestScenarioTwoSentences(t *testing.T) {
	srv := httptest.NewServer(mockserver.New(mockserver.Options{}).Handler())
	defer srv.Close()

	c := NewController(signedIn("abc.def.ghi"), translation.NewPipeline(translation.NewClient(srv.URL)))
	defer c.Close()
	assert.Equal(t, ScreenHome, c.Screen())

	c.SetText("Hello there. How are you?")
	wait(t, c.Submit(context.Background()))

	require.Equal(t, ScreenResult, c.Screen())
	cards := c.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, "Hello there", cards[0].Original)
	assert.Equal(t, "How are you?", cards[1].Original)
}

func TestCardsTrimOriginals(t *testing.T) {
	p := translation.NewPipeline(stubTranslator{resp: &translation.Response{Translations: []translation.Translation{
		{Original: "Hello there"},
		{Original: " How are you?"},
	}}})
	c := NewController(signedIn("abc.def.ghi"), p)
	c.SetText("Hello there. How are you?")
	wait(t, c.Submit(context.Background()))

	cards := c.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, "How are you?", cards[1].Original)
}

type stubTranslator struct {
	resp *translation.Response
	err  error
}

func (s stubTranslator) Translate(ctx context.Context, credential, text string) (*translation.Response, error) {
	return s.resp, s.err
}

func TestSubmitBlankStaysHome(t *testing.T) {
	c := NewController(signedIn("abc.def.ghi"), translation.NewPipeline(stubTranslator{}))
	c.SetText("   ")
	assert.Nil(t, c.Submit(context.Background()))
	assert.Equal(t, ScreenHome, c.Screen())
}

func TestSubmitWithoutCredentialShowsError(t *testing.T) {
	c := NewController(signedIn(""), translation.NewPipeline(stubTranslator{}))
	c.SetText("Hello")
	st := wait(t, c.Submit(context.Background()))
	assert.Equal(t, translation.StatusError, st.Status)
	assert.Equal(t, ScreenError, c.Screen())
	assert.Equal(t, apperrors.MsgCredentialMissing, c.ErrorView().Message)
}

func TestErrorViewAndBack(t *testing.T) {
	p := translation.NewPipeline(stubTranslator{err: apperrors.Protocol("Translation service error (HTTP 500).", nil)})
	c := NewController(signedIn("abc.def.ghi"), p)
	c.SetText("Hello")
	wait(t, c.Submit(context.Background()))
	require.Equal(t, ScreenError, c.Screen())

	ev := c.ErrorView()
	assert.Equal(t, "Oops! Something went wrong", ev.Title)
	assert.Contains(t, ev.Message, "500")
	assert.Equal(t, "Please try again in a few moments", ev.Hint)
	assert.Equal(t, "Return Home", ev.Action)

	c.Back()
	assert.Equal(t, ScreenHome, c.Screen())
	assert.Empty(t, c.Text())
	assert.Equal(t, translation.StatusIdle, p.State().Status)
}

func TestBackClearsTransientState(t *testing.T) {
	resp := &translation.Response{Translations: []translation.Translation{
		{Original: "One", Japanese: translation.LanguageDetails{Translation: "一"}},
	}}
	c := NewController(signedIn("abc.def.ghi"), translation.NewPipeline(stubTranslator{resp: resp}))
	c.SetText("One.")
	wait(t, c.Submit(context.Background()))

	c.ToggleExpanded(0)
	delay := c.MarkCopied("一")
	assert.Equal(t, CopiedResetDelay, delay)
	cards := c.Cards()
	require.Len(t, cards, 1)
	assert.True(t, cards[0].Expanded)
	assert.True(t, cards[0].JapaneseCopied)
	assert.False(t, cards[0].OriginalCopied)

	c.Back()
	assert.Empty(t, c.Copied())
	assert.Nil(t, c.Cards())

	c.SetText("One.")
	wait(t, c.Submit(context.Background()))
	cards = c.Cards()
	require.Len(t, cards, 1)
	assert.False(t, cards[0].Expanded)
	assert.False(t, cards[0].JapaneseCopied)
}

func TestClearCopiedOnlyIfUnchanged(t *testing.T) {
	c := NewController(signedIn("t"), translation.NewPipeline(stubTranslator{}))
	c.MarkCopied("first")
	c.MarkCopied("second")
	c.ClearCopied("first")
	assert.Equal(t, "second", c.Copied())
	c.ClearCopied("second")
	assert.Empty(t, c.Copied())
}

func TestAuthViewDecodesOnDemand(t *testing.T) {
	idToken := "eyJhbGciOiJIUzI1NiJ9.eyJlbWFpbCI6InVzZXJAZXhhbXBsZS5jb20ifQ.sig"
	c := NewController(signedIn(idToken), translation.NewPipeline(stubTranslator{}))

	c.ShowAuth()
	assert.Equal(t, ScreenAuth, c.Screen())
	v := c.AuthView()
	assert.Equal(t, "user@example.com", v.Email)
	assert.Equal(t, idToken, v.IDToken)
	assert.False(t, v.ShowDecoded)

	c.ToggleDecoded()
	v = c.AuthView()
	require.True(t, v.ShowDecoded)
	require.True(t, v.Decoded.Valid())
	assert.Equal(t, map[string]any{"email": "user@example.com"}, v.Decoded.Payload)

	c.HideAuth()
	assert.Equal(t, ScreenHome, c.Screen())
	assert.False(t, c.AuthView().ShowDecoded)
}

func TestAuthViewInvalidToken(t *testing.T) {
	c := NewController(signedIn("not-a-token"), translation.NewPipeline(stubTranslator{}))
	c.ToggleDecoded()
	v := c.AuthView()
	assert.Equal(t, token.InvalidPlaceholder, v.Decoded.Header)
	assert.Equal(t, token.InvalidPlaceholder, v.Decoded.Payload)
}

func TestOnChangeSeesLoadingThenResult(t *testing.T) {
	release := make(chan struct{})
	p := translation.NewPipeline(blockingTranslator{release: release})
	c := NewController(signedIn("abc.def.ghi"), p)

	var mu sync.Mutex
	var screens []Screen
	c.OnChange(func(v View) {
		mu.Lock()
		screens = append(screens, v.Screen)
		mu.Unlock()
	})

	c.SetText("Hi.")
	done := c.Submit(context.Background())
	close(release)
	wait(t, done)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, screens)
	assert.Equal(t, ScreenLoading, screens[0])
	assert.Equal(t, ScreenResult, screens[len(screens)-1])
}

type blockingTranslator struct {
	release chan struct{}
}

func (b blockingTranslator) Translate(ctx context.Context, credential, text string) (*translation.Response, error) {
	<-b.release
	return &translation.Response{Translations: []translation.Translation{{Original: "Hi"}}}, nil
}

func TestProgress(t *testing.T) {
	var p Progress
	p = p.Tick()
	assert.InDelta(t, 10.0, p.Percent, 1e-9)
	p = p.Tick()
	assert.InDelta(t, 19.0, p.Percent, 1e-9)

	for range 200 {
		p = p.Tick()
	}
	assert.Equal(t, 99.0, p.Percent, "progress must stall at 99 until complete")

	p = Progress{Percent: 98}
	p = p.Tick()
	assert.Equal(t, 99.0, p.Percent)

	p = p.Complete()
	assert.Equal(t, 100.0, p.Percent)
	assert.Equal(t, 100.0, p.Tick().Percent)
}

func TestProgressMinimumIncrement(t *testing.T) {
	p := Progress{Percent: 96}
	p = p.Tick()
	assert.InDelta(t, 96.5, p.Percent, 1e-9)
}

func TestProgressMessages(t *testing.T) {
	var p Progress
	assert.Equal(t, "Still working on it...", p.Message())
	for range len(LoadingMessages) {
		p = p.RotateMessage()
	}
	assert.Equal(t, 0, p.MessageIndex)
	p = p.RotateMessage()
	assert.Equal(t, "Almost there...", p.Message())
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()
	var calls int
	last := Run(ctx, func(Progress) { calls++ })
	assert.Greater(t, calls, 1)
	assert.Greater(t, last.Percent, 0.0)
	assert.Less(t, last.Percent, 100.0)
}
