package main

import (
	"context"
	"testing"
	"time"

	"github.com/oukeidos/kamekai/internal/screen"
	"github.com/oukeidos/kamekai/internal/session"
	"github.com/oukeidos/kamekai/internal/translation"
)

func TestRecoverInto(t *testing.T) {
	var got string
	recoverInto("test.guard", func(scope string) { got = scope }, func() { panic("boom") })
	if got != "test.guard" {
		t.Fatalf("handler got scope %q", got)
	}

	got = ""
	recoverInto("test.quiet", func(scope string) { got = scope }, func() {})
	if got != "" {
		t.Fatalf("handler ran without a panic: %q", got)
	}
}

func TestSafeGoOnNilAppRecovers(t *testing.T) {
	var a *kamekaiApp
	done := make(chan struct{})
	a.safeGo("test.safe_go", func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("safeGo goroutine did not finish")
	}
}

type stubTranslator struct{}

func (stubTranslator) Translate(context.Context, string, string) (*translation.Response, error) {
	return &translation.Response{Translations: []translation.Translation{{Original: "Hi"}}}, nil
}

func TestHandleRecoveredPanicReturnsHome(t *testing.T) {
	var nilApp *kamekaiApp
	nilApp.handleRecoveredPanic("test.nil")
	(&kamekaiApp{}).handleRecoveredPanic("test.empty")

	p := translation.NewPipeline(stubTranslator{})
	a := &kamekaiApp{ctrl: screen.NewController(session.Fixed{Token: "abc.def.ghi"}, p)}
	a.ctrl.SetText("Hi.")
	select {
	case <-a.ctrl.Submit(context.Background()):
	case <-time.After(2 * time.Second):
		t.Fatal("translation did not finish")
	}
	if a.ctrl.Screen() != screen.ScreenResult {
		t.Fatalf("screen = %v, want result", a.ctrl.Screen())
	}

	a.handleRecoveredPanic("test.render")
	if a.ctrl.Screen() != screen.ScreenHome {
		t.Fatalf("screen = %v, want home", a.ctrl.Screen())
	}
	if a.ctrl.Text() != "" {
		t.Fatalf("text = %q, want empty", a.ctrl.Text())
	}
}
