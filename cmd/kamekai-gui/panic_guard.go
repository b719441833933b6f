package main

import (
	"fmt"
	"runtime/debug"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/oukeidos/kamekai/internal/logger"
)

const panicNotice = "An internal error stopped the current translation. Please try again. If this repeats, restart kamekai."

// recoverInto runs fn and turns a panic into an error log plus a call to
// onPanic with the scope that failed.
func recoverInto(scope string, onPanic func(scope string), fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error("Recovered panic", "scope", scope, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		if onPanic != nil {
			onPanic(scope)
		}
	}()
	fn()
}

// panicHandler is nil for a nil app so guarded work can run before the
// window exists.
func (a *kamekaiApp) panicHandler() func(string) {
	if a == nil {
		return nil
	}
	return a.handleRecoveredPanic
}

// safeGo runs fn on a new goroutine.
func (a *kamekaiApp) safeGo(scope string, fn func()) {
	onPanic := a.panicHandler()
	go recoverInto(scope, onPanic, fn)
}

// safeDo runs fn on the fyne thread.
func (a *kamekaiApp) safeDo(scope string, fn func()) {
	onPanic := a.panicHandler()
	recoverInto(scope+".dispatch", onPanic, func() {
		fyne.Do(func() {
			recoverInto(scope, onPanic, fn)
		})
	})
}

// handleRecoveredPanic drops the current translation and returns to the
// input form. The user is told once per run.
func (a *kamekaiApp) handleRecoveredPanic(scope string) {
	if a == nil || a.ctrl == nil {
		return
	}
	logger.Warn("Returning to the input form", "scope", scope, "screen", a.ctrl.Screen().String())
	a.stopProgress()
	a.ctrl.Back()

	if a.window == nil {
		return
	}
	a.panicNoticeOnce.Do(func() {
		recoverInto("panic.notice.dispatch", nil, func() {
			fyne.Do(func() {
				recoverInto("panic.notice", nil, func() {
					dialog.ShowInformation("Unexpected Error", panicNotice, a.window)
				})
			})
		})
	})
}
