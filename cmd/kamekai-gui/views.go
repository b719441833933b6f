package main

import (
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/oukeidos/kamekai/internal/language"
	"github.com/oukeidos/kamekai/internal/screen"
	"github.com/oukeidos/kamekai/internal/session"
	"github.com/oukeidos/kamekai/internal/translation"
	"github.com/oukeidos/kamekai/internal/version"
)

// views holds every screen, built once. show toggles visibility and
// refreshes the content of the screen being shown.
type views struct {
	a    *kamekaiApp
	root *fyne.Container

	home     fyne.CanvasObject
	greeting *widget.Label
	input    *widget.Entry

	auth         fyne.CanvasObject
	authStatus   *widget.Label
	authEmail    *widget.Label
	authError    *widget.Label
	authToken    *widget.Entry
	authDecoded  *widget.Entry
	decodeBtn    *widget.Button
	signInBtn    *widget.Button
	signOutBtn   *widget.Button
	cancelBtn    *widget.Button
	authCloseBtn *widget.Button

	loading     fyne.CanvasObject
	progressBar *widget.ProgressBar
	progressMsg *widget.Label

	result     fyne.CanvasObject
	resultList *fyne.Container

	errorView  fyne.CanvasObject
	errTitle   *widget.Label
	errMessage *widget.Label
	errHint    *widget.Label
	errAction  *widget.Button
}

func newViews(a *kamekaiApp) *views {
	v := &views{a: a}
	v.home = v.buildHome()
	v.auth = v.buildAuth()
	v.loading = v.buildLoading()
	v.result = v.buildResult()
	v.errorView = v.buildError()
	v.root = container.NewStack(v.home, v.auth, v.loading, v.result, v.errorView)
	return v
}

func (v *views) buildHome() fyne.CanvasObject {
	v.greeting = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	v.input = widget.NewMultiLineEntry()
	v.input.SetPlaceHolder("Type or paste English text...")
	v.input.Wrapping = fyne.TextWrapWord
	v.input.SetMinRowsVisible(8)
	v.input.OnChanged = func(s string) { v.a.ctrl.SetText(s) }

	process := widget.NewButtonWithIcon("Process", theme.ConfirmIcon(), v.a.submit)
	process.Importance = widget.HighImportance

	account := widget.NewButtonWithIcon("", theme.AccountIcon(), v.a.ctrl.ShowAuth)
	settings := widget.NewButtonWithIcon("", theme.SettingsIcon(), v.showSettings)
	top := container.NewHBox(layout.NewSpacer(), settings, account)

	return container.NewBorder(
		container.NewVBox(top, v.greeting),
		container.NewPadded(process),
		nil, nil,
		container.NewPadded(v.input),
	)
}

func (v *views) buildAuth() fyne.CanvasObject {
	title := widget.NewLabelWithStyle("Account", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	v.authStatus = widget.NewLabel("")
	v.authEmail = widget.NewLabel("")
	v.authError = widget.NewLabel("")
	v.authError.Wrapping = fyne.TextWrapWord
	v.authError.Importance = widget.DangerImportance

	v.authToken = widget.NewMultiLineEntry()
	v.authToken.Wrapping = fyne.TextWrapBreak
	v.authToken.SetMinRowsVisible(4)
	v.authToken.Disable()
	v.authDecoded = widget.NewMultiLineEntry()
	v.authDecoded.Wrapping = fyne.TextWrapWord
	v.authDecoded.SetMinRowsVisible(10)
	v.authDecoded.Disable()

	v.decodeBtn = widget.NewButton("Show Decoded", v.a.ctrl.ToggleDecoded)
	v.signInBtn = widget.NewButtonWithIcon("Sign In", theme.LoginIcon(), v.a.signIn)
	v.signInBtn.Importance = widget.HighImportance
	v.signOutBtn = widget.NewButtonWithIcon("Sign Out", theme.LogoutIcon(), v.a.signOut)
	v.cancelBtn = widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), v.a.cancelSignIn)
	v.authCloseBtn = widget.NewButtonWithIcon("Back", theme.NavigateBackIcon(), v.a.ctrl.HideAuth)

	details := container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Status", v.authStatus),
			widget.NewFormItem("Email", v.authEmail),
		),
		v.authError,
		widget.NewLabelWithStyle("ID Token", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		v.authToken,
		v.decodeBtn,
		v.authDecoded,
	)
	buttons := container.NewHBox(v.authCloseBtn, layout.NewSpacer(), v.cancelBtn, v.signOutBtn, v.signInBtn)
	return container.NewBorder(title, container.NewPadded(buttons), nil, nil, container.NewVScroll(container.NewPadded(details)))
}

func (v *views) buildLoading() fyne.CanvasObject {
	v.progressBar = widget.NewProgressBar()
	v.progressMsg = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
	box := container.NewVBox(
		widget.NewLabelWithStyle("Translating...", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		v.progressBar,
		v.progressMsg,
	)
	return container.NewPadded(container.NewVBox(layout.NewSpacer(), box, layout.NewSpacer()))
}

func (v *views) buildResult() fyne.CanvasObject {
	v.resultList = container.NewVBox()
	again := widget.NewButtonWithIcon("New Translation", theme.ContentAddIcon(), v.a.ctrl.Back)
	return container.NewBorder(nil, container.NewPadded(again), nil, nil, container.NewVScroll(v.resultList))
}

func (v *views) buildError() fyne.CanvasObject {
	v.errTitle = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	v.errMessage = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{})
	v.errMessage.Wrapping = fyne.TextWrapWord
	v.errHint = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
	v.errAction = widget.NewButtonWithIcon("", theme.HomeIcon(), v.a.ctrl.Back)
	v.errAction.Importance = widget.HighImportance

	box := container.NewVBox(
		container.NewCenter(widget.NewIcon(theme.ErrorIcon())),
		v.errTitle,
		v.errMessage,
		v.errHint,
		container.NewCenter(v.errAction),
	)
	return container.NewPadded(container.NewVBox(layout.NewSpacer(), box, layout.NewSpacer()))
}

func (v *views) show(view screen.View) {
	screens := map[screen.Screen]fyne.CanvasObject{
		screen.ScreenHome:    v.home,
		screen.ScreenAuth:    v.auth,
		screen.ScreenLoading: v.loading,
		screen.ScreenResult:  v.result,
		screen.ScreenError:   v.errorView,
	}
	for s, obj := range screens {
		if s == view.Screen {
			obj.Show()
		} else {
			obj.Hide()
		}
	}

	switch view.Screen {
	case screen.ScreenHome:
		v.greeting.SetText(greetingText(time.Now()))
		if v.input.Text != view.Text {
			v.input.SetText(view.Text)
		}
	case screen.ScreenAuth:
		v.showAuth(v.a.ctrl.AuthView())
	case screen.ScreenResult:
		v.showCards(v.a.ctrl.Cards())
	case screen.ScreenError:
		ev := v.a.ctrl.ErrorView()
		v.errTitle.SetText(ev.Title)
		v.errMessage.SetText(ev.Message)
		v.errHint.SetText(ev.Hint)
		v.errAction.SetText(ev.Action)
	}
	v.root.Refresh()
}

func (v *views) showAuth(av screen.AuthView) {
	v.authStatus.SetText(authStatusText(av.Status))
	v.authEmail.SetText(av.Email)
	v.authError.SetText(av.Error)
	v.authToken.SetText(av.IDToken)

	b := authButtons(av.Status, v.a.manager != nil)
	setVisible(v.authCloseBtn, b.back)
	setVisible(v.signOutBtn, b.signOut)
	setVisible(v.cancelBtn, b.cancel)
	setVisible(v.signInBtn, b.signIn)
	v.signInBtn.SetText(b.signInLabel)

	setVisible(v.decodeBtn, av.IDToken != "")
	setVisible(v.authDecoded, av.ShowDecoded)
	if av.ShowDecoded {
		v.decodeBtn.SetText("Hide Decoded")
		header, payload := av.Decoded.Indented()
		v.authDecoded.SetText("Header:\n" + header + "\n\nPayload:\n" + payload)
	} else {
		v.decodeBtn.SetText("Show Decoded")
	}
}

func (v *views) showProgress(p screen.Progress) {
	v.progressBar.SetValue(p.Percent / 100)
	v.progressMsg.SetText(p.Message())
}

func (v *views) showCards(cards []screen.Card) {
	objs := make([]fyne.CanvasObject, 0, len(cards))
	for _, c := range cards {
		objs = append(objs, v.cardObject(c))
	}
	if len(objs) == 0 {
		objs = append(objs, widget.NewLabelWithStyle("No sentences were returned.", fyne.TextAlignCenter, fyne.TextStyle{Italic: true}))
	}
	v.resultList.Objects = objs
	v.resultList.Refresh()
}

func (v *views) cardObject(c screen.Card) fyne.CanvasObject {
	original := widget.NewLabelWithStyle(c.Original, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	original.Wrapping = fyne.TextWrapWord

	rows := []fyne.CanvasObject{
		container.NewBorder(nil, nil, nil, v.copyButton(c.Original, c.OriginalCopied), original),
	}
	copied := map[string]bool{
		language.Japanese.Code: c.JapaneseCopied,
		language.Chinese.Code:  c.ChineseCopied,
	}
	for _, lang := range language.Targets {
		d := c.Details(lang)
		text := widget.NewLabel(d.Translation)
		text.Wrapping = fyne.TextWrapWord
		rows = append(rows,
			widget.NewLabelWithStyle(lang.Name, fyne.TextAlignLeading, fyne.TextStyle{Italic: true}),
			container.NewBorder(nil, nil, nil, v.copyButton(d.Translation, copied[lang.Code]), text),
		)
		if d.Pronunciation != "" {
			rows = append(rows, widget.NewLabelWithStyle(d.Pronunciation, fyne.TextAlignLeading, fyne.TextStyle{Monospace: true}))
		}
		if c.Expanded {
			if extra := detailsText(d); extra != "" {
				more := widget.NewLabel(extra)
				more.Wrapping = fyne.TextWrapWord
				rows = append(rows, more)
			}
		}
	}

	label := "Show Details"
	if c.Expanded {
		label = "Hide Details"
	}
	index := c.Index
	rows = append(rows, widget.NewButton(label, func() { v.a.ctrl.ToggleExpanded(index) }))
	return widget.NewCard("", fmt.Sprintf("Sentence %d", c.Index+1), container.NewVBox(rows...))
}

func (v *views) copyButton(text string, copied bool) *widget.Button {
	btn := widget.NewButtonWithIcon(copyLabel(copied), theme.ContentCopyIcon(), func() { v.a.copyText(text) })
	if text == "" {
		btn.Disable()
	}
	return btn
}

func (v *views) showSettings() {
	entry := widget.NewEntry()
	entry.SetText(v.a.translator.Endpoint())
	items := []*widget.FormItem{
		widget.NewFormItem("Endpoint", entry),
		widget.NewFormItem("Version", widget.NewLabel(version.Version)),
	}
	dialog.ShowForm("Settings", "Save", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		endpoint, err := saveEndpoint(v.a.app.Preferences(), entry.Text)
		if err != nil {
			dialog.ShowError(err, v.a.window)
			return
		}
		v.a.translator.SetEndpoint(endpoint)
	}, v.a.window)
}

func setVisible(obj fyne.CanvasObject, visible bool) {
	if visible {
		obj.Show()
	} else {
		obj.Hide()
	}
}

// greetingText greets in both targets, Japanese first.
func greetingText(now time.Time) string {
	parts := make([]string, 0, len(language.Targets))
	for _, lang := range language.Targets {
		parts = append(parts, lang.Greeting(now))
	}
	return strings.Join(parts, "  ")
}

type authButtonState struct {
	back, signOut, cancel, signIn bool
	signInLabel                   string
}

// authButtons decides the auth screen's actions. A sign-in left open in the
// browser can always be restarted or cancelled.
func authButtons(status session.Status, canSignIn bool) authButtonState {
	b := authButtonState{signInLabel: "Sign In"}
	switch status {
	case session.StatusAuthenticated:
		b.back = true
		b.signOut = canSignIn
	case session.StatusAuthenticating:
		b.cancel = canSignIn
		b.signIn = canSignIn
		b.signInLabel = "Sign In Again"
	default:
		b.signIn = canSignIn
	}
	return b
}

func authStatusText(s session.Status) string {
	switch s {
	case session.StatusAuthenticated:
		return "Signed in"
	case session.StatusAuthenticating:
		return "Signing in..."
	case session.StatusFailed:
		return "Sign-in failed"
	default:
		return "Not signed in"
	}
}

func copyLabel(copied bool) string {
	if copied {
		return "Copied!"
	}
	return "Copy"
}

// detailsText lists grammar notes and examples, one per line.
func detailsText(d translation.LanguageDetails) string {
	var b strings.Builder
	for _, g := range d.Grammar {
		fmt.Fprintf(&b, "• %s\n", g)
	}
	for _, ex := range d.Examples {
		fmt.Fprintf(&b, "» %s", ex.Phrase)
		if ex.Pronunciation != "" {
			fmt.Fprintf(&b, " (%s)", ex.Pronunciation)
		}
		if ex.Translation != "" {
			fmt.Fprintf(&b, ": %s", ex.Translation)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
