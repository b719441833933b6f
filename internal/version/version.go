// Package version identifies the kamekai build. The variables are set at
// link time, for example:
//
//	go build -ldflags "-X github.com/oukeidos/kamekai/internal/version.Version=0.2.0 \
//	  -X github.com/oukeidos/kamekai/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import (
	"runtime"
	"strings"
)

var (
	Version   = "0.1.0"
	Commit    = ""
	BuildDate = ""
)

// Info is the text printed by --version. Commit and build date lines only
// appear when they were set.
func Info() string {
	var b strings.Builder
	b.WriteString("kamekai " + Version)
	if Commit != "" {
		b.WriteString("\ncommit: " + Commit)
	}
	if BuildDate != "" {
		b.WriteString("\nbuilt: " + BuildDate)
	}
	return b.String()
}

// UserAgent is sent to the translation service and the identity provider.
func UserAgent() string {
	return "kamekai/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
