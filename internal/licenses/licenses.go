package licenses

import (
	_ "embed"
	"runtime/debug"
)

//go:embed embedded/THIRD_PARTY_NOTICES.md
var noticesText string

func NoticesText() string {
	return noticesText
}

// Module is a runtime dependency and the license it is distributed under.
type Module struct {
	Path    string
	License string
	Version string
}

// URL is where the module's sources and license text can be read.
func (m Module) URL() string {
	return "https://pkg.go.dev/" + m.Path + "?tab=licenses"
}

var direct = []Module{
	{Path: "fyne.io/fyne/v2", License: "BSD-3-Clause"},
	{Path: "github.com/caarlos0/env/v11", License: "MIT"},
	{Path: "github.com/go-chi/chi/v5", License: "MIT"},
	{Path: "github.com/golang-jwt/jwt/v5", License: "MIT"},
	{Path: "github.com/google/uuid", License: "BSD-3-Clause"},
	{Path: "github.com/rivo/uniseg", License: "MIT"},
	{Path: "github.com/spf13/cobra", License: "Apache-2.0"},
	{Path: "github.com/spf13/pflag", License: "BSD-3-Clause"},
	{Path: "github.com/zalando/go-keyring", License: "MIT"},
	{Path: "golang.org/x/oauth2", License: "BSD-3-Clause"},
	{Path: "golang.org/x/sys", License: "BSD-3-Clause"},
	{Path: "golang.org/x/term", License: "BSD-3-Clause"},
	{Path: "golang.org/x/text", License: "BSD-3-Clause"},
}

// Modules lists the direct runtime dependencies with the version linked
// into this binary, or "unknown" when the binary carries no build info for
// that module.
func Modules() []Module {
	return withVersions(direct, buildVersions())
}

func buildVersions() map[string]string {
	versions := make(map[string]string)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return versions
	}
	for _, dep := range info.Deps {
		v := dep.Version
		if dep.Replace != nil && dep.Replace.Version != "" {
			v = dep.Replace.Version
		}
		versions[dep.Path] = v
	}
	return versions
}

func withVersions(mods []Module, versions map[string]string) []Module {
	out := make([]Module, len(mods))
	for i, m := range mods {
		m.Version = versions[m.Path]
		if m.Version == "" {
			m.Version = "unknown"
		}
		out[i] = m
	}
	return out
}
