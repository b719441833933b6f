package language

import (
	"sort"
	"strings"
	"time"

	textlang "golang.org/x/text/language"
)

// Language is a translation target returned by the service.
type Language struct {
	Code string // Wire key in the translation response
	Name string
	Tag  textlang.Tag
}

var (
	Japanese = Language{Code: "japanese", Name: "Japanese", Tag: textlang.Japanese}
	Chinese  = Language{Code: "chinese", Name: "Chinese", Tag: textlang.SimplifiedChinese}
)

// Languages maps wire keys to the supported targets.
var Languages = map[string]Language{
	Japanese.Code: Japanese,
	Chinese.Code:  Chinese,
}

// Targets lists the targets in display order.
var Targets = []Language{Japanese, Chinese}

var tagMatcher = textlang.NewMatcher([]textlang.Tag{Japanese.Tag, Chinese.Tag})

// GetLanguage matches a wire key or name case-insensitively, or a BCP 47
// tag such as "ja-JP" or "zh-CN".
func GetLanguage(input string) (Language, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if lang, ok := Languages[needle]; ok {
		return lang, true
	}
	for _, lang := range Languages {
		if strings.ToLower(lang.Name) == needle {
			return lang, true
		}
	}
	tag, err := textlang.Parse(needle)
	if err != nil {
		return Language{}, false
	}
	_, idx, conf := tagMatcher.Match(tag)
	if conf < textlang.High {
		return Language{}, false
	}
	return Targets[idx], true
}

// GetSupportedLanguages returns the targets sorted by Name.
func GetSupportedLanguages() []Language {
	out := make([]Language, 0, len(Languages))
	for _, lang := range Languages {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Greeting returns a time-of-day greeting in the target language.
// Morning is 05:00-10:59, afternoon 11:00-17:59, evening otherwise.
func (l Language) Greeting(now time.Time) string {
	period := 2
	switch h := now.Hour(); {
	case h >= 5 && h <= 10:
		period = 0
	case h >= 11 && h <= 17:
		period = 1
	}
	switch l.Code {
	case Japanese.Code:
		return [...]string{"おはようございます。", "こんにちは。", "こんばんは。"}[period]
	case Chinese.Code:
		return [...]string{"早上好。", "下午好。", "晚上好。"}[period]
	default:
		return ""
	}
}
