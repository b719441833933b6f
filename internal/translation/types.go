package translation

import "strings"

// Request is the body of POST /translate.
type Request struct {
	Text string `json:"text"`
}

// Response is the body of a successful POST /translate.
type Response struct {
	Translations []Translation `json:"translations"`
}

// Translation is one sentence or phrase as segmented by the service.
type Translation struct {
	Original string          `json:"original"`
	Japanese LanguageDetails `json:"japanese"`
	Chinese  LanguageDetails `json:"chinese"`
}

type LanguageDetails struct {
	Translation   string    `json:"translation"`
	Pronunciation string    `json:"pronunciation"`
	Grammar       []string  `json:"grammar"`
	Examples      []Example `json:"examples"`
}

type Example struct {
	Phrase        string `json:"phrase"`
	Pronunciation string `json:"pronunciation"`
	Translation   string `json:"translation"`
}

// DisplayOriginal is the source sentence with surrounding whitespace removed.
func (t Translation) DisplayOriginal() string {
	return strings.TrimSpace(t.Original)
}

// wireResponse distinguishes a missing translations field from an empty one.
type wireResponse struct {
	Translations *[]Translation `json:"translations"`
}
