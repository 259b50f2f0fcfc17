// Package locale validates the display languages supported by handctl.
package locale

import (
	"fmt"

	"golang.org/x/text/language"
)

// Default is used when no language was configured.
const Default = "en"

// Language is a supported display language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Supported lists the languages in the order they are offered to the user.
var Supported = []Language{
	{Code: "en", Name: "English"},
	{Code: "hi", Name: "Hindi"},
	{Code: "ta", Name: "Tamil"},
	{Code: "te", Name: "Telugu"},
	{Code: "ml", Name: "Malayalam"},
}

// Normalize parses a BCP 47 tag (e.g. "ta-IN", "HI") and returns the
// supported base language code it refers to.
func Normalize(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", code, err)
	}

	base, _ := tag.Base()
	for _, l := range Supported {
		if l.Code == base.String() {
			return l.Code, nil
		}
	}

	return "", fmt.Errorf("unsupported language %q", code)
}

// Name returns the English name of a supported language code, or the code
// itself when unknown.
func Name(code string) string {
	for _, l := range Supported {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}
