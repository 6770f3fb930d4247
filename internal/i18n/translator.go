// Package i18n renders notification template keys into display text for
// push delivery. Bundles are flat key/value JSON documents embedded at
// build time; interpolation replaces {{param}} placeholders with values
// from the notification metadata bag.
//
// Realtime delivery ships raw keys and lets clients localize; only the
// push path renders server-side, so a single default locale is loaded per
// process.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"freightline/internal/types"
)

//go:embed locales/*.json
var localeFS embed.FS

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en"

// Compile-time assertion that Bundle implements Translator.
var _ types.Translator = (*Bundle)(nil)

// Bundle is a loaded set of translation strings for one locale.
type Bundle struct {
	locale  string
	entries map[string]string
}

// Load reads the embedded bundle for the given locale.
func Load(locale string) (*Bundle, error) {
	if locale == "" {
		locale = DefaultLocale
	}

	raw, err := localeFS.ReadFile("locales/" + locale + ".json")
	if err != nil {
		return nil, fmt.Errorf("Load locale %s: %w", locale, err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("Load locale %s: %w", locale, err)
	}

	return &Bundle{locale: locale, entries: entries}, nil
}

// Locale returns the bundle's locale tag.
func (b *Bundle) Locale() string { return b.locale }

// Translate renders the template for key with params interpolated. Unknown
// keys fall back to the key itself so a missing translation degrades to a
// recognizable identifier instead of an empty push.
func (b *Bundle) Translate(key string, params types.Meta) string {
	template, ok := b.entries[key]
	if !ok {
		return key
	}
	return interpolate(template, params)
}

// interpolate substitutes {{name}} placeholders. Placeholders without a
// matching param are left intact.
func interpolate(template string, params types.Meta) string {
	if len(params) == 0 || !strings.Contains(template, "{{") {
		return template
	}

	values := params.Flatten()
	var sb strings.Builder
	sb.Grow(len(template))

	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			sb.WriteString(rest)
			break
		}
		close := strings.Index(rest[open:], "}}")
		if close < 0 {
			sb.WriteString(rest)
			break
		}
		close += open

		sb.WriteString(rest[:open])
		name := strings.TrimSpace(rest[open+2 : close])
		if v, ok := values[name]; ok {
			sb.WriteString(v)
		} else {
			sb.WriteString(rest[open : close+2])
		}
		rest = rest[close+2:]
	}

	return sb.String()
}
