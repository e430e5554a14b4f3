package notifier

import (
	"embed"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

var localeFiles = []string{"active.en.toml", "active.es.toml"}

// Templates renders localized confirmation copy.
type Templates struct {
	bundle *i18n.Bundle
	locale language.Tag
}

// NewTemplates loads the embedded message files. Unknown locales fall back to English.
func NewTemplates(locale string) (*Templates, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, file := range localeFiles {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return &Templates{bundle: bundle, locale: tag}, nil
}

// Confirmation returns the subject and body for a check-in confirmation.
func (t *Templates) Confirmation(name, event string) (subject, body string, err error) {
	loc := i18n.NewLocalizer(t.bundle, t.locale.String(), language.English.String())
	if name == "" {
		if name, err = loc.Localize(&i18n.LocalizeConfig{MessageID: "ConfirmationGreetingFallback"}); err != nil {
			return "", "", fmt.Errorf("localize greeting: %w", err)
		}
	}
	data := map[string]any{"Name": name, "Event": event}
	if subject, err = loc.Localize(&i18n.LocalizeConfig{MessageID: "ConfirmationSubject", TemplateData: data}); err != nil {
		return "", "", fmt.Errorf("localize subject: %w", err)
	}
	if body, err = loc.Localize(&i18n.LocalizeConfig{MessageID: "ConfirmationBody", TemplateData: data}); err != nil {
		return "", "", fmt.Errorf("localize body: %w", err)
	}
	return subject, body, nil
}
