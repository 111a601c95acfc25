// Package i18n translates message codes using the embedded catalogues.
// Spanish is the default; unknown codes translate to themselves.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"strings"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const Default = "es"

// Supported languages, default first.
var Supported = []string{"es", "en"}

var (
	bundleOnce sync.Once
	bundle     *goi18n.Bundle
	matcher    language.Matcher

	localizersMu sync.Mutex
	localizers   = map[string]*goi18n.Localizer{}
)

func load() {
	bundle = goi18n.NewBundle(language.Spanish)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	tags := make([]language.Tag, 0, len(Supported))
	for _, lang := range Supported {
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+lang+".json"); err != nil {
			panic("i18n: " + err.Error())
		}
		tags = append(tags, language.Make(lang))
	}
	matcher = language.NewMatcher(tags)
}

func localizer(lang string) *goi18n.Localizer {
	bundleOnce.Do(load)
	lang = Normalize(lang)
	localizersMu.Lock()
	defer localizersMu.Unlock()
	l, ok := localizers[lang]
	if !ok {
		l = goi18n.NewLocalizer(bundle, lang, Default)
		localizers[lang] = l
	}
	return l
}

// Normalize maps lang onto a supported language, falling back to Default.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	for _, s := range Supported {
		if s == lang {
			return s
		}
	}
	return Default
}

// T translates code; a missing code is returned unchanged.
func T(lang, code string) string {
	return Tf(lang, code, nil)
}

// Tf translates code with template data such as {"Reason": "..."}.
func Tf(lang, code string, data map[string]any) string {
	msg, err := localizer(lang).Localize(&goi18n.LocalizeConfig{
		MessageID:    code,
		TemplateData: data,
	})
	if err != nil || msg == "" {
		return code
	}
	return msg
}

// DetectLanguage picks the best supported language from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	bundleOnce.Do(load)
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return Supported[idx]
}

type langKey struct{}

// WithLang stores the request language.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, Normalize(lang))
}

// LangFromContext returns the request language or Default.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok && lang != "" {
		return lang
	}
	return Default
}
