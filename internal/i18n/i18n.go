// Package i18n localizes verdict labels, report headers and API error
// messages.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/pavelanni/bandscore/internal/model"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

var (
	bundle      *i18n.Bundle
	defaultLang = "en"
	supported   []language.Tag
	matcher     language.Matcher
)

// Init loads every embedded locale and makes lang the fallback language.
func Init(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	// The default goes first so that it wins when nothing matches.
	tags := []language.Tag{tag}
	for _, t := range b.LanguageTags() {
		if t != tag {
			tags = append(tags, t)
		}
	}
	bundle = b
	defaultLang = tag.String()
	supported = tags
	matcher = language.NewMatcher(tags)
	return nil
}

// NewLocalizer creates a localizer preferring the given languages in order.
func NewLocalizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(bundle, append(langs, defaultLang)...)
}

// Negotiate picks the best supported language for an Accept-Language value.
func Negotiate(acceptLanguage string) string {
	if matcher == nil {
		return defaultLang
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return defaultLang
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return defaultLang
	}
	return supported[idx].String()
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func localizerFromCtx(ctx context.Context) *i18n.Localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer); ok {
		return loc
	}
	return NewLocalizer()
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
}

// Tp translates a pluralized message by ID.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	s, err := localizerFromCtx(ctx).Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		return cfg.MessageID
	}
	return s
}

// Verdict returns the display label of a verdict.
func Verdict(ctx context.Context, v model.Verdict) string {
	switch v {
	case model.VerdictCorrect:
		return T(ctx, "VerdictCorrect")
	case model.VerdictIncorrect:
		return T(ctx, "VerdictIncorrect")
	default:
		return T(ctx, "VerdictUnanswered")
	}
}

// Grade returns the display label of a manual grade.
func Grade(ctx context.Context, g model.ManualGrade) string {
	switch g {
	case model.GradeCorrect:
		return T(ctx, "GradeCorrect")
	case model.GradeIncorrect:
		return T(ctx, "GradeIncorrect")
	default:
		return T(ctx, "GradeAuto")
	}
}

// Band returns the display label of a band, with a placeholder for no band.
func Band(ctx context.Context, b model.Band) string {
	if !b.OK {
		return T(ctx, "NoBand")
	}
	return Td(ctx, "BandN", map[string]any{"Band": b.String()})
}
