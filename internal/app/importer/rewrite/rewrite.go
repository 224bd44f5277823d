// Package rewrite converts raw card templates and note fields into portable
// HTML fragments. It performs no I/O; media references are resolved through
// the AssetResolver supplied by the caller.
package rewrite

import (
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// AssetResolver maps a media filename referenced by a template to a public URL.
type AssetResolver interface {
	ResolveAsset(name string) (string, error)
}

var (
	placeholderRe = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)
	imageRe       = regexp.MustCompile(`(?i)<img\b[^>]*?\bsrc\s*=\s*(?:"([^"]*)"|'([^']*)'|([^"'\s>]+))[^>]*>`)
	soundRe       = regexp.MustCompile(`\[sound:(.+?)\]`)
	expressionRe  = regexp.MustCompile(`\{\{.*?\}\}`)
	answerRuleRe  = regexp.MustCompile(`(?i)<hr[^>]*?id\s*=\s*["']?answer["']?[^>]*>`)
	sourceNameRe  = regexp.MustCompile(`(?i)` + domain.SourceName)
	emptySideRe   = regexp.MustCompile(`^(?:<br>|&nbsp;|[\s\p{Zs}])*$`)
	labelSepRe    = regexp.MustCompile(`[-_\s]+`)
)

// Rewriter turns one template plus field bindings into an HTML fragment.
type Rewriter struct {
	log       *slog.Logger
	sanitizer *Sanitizer
}

// New creates a Rewriter. A nil sanitizer leaves the rewritten HTML as is.
func New(log *slog.Logger, sanitizer *Sanitizer) *Rewriter {
	return &Rewriter{
		log:       log.With("component", "rewrite"),
		sanitizer: sanitizer,
	}
}

// Rewrite runs the four rewrite passes in order: fields, assets, math, extras.
func (r *Rewriter) Rewrite(tmpl string, fieldNames, fieldValues []string, assets AssetResolver) string {
	out := SubstituteFields(tmpl, fieldNames, fieldValues)
	out = r.SubstituteAssets(out, assets)
	out = NormalizeMath(out)
	return RemoveExtras(out)
}

// Sides renders both card sides of in. It fails with domain.ErrEmptyCardSide
// when either side carries no visible content.
func (r *Rewriter) Sides(in domain.BuildInput, assets AssetResolver) (front, back string, err error) {
	front = r.Rewrite(in.FrontTemplate, in.FieldNames, in.FieldValues, assets)
	back = r.Rewrite(in.BackTemplate, in.FieldNames, in.FieldValues, assets)

	// The back is checked as well as the front; a blank back used to pass.
	// See DESIGN.md, emptiness check.
	if SideIsEmpty(front) || SideIsEmpty(back) {
		return "", "", fmt.Errorf("note %d: %w", in.NoteID, domain.ErrEmptyCardSide)
	}

	if r.sanitizer == nil {
		return front, back, nil
	}

	if front, err = r.sanitizer.Sanitize(front); err != nil {
		return "", "", fmt.Errorf("note %d front: %w", in.NoteID, err)
	}
	if back, err = r.sanitizer.Sanitize(back); err != nil {
		return "", "", fmt.Errorf("note %d back: %w", in.NoteID, err)
	}
	return front, back, nil
}

// SubstituteFields replaces every {{ name }} placeholder with the value bound
// to name. Values are positional against names. Inserted values are never
// rescanned, so a value containing a placeholder cannot expand further.
// Placeholders with no binding are left untouched.
func SubstituteFields(tmpl string, fieldNames, fieldValues []string) string {
	bindings := make(map[string]string, len(fieldNames))
	for i, value := range fieldValues {
		if i >= len(fieldNames) {
			break
		}
		if _, ok := bindings[fieldNames[i]]; !ok {
			bindings[fieldNames[i]] = value
		}
	}

	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if value, ok := bindings[name]; ok {
			return value
		}
		return m
	})
}

// SubstituteAssets rewrites image and sound references into <figure><img> and
// <audio> elements pointing at resolved URLs. A reference that fails to
// resolve is logged and left as is.
func (r *Rewriter) SubstituteAssets(tmpl string, assets AssetResolver) string {
	out := imageRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := strings.TrimSpace(firstGroup(imageRe.FindStringSubmatch(m)))
		if name == "" {
			return m
		}
		url, ok := r.resolve(assets, name)
		if !ok {
			return m
		}
		return fmt.Sprintf(`<figure class="image"><img src="%s" alt="%s"></figure>`,
			url, template.HTMLEscapeString(AssetLabel(name)))
	})

	return soundRe.ReplaceAllStringFunc(out, func(m string) string {
		name := strings.TrimSpace(soundRe.FindStringSubmatch(m)[1])
		url, ok := r.resolve(assets, name)
		if !ok {
			return m
		}
		return fmt.Sprintf(`<audio src="%s"></audio>`, url)
	})
}

func firstGroup(match []string) string {
	for _, g := range match[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func (r *Rewriter) resolve(assets AssetResolver, name string) (string, bool) {
	if assets == nil {
		return "", false
	}

	r.log.Debug("found asset in card template", slog.String("name", name))

	url, err := assets.ResolveAsset(name)
	if err != nil {
		r.log.Warn("asset left unresolved",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return "", false
	}

	r.log.Debug("resolved asset url", slog.String("name", name), slog.String("url", url))
	return url, true
}

// RemoveExtras strips leftover template expressions, the answer divider and
// the source application's name, then trims surrounding whitespace.
func RemoveExtras(tmpl string) string {
	out := expressionRe.ReplaceAllString(tmpl, "")
	out = answerRuleRe.ReplaceAllString(out, " ")
	out = sourceNameRe.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// SideIsEmpty reports whether side consists only of <br>, &nbsp; and whitespace.
func SideIsEmpty(side string) bool {
	return emptySideRe.MatchString(side)
}

// AssetLabel derives an accessible label from a media filename:
// "my_cat-photo.final.png" becomes "My cat photo.final".
func AssetLabel(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return domain.CapitalizeFirst(labelSepRe.ReplaceAllString(base, " "))
}
