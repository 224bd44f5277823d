package rewrite

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// Sanitizer strips unsafe markup from rewritten card sides.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the card-side policy: user generated content plus the
// elements produced by asset and math rewriting.
func NewSanitizer() *Sanitizer {
	policy := bluemonday.UGCPolicy().
		AllowElements("figure", "img", "audio", "math", "span").
		AllowAttrs("class").OnElements("figure", "span").
		AllowAttrs("src", "alt").OnElements("img").
		AllowAttrs("src", "controls").OnElements("audio")

	return &Sanitizer{policy: policy}
}

// Sanitize returns the cleaned fragment. A fragment that is empty once unsafe
// markup is removed fails with domain.ErrEmptyCardSide.
func (s *Sanitizer) Sanitize(input string) (string, error) {
	sanitized := s.policy.Sanitize(input)
	if strings.TrimSpace(sanitized) == "" {
		return "", fmt.Errorf("sanitize: %w", domain.ErrEmptyCardSide)
	}
	return sanitized, nil
}
