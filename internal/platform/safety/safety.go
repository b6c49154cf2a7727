// Package safety screens clinical note text for language that turns
// documentation into medical advice: prescriptive phrasing, dosage
// suggestions, and prognostic guarantees. Notes are documentation only;
// text that directs care is rejected before it reaches the record.
package safety

import (
	"regexp"

	"github.com/rs/zerolog"
)

// rule pairs a forbidden pattern with the reason reported to the clinician.
type rule struct {
	pattern *regexp.Regexp
	reason  string
}

// unsafeRules is evaluated exhaustively and in order, so a rejection carries
// every applicable reason, always in the same order.
var unsafeRules = []rule{
	{regexp.MustCompile(`(?i)\b(i )?recommend\b`), "Recommendation detected"},
	{regexp.MustCompile(`(?i)\b(i )?suggest\b`), "Suggestion detected"},
	{regexp.MustCompile(`(?i)\b(i )?advise\b`), "Advice detected"},
	{regexp.MustCompile(`(?i)\bshould (take|start|stop|increase|decrease|continue)\b`), "Prescriptive language ('should') detected"},
	{regexp.MustCompile(`(?i)\bprescribe\b`), "Prescription action detected"},
	{regexp.MustCompile(`(?i)\bguarantee\b`), "Prognostic guarantee detected"},
	{regexp.MustCompile(`(?i)\bwill recover\b`), "Prediction of recovery detected"},
	{regexp.MustCompile(`(?i)\btry taking\b`), "Treatment suggestion detected"},
}

// rewrite is a sanitization rule: borderline phrasing and its softened form.
type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

var sanitizeRules = []rewrite{
	{regexp.MustCompile(`(?i)\bpatient should take\b`), "Patient to take"},
	{regexp.MustCompile(`(?i)\brecommend starting\b`), "Consideration for starting"},
	{regexp.MustCompile(`(?i)\bprognosis is good\b`), "Prognosis appears favorable"},
}

// snippetLimit bounds how much note text may appear in logs.
const snippetLimit = 100

// Validator checks note text against the unsafe-language rule table.
type Validator struct {
	logger zerolog.Logger
}

func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate reports whether text is safe to store as documentation. When it is
// not, the returned reasons list one entry per matched rule, in rule-table
// order. Evaluation never short-circuits: a clinician sees every violation in
// a single pass.
func (v *Validator) Validate(text string) (bool, []string) {
	var violations []string
	for _, r := range unsafeRules {
		if r.pattern.MatchString(text) {
			violations = append(violations, r.reason)
		}
	}

	if len(violations) > 0 {
		v.logger.Warn().
			Strs("violations", violations).
			Str("snippet", Snippet(text)).
			Msg("safety violation detected")
		return false, violations
	}

	return true, nil
}

// Sanitize rewrites borderline phrasing into documentation style. It is an
// explicit opt-in transform: it is never applied automatically and a text
// that fails Validate stays rejected whether or not it was sanitized first.
func Sanitize(text string) string {
	safe := text
	for _, r := range sanitizeRules {
		safe = r.pattern.ReplaceAllString(safe, r.replacement)
	}
	return safe
}

// Snippet truncates text for log output so full clinical narratives never
// land in log storage.
func Snippet(text string) string {
	if len(text) <= snippetLimit {
		return text
	}
	return text[:snippetLimit]
}
