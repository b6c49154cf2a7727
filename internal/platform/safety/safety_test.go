package safety

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newValidator() *Validator {
	return NewValidator(zerolog.Nop())
}

func TestValidate_ObservationalTextPasses(t *testing.T) {
	texts := []string{
		"Patient reports mild cough and congestion for three days.",
		"Vitals: T 98.6, BP 120/80. Lungs clear to auscultation.",
		"Clinician plans to start amoxicillin per documented order.",
		"Prescription noted for lisinopril 10mg daily.",
	}
	v := newValidator()
	for _, text := range texts {
		ok, violations := v.Validate(text)
		if !ok {
			t.Errorf("Validate(%q) rejected with %v, want safe", text, violations)
		}
	}
}

func TestValidate_PrescriptiveLanguageRejected(t *testing.T) {
	tests := []struct {
		text   string
		reason string
	}{
		{"I recommend increasing the dose", "Recommendation detected"},
		{"We suggest a follow-up MRI", "Suggestion detected"},
		{"I advise bed rest", "Advice detected"},
		{"Patient should take ibuprofen twice daily", "Prescriptive language ('should') detected"},
		{"Will prescribe antibiotics", "Prescription action detected"},
		{"I guarantee full recovery", "Prognostic guarantee detected"},
		{"Patient will recover within a week", "Prediction of recovery detected"},
		{"Try taking antacids before meals", "Treatment suggestion detected"},
	}

	v := newValidator()
	for _, tt := range tests {
		ok, violations := v.Validate(tt.text)
		if ok {
			t.Errorf("Validate(%q) passed, want rejection", tt.text)
			continue
		}
		found := false
		for _, reason := range violations {
			if reason == tt.reason {
				found = true
			}
		}
		if !found {
			t.Errorf("Validate(%q) violations = %v, want to include %q", tt.text, violations, tt.reason)
		}
	}
}

func TestValidate_ReportsAllViolationsInOrder(t *testing.T) {
	v := newValidator()
	ok, violations := v.Validate("I recommend you try taking something, I guarantee it helps")
	if ok {
		t.Fatal("expected rejection")
	}

	want := []string{
		"Recommendation detected",
		"Prognostic guarantee detected",
		"Treatment suggestion detected",
	}
	if len(violations) != len(want) {
		t.Fatalf("violations = %v, want %v", violations, want)
	}
	for i := range want {
		if violations[i] != want[i] {
			t.Errorf("violations[%d] = %q, want %q (table order)", i, violations[i], want[i])
		}
	}
}

func TestValidate_CaseInsensitive(t *testing.T) {
	v := newValidator()
	if ok, _ := v.Validate("I RECOMMEND rest"); ok {
		t.Error("expected uppercase prescriptive language to be rejected")
	}
}

func TestSanitize_Rewrites(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"patient should take the medication", "Patient to take the medication"},
		{"We recommend starting therapy", "We Consideration for starting therapy"},
		{"The prognosis is good overall", "The Prognosis appears favorable overall"},
		{"No borderline phrasing here", "No borderline phrasing here"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_DoesNotBypassValidation(t *testing.T) {
	v := newValidator()
	text := "I recommend increasing the dose"
	sanitized := Sanitize(text)
	if ok, _ := v.Validate(sanitized); ok {
		t.Error("sanitize must not neutralize a hard validation failure")
	}
}

func TestSnippet_Truncates(t *testing.T) {
	long := strings.Repeat("a", 500)
	if got := Snippet(long); len(got) != 100 {
		t.Errorf("Snippet length = %d, want 100", len(got))
	}
	if got := Snippet("short"); got != "short" {
		t.Errorf("Snippet(short) = %q", got)
	}
}
