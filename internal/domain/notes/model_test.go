package notes

import (
	"strings"
	"testing"

	"github.com/clinscribe/clinscribe/internal/platform/ai"
)

func TestCreateNoteInputValidate(t *testing.T) {
	valid := func() CreateNoteInput {
		return CreateNoteInput{
			Title:      "Visit note",
			RawContent: "Patient presents with mild cough, afebrile, lungs clear.",
			NoteType:   ai.NoteTypeProgress,
		}
	}

	t.Run("valid", func(t *testing.T) {
		in := valid()
		if err := in.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("empty type defaults to SOAP", func(t *testing.T) {
		in := valid()
		in.NoteType = ""
		if err := in.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if in.NoteType != ai.NoteTypeSOAP {
			t.Errorf("note type = %q", in.NoteType)
		}
	})

	t.Run("boundary lengths", func(t *testing.T) {
		in := valid()
		in.RawContent = strings.Repeat("a", minRawLength)
		if err := in.Validate(); err != nil {
			t.Errorf("min length rejected: %v", err)
		}
		in.RawContent = strings.Repeat("a", minRawLength-1)
		if err := in.Validate(); err == nil {
			t.Error("below min length accepted")
		}
		in.RawContent = strings.Repeat("a", maxRawLength)
		if err := in.Validate(); err != nil {
			t.Errorf("max length rejected: %v", err)
		}
		in.RawContent = strings.Repeat("a", maxRawLength+1)
		if err := in.Validate(); err == nil {
			t.Error("above max length accepted")
		}
	})
}

func TestUpdateNoteInputValidate(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		in := UpdateNoteInput{}
		if err := in.Validate(); err == nil {
			t.Error("empty update accepted")
		}
	})

	t.Run("bad status", func(t *testing.T) {
		in := UpdateNoteInput{Status: strPtr("archived")}
		if err := in.Validate(); err == nil {
			t.Error("unknown status accepted")
		}
	})

	t.Run("valid status", func(t *testing.T) {
		in := UpdateNoteInput{Status: strPtr(StatusFinalized)}
		if err := in.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("blank title", func(t *testing.T) {
		in := UpdateNoteInput{Title: strPtr("   ")}
		if err := in.Validate(); err == nil {
			t.Error("blank title accepted")
		}
	})
}
