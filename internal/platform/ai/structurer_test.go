package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type scriptedProvider struct {
	replies []string
	errs    []error
	calls   int
	lastReq CompletionRequest
}

func (p *scriptedProvider) Complete(_ context.Context, req CompletionRequest) (string, error) {
	i := p.calls
	p.calls++
	p.lastReq = req
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	var reply string
	if i < len(p.replies) {
		reply = p.replies[i]
	}
	return reply, err
}

func newTestStructurer(p Provider) *Structurer {
	return NewStructurer(p, zerolog.Nop(), WithBackoffBase(time.Microsecond))
}

func TestStructureSuccess(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		`{"subjective":"chest pain","objective":"bp 120/80","assessment":"stable","plan":"monitor"}`,
	}}
	s := newTestStructurer(p)

	sections, err := s.Structure(context.Background(), "Patient reports chest pain.", NoteTypeSOAP)
	if err != nil {
		t.Fatalf("Structure: %v", err)
	}
	if sections["subjective"] != "chest pain" {
		t.Errorf("subjective = %q", sections["subjective"])
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
	if !p.lastReq.JSONMode {
		t.Error("expected JSON mode request")
	}
}

func TestStructureRetriesTransientThenSucceeds(t *testing.T) {
	p := &scriptedProvider{
		errs:    []error{&TransientError{Err: errors.New("rate limited")}, nil},
		replies: []string{"", `{"subjective":"ok"}`},
	}
	s := newTestStructurer(p)

	sections, err := s.Structure(context.Background(), "text here ok", NoteTypeSOAP)
	if err != nil {
		t.Fatalf("Structure: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}
	if sections["plan"] != autoFill {
		t.Errorf("plan = %q, want auto-filled", sections["plan"])
	}
}

func TestStructureExhaustsRetryBudget(t *testing.T) {
	transient := &TransientError{Err: errors.New("upstream overloaded")}
	p := &scriptedProvider{errs: []error{transient, transient, transient, transient}}
	s := newTestStructurer(p)

	_, err := s.Structure(context.Background(), "text here ok", NoteTypeSOAP)
	if !errors.Is(err, ErrProviderExhausted) {
		t.Fatalf("err = %v, want ErrProviderExhausted", err)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want exactly 3", p.calls)
	}
}

func TestStructureMalformedJSONCountsAsTransient(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		"not json at all",
		`{"subjective":"ok"}`,
	}}
	s := newTestStructurer(p)

	if _, err := s.Structure(context.Background(), "text here ok", NoteTypeSOAP); err != nil {
		t.Fatalf("Structure: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}
}

func TestStructureFatalErrorDoesNotRetry(t *testing.T) {
	fatal := errors.New("invalid request")
	p := &scriptedProvider{errs: []error{fatal}}
	s := newTestStructurer(p)

	_, err := s.Structure(context.Background(), "text here ok", NoteTypeSOAP)
	if !errors.Is(err, fatal) {
		t.Fatalf("err = %v, want wrapped fatal error", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestStructureUnavailablePassthrough(t *testing.T) {
	p := &scriptedProvider{errs: []error{ErrProviderUnavailable}}
	s := newTestStructurer(p)

	_, err := s.Structure(context.Background(), "text here ok", NoteTypeSOAP)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestStructureCancelledDuringBackoff(t *testing.T) {
	transient := &TransientError{Err: errors.New("timeout")}
	p := &scriptedProvider{errs: []error{transient, transient, transient}}
	s := NewStructurer(p, zerolog.Nop(), WithBackoffBase(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Structure(ctx, "text here ok", NoteTypeSOAP)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Structure did not return after cancel")
	}
}

func TestRepairFillsMissingSections(t *testing.T) {
	out := Repair(map[string]any{
		"subjective": "headache",
		"objective":  "afebrile",
	}, RequiredKeys(NoteTypeSOAP))

	if out["subjective"] != "headache" {
		t.Errorf("subjective = %q", out["subjective"])
	}
	for _, key := range []string{"assessment", "plan"} {
		if out[key] != autoFill {
			t.Errorf("%s = %q, want %q", key, out[key], autoFill)
		}
	}
}

func TestRepairCoercesNonStringValues(t *testing.T) {
	out := Repair(map[string]any{
		"subjective": 42.0,
		"objective":  map[string]any{"bp": "120/80"},
		"assessment": []any{"stable", "improving"},
		"plan":       nil,
	}, RequiredKeys(NoteTypeSOAP))

	if out["subjective"] != "42" {
		t.Errorf("subjective = %q", out["subjective"])
	}
	if out["objective"] != `{"bp":"120/80"}` {
		t.Errorf("objective = %q", out["objective"])
	}
	if out["assessment"] != `["stable","improving"]` {
		t.Errorf("assessment = %q", out["assessment"])
	}
	if out["plan"] != "" {
		t.Errorf("plan = %q, want empty for null", out["plan"])
	}
}

func TestRepairKeepsEmptySections(t *testing.T) {
	out := Repair(map[string]any{
		"subjective": "", "objective": "afebrile",
	}, RequiredKeys(NoteTypeSOAP))

	if out["subjective"] != "" {
		t.Errorf("subjective = %q, an answered empty section must stay empty", out["subjective"])
	}
	if out["assessment"] != autoFill || out["plan"] != autoFill {
		t.Errorf("absent sections = %q, %q, want auto-filled", out["assessment"], out["plan"])
	}
}

func TestRepairKeepsExtraSections(t *testing.T) {
	out := Repair(map[string]any{
		"subjective": "a", "objective": "b", "assessment": "c", "plan": "d",
		"disposition": "home",
	}, RequiredKeys(NoteTypeSOAP))
	if out["disposition"] != "home" {
		t.Errorf("disposition = %q, extra sections must survive", out["disposition"])
	}
}

func TestSummarize(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		p := &scriptedProvider{replies: []string{"Stable course over three visits."}}
		s := newTestStructurer(p)
		got := s.Summarize(context.Background(), "note one\nnote two")
		if got != "Stable course over three visits." {
			t.Errorf("Summarize = %q", got)
		}
		if p.lastReq.JSONMode {
			t.Error("summary must not request JSON mode")
		}
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		p := &scriptedProvider{errs: []error{ErrProviderUnavailable}}
		s := newTestStructurer(p)
		if got := s.Summarize(context.Background(), "history"); got != summaryUnavailable {
			t.Errorf("Summarize = %q, want %q", got, summaryUnavailable)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		p := &scriptedProvider{errs: []error{&TransientError{Err: errors.New("timeout")}}}
		s := newTestStructurer(p)
		if got := s.Summarize(context.Background(), "history"); got != summaryFailed {
			t.Errorf("Summarize = %q, want %q", got, summaryFailed)
		}
		if p.calls != 1 {
			t.Errorf("calls = %d, summaries must not retry", p.calls)
		}
	})
}
