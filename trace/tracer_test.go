package trace

import (
	"bytes"
	"strings"
	"testing"
)

func TestSwitchDisabledIsNoop(t *testing.T) {
	var buf bytes.Buffer
	tr := &Tracer{enabled: false, writer: &buf}
	tr.Switch(0, 1, "release", 0x0004)
	if buf.Len() != 0 {
		t.Errorf("expected no output while disabled, got %q", buf.String())
	}
}

func TestSwitchFormatsVecAndCause(t *testing.T) {
	var buf bytes.Buffer
	tr := &Tracer{enabled: true, writer: &buf}
	tr.Switch(2, 3, "round-robin", 0x0000)
	out := buf.String()
	if !strings.Contains(out, "2 -> 3") || !strings.Contains(out, "round-robin") || !strings.Contains(out, "vec=0x00") {
		t.Errorf("unexpected trace line: %q", out)
	}
}

func TestFilterGlobRestrictsCategory(t *testing.T) {
	var buf bytes.Buffer
	tr := &Tracer{enabled: true, filters: []string{"tick"}, writer: &buf}
	tr.Switch(0, 1, "release", 0)
	if buf.Len() != 0 {
		t.Errorf("expected switch traces to be filtered out, got %q", buf.String())
	}
	tr.Tick(42)
	if !strings.Contains(buf.String(), "TICK now=42") {
		t.Errorf("expected tick trace to pass the filter, got %q", buf.String())
	}
}
