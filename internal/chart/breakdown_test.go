package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestProportions(t *testing.T) {
	got := Proportions([]Segment{{"a", 3}, {"b", 1}, {"c", -2}})
	want := []float64{0.75, 0.25, 0}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("Proportions mismatch (-want +got):\n%s", diff)
	}
	zero := Proportions([]Segment{{"a", 0}, {"b", 0}})
	if diff := cmp.Diff([]float64{0, 0}, zero); diff != "" {
		t.Fatalf("expected zeros (-want +got):\n%s", diff)
	}
}

func TestRenderBreakdown(t *testing.T) {
	var buf bytes.Buffer
	err := RenderBreakdown(&buf, "Stages", []Segment{
		{Label: "Light", Value: 3},
		{Label: "Deep", Value: 1},
	}, 8, "h")
	if err != nil {
		t.Fatalf("RenderBreakdown failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "Stages" {
		t.Fatalf("unexpected title %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Light ██████  ") || !strings.HasSuffix(lines[1], "75.0% 3.00h") {
		t.Fatalf("unexpected light row %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Deep  ██      ") || !strings.HasSuffix(lines[2], "25.0% 1.00h") {
		t.Fatalf("unexpected deep row %q", lines[2])
	}
}
