package summarizer

import (
	"reflect"
	"testing"
)

func TestParseWellFormed(t *testing.T) {
	t.Parallel()

	got := Parse("FINAL SUMMARY:\nAlpha beta.\nKEY CONCEPTS:\n- one\n- two\n")
	if got.Summary != "Alpha beta." {
		t.Fatalf("unexpected summary: %q", got.Summary)
	}
	if !reflect.DeepEqual(got.KeyConcepts, []string{"one", "two"}) {
		t.Fatalf("unexpected concepts: %#v", got.KeyConcepts)
	}
	if !got.Structured {
		t.Fatalf("expected structured result")
	}
}

func TestParseMarkerVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		summary  string
		concepts []string
	}{
		{
			name:     "case insensitive markers",
			raw:      "Final Summary:\nP1.\n\nP2.\n\nkey concepts:\n* Attention\n• Transformers\n",
			summary:  "P1.\n\nP2.",
			concepts: []string{"Attention", "Transformers"},
		},
		{
			name:     "numbered items and noise lines",
			raw:      "Preamble\nFINAL SUMMARY: Inline summary.\nKEY CONCEPTS:\nHere they are:\n1. Graphs\n2.Embeddings\n\n   3.   Sparse attention  \n",
			summary:  "Inline summary.",
			concepts: []string{"Graphs", "Embeddings", "Sparse attention"},
		},
		{
			name:     "markdown headings",
			raw:      "**FINAL SUMMARY:**\nBold summary.\n\n**KEY CONCEPTS:**\n- Alpha\n- \n- Beta",
			summary:  "Bold summary.",
			concepts: []string{"Alpha", "Beta"},
		},
		{
			name:     "trailing asterisk in summary text survives",
			raw:      "FINAL SUMMARY:\nSignificant at p < 0.05*\nKEY CONCEPTS:\n- statistics\n",
			summary:  "Significant at p < 0.05*",
			concepts: []string{"statistics"},
		},
		{
			name:     "emphasis inside summary is kept",
			raw:      "**FINAL SUMMARY:** *Sparse* attention scales **linearly**\n**KEY CONCEPTS:**\n* Sparsity\n",
			summary:  "*Sparse* attention scales **linearly**",
			concepts: []string{"Sparsity"},
		},
		{
			name:     "duplicates are kept",
			raw:      "FINAL SUMMARY:\nS\nKEY CONCEPTS:\n- x\n- x\n",
			summary:  "S",
			concepts: []string{"x", "x"},
		},
		{
			name:     "no concept lines",
			raw:      "FINAL SUMMARY:\nS\nKEY CONCEPTS:\nnone listed",
			summary:  "S",
			concepts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Parse(tt.raw)
			if got.Summary != tt.summary {
				t.Fatalf("summary: got %q, want %q", got.Summary, tt.summary)
			}
			if !reflect.DeepEqual(got.KeyConcepts, tt.concepts) {
				t.Fatalf("concepts: got %#v, want %#v", got.KeyConcepts, tt.concepts)
			}
		})
	}
}

func TestParseFallback(t *testing.T) {
	t.Parallel()

	raws := []string{
		"The model ignored the format entirely.",
		"FINAL SUMMARY:\nonly a summary, no concepts",
		"KEY CONCEPTS:\n- a\nFINAL SUMMARY:\nreversed",
		"",
	}
	for _, raw := range raws {
		got := Parse(raw)
		if got.Summary != raw {
			t.Fatalf("expected raw text as summary, got %q", got.Summary)
		}
		if got.KeyConcepts == nil || len(got.KeyConcepts) != 0 {
			t.Fatalf("expected empty concepts, got %#v", got.KeyConcepts)
		}
		if got.Structured {
			t.Fatalf("fallback must not be marked structured")
		}
	}
}
