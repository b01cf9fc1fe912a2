package sweep_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mlgruby/homelab/sweep"
)

func TestConfirm(t *testing.T) {
	for _, testCase := range []struct {
		input   string
		consent bool
	}{
		{input: "y\n", consent: true},
		{input: "Y\n", consent: true},
		{input: "yes\n", consent: true},
		{input: "YES\n", consent: true},
		{input: "  y  \n", consent: true},
		{input: "n\n", consent: false},
		{input: "no\n", consent: false},
		{input: "\n", consent: false},
		{input: "yeah\n", consent: false},
		{input: "", consent: false}, // EOF counts as a refusal
	} {
		tc := testCase
		t.Run(strings.TrimSpace(tc.input)+"/", func(t *testing.T) {
			out := &bytes.Buffer{}
			got := sweep.Confirm(strings.NewReader(tc.input), out, "Proceed with cleanup?")
			if got != tc.consent {
				t.Errorf("Confirm(%q) = %v, expected %v", tc.input, got, tc.consent)
			}
			if !strings.Contains(out.String(), "Proceed with cleanup? (y/N):") {
				t.Errorf("Expected the prompt to be printed, got %q", out.String())
			}
		})
	}
}
