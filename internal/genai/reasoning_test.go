package genai

import "testing"

func TestStripReasoning(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no markers unchanged", "  Admission opens in June.\n", "  Admission opens in June.\n"},
		{"leading reasoning", "<think>the user asks about fees</think>\n\nFees are listed below.", "Fees are listed below."},
		{"multiline reasoning", "<think>\nstep 1\nstep 2\n</think>Answer", "Answer"},
		{"multiple spans", "<think>a</think>One <think>b</think>two", "One two"},
		{"unclosed marker unchanged", "<think>never closed", "<think>never closed"},
		{"interleaved markers", "<thi<think>x</think>nk>y</think>Done", "Done"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			once := StripReasoning(tt.in)
			if once != tt.want {
				t.Errorf("StripReasoning(%q) = %q, want %q", tt.in, once, tt.want)
			}
			if twice := StripReasoning(once); twice != once {
				t.Errorf("not idempotent: %q -> %q", once, twice)
			}
		})
	}
}
