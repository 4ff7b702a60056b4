package engine

import "testing"

func TestParseFallbackMode(t *testing.T) {
	tests := []struct {
		in      string
		want    FallbackMode
		wantErr bool
	}{
		{"", FallbackBlock, false},
		{"block", FallbackBlock, false},
		{"strict", FallbackStrict, false},
		{"placeholder", FallbackPlaceholder, false},
		{"lenient", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFallbackMode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFallbackMode(%q) err = nil, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFallbackMode(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFallbackMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecideFallback(t *testing.T) {
	tests := []struct {
		name  string
		mode  FallbackMode
		known bool
		want  FallbackAction
	}{
		{"strict unknown", FallbackStrict, false, ActionNotFound},
		{"strict known", FallbackStrict, true, ActionBlock},
		{"block unknown", FallbackBlock, false, ActionBlock},
		{"block known", FallbackBlock, true, ActionBlock},
		{"placeholder unknown", FallbackPlaceholder, false, ActionPlaceholder},
		{"placeholder known", FallbackPlaceholder, true, ActionBlock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideFallback(tt.mode, tt.known); got != tt.want {
				t.Errorf("DecideFallback(%v, %v) = %v, want %v", tt.mode, tt.known, got, tt.want)
			}
		})
	}
}

func TestFallbackModeString(t *testing.T) {
	tests := []struct {
		mode FallbackMode
		want string
	}{
		{FallbackBlock, "block"},
		{FallbackStrict, "strict"},
		{FallbackPlaceholder, "placeholder"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
