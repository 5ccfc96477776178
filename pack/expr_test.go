package pack

import (
	"testing"
)

func TestEvalExpr(t *testing.T) {
	defines := map[string]any{
		"DEBUG":   false,
		"RELEASE": true,
		"VERSION": 2.0,
		"NAME":    "app",
		"NOTHING": nil,
	}
	lookup := func(name string) any {
		return defines[name]
	}
	tests := []struct {
		expr string
		want any
	}{
		{"1 + 2", 3.0},
		{"2 * 3 + 4", 10.0},
		{"2 + 3 * 4", 14.0},
		{"(2 + 3) * 4", 20.0},
		{"10 / 4", 2.5},
		{"7 - 2 - 1", 4.0},
		{"-3 + 5", 2.0},
		{"0x10", 16.0},
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"3 >= 4", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"'a' == \"a\"", true},
		{"'a' + 'b'", "ab"},
		{"'v' + 2", "v2"},
		{"true && false", false},
		{"true || false", true},
		{"!true", false},
		{"!0", false},
		{"DEBUG || RELEASE", true},
		{"VERSION >= 2", true},
		{"NAME == 'app'", true},
		{"NAME == 'app' && VERSION > 1", true},
		{"NOTHING == null", true},
		{"UNDEFINED_IDENT == null", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalExpr(tt.expr, lookup)
			if err != nil {
				t.Fatalf("evalExpr(%q): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Fatalf("evalExpr(%q) = %v (%T), want %v", tt.expr, got, got, tt.want)
			}
		})
	}
}

func TestEvalExprErrors(t *testing.T) {
	lookup := func(name string) any { return nil }
	for _, expr := range []string{
		"1 +",
		"(1 + 2",
		"'unterminated",
		"1 / 0",
		"@",
	} {
		t.Run(expr, func(t *testing.T) {
			if _, err := evalExpr(expr, lookup); err == nil {
				t.Fatalf("evalExpr(%q) did not fail", expr)
			}
		})
	}
}

func TestTruthiness(t *testing.T) {
	// only false and null are falsy; 0 and "" follow the `!== false` rule
	tests := []struct {
		value any
		want  bool
	}{
		{false, false},
		{nil, false},
		{true, true},
		{0.0, true},
		{"", true},
		{"x", true},
	}
	for _, tt := range tests {
		if got := isTruthy(tt.value); got != tt.want {
			t.Errorf("isTruthy(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
