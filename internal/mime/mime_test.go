package mime

import (
	"testing"
)

func TestGetContentType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"a.js", "application/javascript; charset=utf-8"},
		{"a.json", "application/json; charset=utf-8"},
		{"a.css", "text/css; charset=utf-8"},
		{"a.PNG", "image/png"},
		{"a.woff2", "font/woff2"},
		{"a.unknown", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := GetContentType(tt.filename); got != tt.want {
			t.Errorf("GetContentType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestDataURIType(t *testing.T) {
	if got := DataURIType("icon.png"); got != "image/png" {
		t.Errorf("DataURIType(icon.png) = %q", got)
	}
	if got := DataURIType("a.svg"); got != "image/svg+xml" {
		t.Errorf("DataURIType(a.svg) = %q", got)
	}
}

func TestIsText(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"a.js", true},
		{"a.css", true},
		{"a.svg", true},
		{"a.png", false},
		{"a.woff2", false},
		{"a.bin", false},
	}
	for _, tt := range tests {
		if got := IsText(tt.filename); got != tt.want {
			t.Errorf("IsText(%q) = %v", tt.filename, got)
		}
	}
}
