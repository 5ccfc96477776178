package pack

import (
	"testing"
)

func TestOptionsMerge(t *testing.T) {
	boolPtr := func(v bool) *bool { return &v }
	base := &Options{
		Target: "browser",
		Define: map[string]any{"A": 1.0, "B": 2.0},
	}
	base.Resolve.Alias = map[string]string{"~": "src"}
	base.Resolve.Extensions = []string{"", ".js"}
	base.URL.Inline = 100

	override := &Options{
		Define: map[string]any{"B": 3.0, "C": 4.0},
	}
	override.Resolve.Alias = map[string]string{"@": "app"}
	override.Resolve.Extensions = []string{"", ".ts"}
	override.Resolve.CommonJS = boolPtr(false)
	override.Output.SourceMap = true

	merged := base.clone()
	merged.merge(override)

	// maps merge key by key
	if merged.Resolve.Alias["~"] != "src" || merged.Resolve.Alias["@"] != "app" {
		t.Fatalf("alias merge = %v", merged.Resolve.Alias)
	}
	if merged.Define["A"] != 1.0 || merged.Define["B"] != 3.0 || merged.Define["C"] != 4.0 {
		t.Fatalf("define merge = %v", merged.Define)
	}
	// slices replace wholesale
	if len(merged.Resolve.Extensions) != 2 || merged.Resolve.Extensions[1] != ".ts" {
		t.Fatalf("extensions merge = %v", merged.Resolve.Extensions)
	}
	// scalars only overwrite when set
	if merged.Target != "browser" {
		t.Fatalf("target = %q", merged.Target)
	}
	if merged.Resolve.CommonJS == nil || *merged.Resolve.CommonJS {
		t.Fatal("commonjs override lost")
	}
	if !merged.Output.SourceMap {
		t.Fatal("sourceMap override lost")
	}
	// the base is untouched
	if _, ok := base.Define["C"]; ok {
		t.Fatal("merge mutated the base options")
	}
}

func TestPerFileOverrides(t *testing.T) {
	base := &Options{
		URL: URLOptions{Inline: 100},
		Module: map[string]*Options{
			`\.css$`:   {URL: URLOptions{Inline: 5000}},
			"legacy.*": {Target: "requirejs"},
		},
	}
	css := base.optionsFor(NewFile("/site/style.css", nil))
	if css.URL.Inline != 5000 {
		t.Fatalf("css inline = %d", css.URL.Inline)
	}
	js := base.optionsFor(NewFile("/site/app.js", nil))
	if js.URL.Inline != 100 || js.Target != "" {
		t.Fatalf("js options changed: inline=%d target=%q", js.URL.Inline, js.Target)
	}
	legacy := base.optionsFor(NewFile("/site/legacy.js", nil))
	if legacy.Target != "requirejs" {
		t.Fatalf("legacy target = %q", legacy.Target)
	}
}

func TestTargetDefaults(t *testing.T) {
	web := &Options{}
	if got := web.packageMains(); got[0] != "browser" {
		t.Fatalf("web package mains = %v", got)
	}
	if got := web.modulesDirectories(); got[0] != "web_modules" {
		t.Fatalf("web modules dirs = %v", got)
	}
	if got := web.extensions(); len(got) != 5 || got[3] != ".css" {
		t.Fatalf("web extensions = %v", got)
	}

	node := &Options{Target: "nodejs"}
	if got := node.packageMains(); len(got) != 1 || got[0] != "main" {
		t.Fatalf("node package mains = %v", got)
	}
	if got := node.modulesDirectories(); len(got) != 1 || got[0] != "node_modules" {
		t.Fatalf("node modules dirs = %v", got)
	}
	if got := node.extensions(); got[1] != ".node" {
		t.Fatalf("node extensions = %v", got)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name string
		want Target
		ok   bool
	}{
		{"browser", TargetBrowser, true},
		{"NodeJS", TargetNodejs, true},
		{"TPACK", TargetTpack, true},
		{"requirejs", TargetRequirejs, true},
		{" node ", TargetNodejs, true},
		{"martian", TargetUnknown, false},
	}
	for _, tt := range tests {
		got, ok := ParseTarget(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseTarget(%q) = %v, %v", tt.name, got, ok)
		}
	}
}
