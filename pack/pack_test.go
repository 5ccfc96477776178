package pack

import (
	"os"
	"strings"
	"testing"
)

// testBuilder creates a build session over an in-memory filesystem keyed by
// slash paths.
func testBuilder(files map[string]string, options *Options) *Builder {
	b := NewBuilder(options)
	b.ExistsFile = func(name string) bool {
		_, ok := files[toSlash(name)]
		return ok
	}
	b.ExistsDir = func(name string) bool {
		prefix := strings.TrimSuffix(toSlash(name), "/") + "/"
		for k := range files {
			if strings.HasPrefix(k, prefix) {
				return true
			}
		}
		return false
	}
	b.ReadFile = func(name string) ([]byte, error) {
		if data, ok := files[toSlash(name)]; ok {
			return []byte(data), nil
		}
		return nil, os.ErrNotExist
	}
	return b
}

func mustModule(t *testing.T, b *Builder, filename string) *Module {
	t.Helper()
	m, err := b.GetModuleByPath(filename)
	if err != nil {
		t.Fatalf("load %s: %v", filename, err)
	}
	return m
}

func TestModuleTypeDetection(t *testing.T) {
	tests := []struct {
		filename string
		want     ModuleType
	}{
		{"index.html", ModuleHTML},
		{"page.SHTML", ModuleHTML},
		{"view.tpl", ModuleHTML},
		{"readme.md", ModuleText},
		{"app.js", ModuleJS},
		{"data.json", ModuleJSON},
		{"app.js.map", ModuleJSON},
		{"style.css", ModuleCSS},
		{"notes.txt", ModuleText},
		{"icon.png", ModuleBinary},
		{"font.woff2", ModuleBinary},
	}
	b := testBuilder(map[string]string{}, nil)
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			m := b.newModule(NewFile("/"+tt.filename, nil), b.options)
			if m.Type != tt.want {
				t.Errorf("type of %s = %s, want %s", tt.filename, m.Type, tt.want)
			}
		})
	}
}

func TestGetModuleMemoised(t *testing.T) {
	files := map[string]string{
		"/src/a.js": `var a = 1`,
	}
	b := testBuilder(files, nil)
	m1 := mustModule(t, b, "/src/a.js")
	m2 := mustModule(t, b, "/src/a.js")
	if m1 != m2 {
		t.Fatal("expected the same module instance for the same file")
	}
}

func TestPassthroughModule(t *testing.T) {
	// a module with no url references and no directives writes back
	// byte-for-byte
	content := "body { color: red }\n.a { margin: 0 }\n"
	files := map[string]string{"/site/plain.css": content}
	b := testBuilder(files, nil)
	m := mustModule(t, b, "/site/plain.css")
	if len(m.Replacements()) != 0 {
		t.Fatalf("unexpected replacements: %d", len(m.Replacements()))
	}
	w := NewWriter(false)
	m.writeModule(w, m)
	if w.String() != content {
		t.Fatalf("writeModule = %q, want %q", w.String(), content)
	}
}
