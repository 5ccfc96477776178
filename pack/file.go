package pack

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Severity is the level of a diagnostic.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "info"
}

// Diagnostic is one message reported against a file during a build.
type Diagnostic struct {
	Severity Severity
	Index    int
	Snippet  string
	Message  string
	Cause    error
}

func (d *Diagnostic) String() string {
	if d.Snippet != "" {
		return fmt.Sprintf("%s: %s (near %q)", d.Severity, d.Message, d.Snippet)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// File is a handle to one physical (or synthetic) source file. The path is
// the read-only identity of the file in the module graph; diagnostics
// reported while scanning collect on the handle.
type File struct {
	Path        string
	Diagnostics []*Diagnostic

	data        []byte
	text        string
	textLoaded  bool
	lineOffsets []int
}

// NewFile creates a file handle over fully loaded content.
func NewFile(filename string, data []byte) *File {
	return &File{Path: filename, data: data}
}

// Data returns the raw bytes of the file.
func (f *File) Data() []byte {
	return f.data
}

// Text returns the file content as a string.
func (f *File) Text() string {
	if !f.textLoaded {
		f.text = string(f.data)
		f.textLoaded = true
	}
	return f.text
}

// Name returns the base name of the file.
func (f *File) Name() string {
	return path.Base(toSlash(f.Path))
}

// Ext returns the lowercased extension of the file, including the dot.
func (f *File) Ext() string {
	return strings.ToLower(path.Ext(f.Name()))
}

// Dir returns the directory of the file.
func (f *File) Dir() string {
	return path.Dir(toSlash(f.Path))
}

// ResolvePath joins the given relative path onto the file's directory.
func (f *File) ResolvePath(rel string) string {
	if path.IsAbs(rel) || filepath.IsAbs(rel) {
		return rel
	}
	return path.Join(f.Dir(), rel)
}

// Relative returns the url path of target relative to this file's directory,
// always slash-separated and "./"-prefixed unless it climbs out.
func (f *File) Relative(target string) string {
	rel, err := filepath.Rel(filepath.FromSlash(f.Dir()), filepath.FromSlash(target))
	if err != nil {
		return toSlash(target)
	}
	rel = toSlash(rel)
	if !startsWith(rel, "../", "./", "/") {
		rel = "./" + rel
	}
	return rel
}

// PositionOf converts a byte index into a 0-based line/column pair.
func (f *File) PositionOf(index int) (line int, column int) {
	if f.lineOffsets == nil {
		text := f.Text()
		f.lineOffsets = []int{0}
		for i := 0; i < len(text); i++ {
			if text[i] == '\n' {
				f.lineOffsets = append(f.lineOffsets, i+1)
			}
		}
	}
	if index < 0 {
		index = 0
	}
	line = sort.SearchInts(f.lineOffsets, index+1) - 1
	column = index - f.lineOffsets[line]
	return
}

// Snippet returns a short excerpt of the line that contains the index.
func (f *File) Snippet(index int) string {
	text := f.Text()
	if index < 0 || index > len(text) {
		return ""
	}
	start := strings.LastIndexByte(text[:index], '\n') + 1
	end := strings.IndexByte(text[index:], '\n')
	if end < 0 {
		end = len(text)
	} else {
		end += index
	}
	line := strings.TrimSpace(text[start:end])
	if len(line) > 60 {
		line = line[:60] + "..."
	}
	return line
}

func (f *File) report(severity Severity, index int, cause error, format string, args ...any) {
	d := &Diagnostic{
		Severity: severity,
		Index:    index,
		Snippet:  f.Snippet(index),
		Message:  fmt.Sprintf(format, args...),
		Cause:    cause,
	}
	f.Diagnostics = append(f.Diagnostics, d)
	line, column := f.PositionOf(index)
	switch severity {
	case SeverityError:
		log.Errorf("%s:%d:%d: %s", f.Path, line+1, column+1, d.Message)
	case SeverityWarning:
		log.Warnf("%s:%d:%d: %s", f.Path, line+1, column+1, d.Message)
	default:
		log.Infof("%s:%d:%d: %s", f.Path, line+1, column+1, d.Message)
	}
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
