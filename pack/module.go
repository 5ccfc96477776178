package pack

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ije/gox/set"
)

// ModuleType classifies a module by its content kind. The kind selects the
// scanner that runs at load time and the default content encoding (binary
// modules embed as base64 data URLs, text modules as UTF-8 strings).
type ModuleType uint8

const (
	ModuleResource ModuleType = iota
	ModuleBinary
	ModuleText
	ModuleJS
	ModuleJSON
	ModuleCSS
	ModuleHTML
)

func (t ModuleType) String() string {
	switch t {
	case ModuleBinary:
		return "binary"
	case ModuleText:
		return "text"
	case ModuleJS:
		return "js"
	case ModuleJSON:
		return "json"
	case ModuleCSS:
		return "css"
	case ModuleHTML:
		return "html"
	}
	return "resource"
}

var moduleTypeExts = map[string]ModuleType{
	".html": ModuleHTML, ".htm": ModuleHTML, ".inc": ModuleHTML,
	".shtm": ModuleHTML, ".shtml": ModuleHTML, ".jsp": ModuleHTML,
	".asp": ModuleHTML, ".php": ModuleHTML, ".aspx": ModuleHTML,
	".tpl": ModuleHTML, ".template": ModuleHTML,
	".xml": ModuleText, ".cshtml": ModuleText, ".vbhtml": ModuleText,
	".txt": ModuleText, ".text": ModuleText, ".md": ModuleText, ".log": ModuleText,
	".js":   ModuleJS,
	".json": ModuleJSON, ".map": ModuleJSON,
	".css": ModuleCSS,
}

// Usage is the context in which a URL appears.
type Usage uint8

const (
	// UsageInline marks a data-URL-capable reference (`<img src>`, `url()`).
	UsageInline Usage = iota
	// UsageLocal marks a reference that must be a local file (`#include`).
	UsageLocal
	// UsageRequire marks a reference resolved with module-resolution rules.
	UsageRequire
)

// Module is the runtime representation of one analysed file: its content,
// the pending byte-range edits against it, and the discovered relations to
// other modules. A module is created once per file, loads immediately, and
// is read-only after load returns.
type Module struct {
	File    *File
	Source  *File
	Options *Options
	Type    ModuleType
	Target  Target
	Content string

	// ExtractCss is the sibling css module synthesised by `#extract-css`;
	// css requires of this module redirect there.
	ExtractCss *Module

	builder      *Builder
	replacements []*Replacement
	hiddenDepth  int
	hiddenRegion *Replacement
	ppStack      []ppFrame

	includes  *moduleList
	requires  *moduleList
	externals *moduleList

	isCommonJS      bool
	handledKeywords *set.Set[string]
	specifierCache  map[string]string
	inlineCount     int
	loaded          bool
	saved           bool
}

// moduleList is a set of modules that preserves insertion order; the order
// is semantic (it drives emission order), so a plain unordered set will not
// do here.
type moduleList struct {
	items []*Module
	index map[*Module]struct{}
}

func newModuleList() *moduleList {
	return &moduleList{index: map[*Module]struct{}{}}
}

func (l *moduleList) has(m *Module) bool {
	_, ok := l.index[m]
	return ok
}

func (l *moduleList) add(m *Module) bool {
	if l.has(m) {
		return false
	}
	l.index[m] = struct{}{}
	l.items = append(l.items, m)
	return true
}

func (l *moduleList) len() int {
	return len(l.items)
}

// Replacements returns the scheduled edits in order.
func (m *Module) Replacements() []*Replacement {
	return m.replacements
}

// Includes returns the modules this module inlines, in discovery order.
func (m *Module) Includes() []*Module {
	return m.includes.items
}

// Requires returns the modules this module depends on, in discovery order.
func (m *Module) Requires() []*Module {
	return m.requires.items
}

// Externals returns the modules excluded from this module's closure.
func (m *Module) Externals() []*Module {
	return m.externals.items
}

// ensureLoaded runs the scan exactly once. The flag flips before the scan
// so a dependency that circles back mid-parse sees the partial state
// instead of recursing forever.
func (m *Module) ensureLoaded() {
	if m.loaded {
		return
	}
	m.loaded = true
	m.load()
}

// load scans the content and populates replacements and relations.
func (m *Module) load() {
	m.Content = m.File.Text()
	switch m.Type {
	case ModuleJS:
		m.parseJS()
	case ModuleCSS:
		m.parseCSS()
	case ModuleHTML:
		m.parseHTML()
	}
	switch m.Type {
	case ModuleJS, ModuleCSS, ModuleHTML, ModuleText, ModuleJSON:
		m.parseSubs()
	}
	m.finishParse()
}

func (m *Module) finishParse() {
	for i := len(m.ppStack) - 1; i >= 0; i-- {
		frame := m.ppStack[i]
		m.File.report(SeverityWarning, len(m.Content), nil, "missing #end%s", frame.kindName())
	}
	m.ppStack = nil
	m.closeHiddenRegions()
}

// HasIncluded reports whether this module transitively (and reflexively)
// includes the other module.
func (m *Module) HasIncluded(other *Module) bool {
	return m.hasIncluded(other, map[*Module]bool{})
}

func (m *Module) hasIncluded(other *Module, visited map[*Module]bool) bool {
	if m == other {
		return true
	}
	if visited[m] {
		return false
	}
	visited[m] = true
	for _, inc := range m.includes.items {
		if inc.hasIncluded(other, visited) {
			return true
		}
	}
	return false
}

// Include records "this module inlines other". It refuses the edge and
// reports a warning when the other module already (transitively) includes
// this one, since that would make the inlining cyclic.
func (m *Module) Include(src *File, index int, other *Module, name string) bool {
	if other.HasIncluded(m) {
		src.report(SeverityWarning, index, nil, "Circular include with '%s'", name)
		return false
	}
	m.includes.add(other)
	return true
}

// Require records "this module depends on other"; other is emitted before
// this module in the require-closure. Self references are ignored.
func (m *Module) Require(src *File, index int, other *Module, name string) {
	if other == m {
		return
	}
	m.requires.add(other)
}

// External records "other is provided elsewhere": other, and everything it
// transitively requires or excludes, is dropped from this module's closure.
func (m *Module) External(src *File, index int, other *Module, name string) {
	if other == m {
		return
	}
	m.externals.add(other)
}

// GetAllExternals returns every module excluded from this module's closure:
// for each direct external, everything it transitively requires or
// excludes is excluded too.
func (m *Module) GetAllExternals() []*Module {
	var list []*Module
	seen := map[*Module]bool{}
	var walk func(x *Module)
	walk = func(x *Module) {
		if seen[x] {
			return
		}
		seen[x] = true
		list = append(list, x)
		for _, dep := range x.requires.items {
			walk(dep)
		}
		for _, dep := range x.externals.items {
			walk(dep)
		}
	}
	for _, external := range m.externals.items {
		walk(external)
	}
	return list
}

// GetAllRequires returns the require-closure of this module in emission
// order: a post-order walk over requires, so every dependency precedes its
// dependents and the module itself comes last. The external closure seeds
// the visited set, which both excludes those modules and terminates the
// walk on cycles.
func (m *Module) GetAllRequires() []*Module {
	visited := map[*Module]bool{}
	for _, external := range m.GetAllExternals() {
		visited[external] = true
	}
	var list []*Module
	var walk func(x *Module)
	walk = func(x *Module) {
		if visited[x] {
			return
		}
		visited[x] = true
		for _, dep := range x.requires.items {
			walk(dep)
		}
		list = append(list, x)
	}
	walk(m)
	return list
}

var subsRegexp = regexp.MustCompile(`__(url|skip|postfix|macro|include|external|require|target)\s*\(\s*('[^']*'|"[^"]*"|[^)]*?)\s*\)`)

// parseSubs runs the directive-macro pass over the content. Macro calls
// inside spans that are already replaced (strings the scanner rewrote,
// deleted comments, hidden regions) are dropped by the overlap check.
func (m *Module) parseSubs() {
	for _, match := range subsRegexp.FindAllStringSubmatchIndex(m.Content, -1) {
		start, end := match[0], match[1]
		name := m.Content[match[2]:match[3]]
		rawArg := m.Content[match[4]:match[5]]
		argIndex := match[4]
		arg := TrimQuotes(rawArg)
		quote := byte(0)
		if len(rawArg) > 0 && (rawArg[0] == '"' || rawArg[0] == '\'') {
			quote = rawArg[0]
		}
		switch name {
		case "url":
			res := m.resolveUrl(arg, UsageInline, argIndex)
			if res == nil {
				continue
			}
			q := quote
			m.ReplaceDeferred(start, end, func(emitter *Module) string {
				url := emitter.buildUrl(res)
				if q != 0 {
					return EncodeString(url, q)
				}
				return url
			})
		case "skip":
			// the argument survives untouched, only the call is unwrapped
			m.Replace(start, end, rawArg)
		case "postfix":
			res := arg
			q := quote
			m.ReplaceDeferred(start, end, func(emitter *Module) string {
				url := emitter.applyPostfix(res, nil)
				if q != 0 {
					return EncodeString(url, q)
				}
				return url
			})
		case "macro":
			value := m.defineValue(arg)
			data, err := json.Marshal(value)
			if err != nil {
				m.File.report(SeverityError, argIndex, err, "cannot encode macro '%s'", arg)
				continue
			}
			m.Replace(start, end, string(data))
		case "include":
			res := m.resolveUrlEx(arg, UsageLocal, argIndex, false)
			if res == nil {
				continue
			}
			included := m.Include(m.File, argIndex, res.Module, arg)
			res.Module.ensureLoaded()
			if included {
				m.ReplaceModule(start, end, res.Module)
			} else {
				m.ReplaceDeferred(start, end, urlText(m, res))
			}
		case "external":
			res := m.resolveUrl(arg, UsageRequire, argIndex)
			if res == nil {
				continue
			}
			m.External(m.File, argIndex, res.Module, arg)
			m.Remove(start, end)
		case "require":
			res := m.resolveUrl(arg, UsageRequire, argIndex)
			if res == nil {
				continue
			}
			m.Require(m.File, argIndex, res.Module, arg)
			m.Remove(start, end)
		case "target":
			if target, ok := ParseTarget(arg); ok {
				m.Target = target
			} else {
				m.File.report(SeverityWarning, argIndex, nil, "invalid target '%s'", arg)
			}
			m.Remove(start, end)
		}
	}
}

// defineValue resolves a preprocessor symbol; callable values are invoked
// with the module's file.
func (m *Module) defineValue(name string) any {
	value, ok := m.Options.Define[name]
	if !ok {
		return nil
	}
	if fn, ok := value.(func(file *File) any); ok {
		return fn(m.File)
	}
	return value
}

// urlText returns a deferred replacement value emitting the rebuilt url as
// plain text.
func urlText(m *Module, res *ResolveResult) func(emitter *Module) string {
	return func(emitter *Module) string {
		return emitter.buildUrl(res)
	}
}

// reportBySeverity reports with the severity configured by the given option
// value ("error" | "warning" | "ignore"); def applies when unset.
func (m *Module) reportBySeverity(option string, def Severity, index int, format string, args ...any) {
	severity := def
	switch strings.ToLower(option) {
	case SeverityOptionError:
		severity = SeverityError
	case SeverityOptionWarning:
		severity = SeverityWarning
	case SeverityOptionIgnore:
		return
	}
	m.File.report(severity, index, nil, format, args...)
}
