package pack

import (
	"fmt"
	"path"
	"regexp"

	"github.com/ije/gox/set"
)

// one ordered alternation drives the whole scan: string and regex literals
// are consumed so their content is never mistaken for code, comments route
// to the directive parser, and the remaining branches carry the constructs
// that matter.
var jsTokenRegexp = regexp.MustCompile(`'(?:[^\\'\n]|\\[\s\S])*'` +
	`|"(?:[^\\"\n]|\\[\s\S])*"` +
	"|`(?:[^\\\\`]|\\\\[\\s\\S])*`" +
	`|(//[^\n]*)` +
	`|(/\*[\s\S]*?\*/)` +
	`|(^|[^.$\w])require\s*\(\s*('(?:[^\\'\n]|\\[\s\S])*'|"(?:[^\\"\n]|\\[\s\S])*")\s*\)` +
	`|[=(,:!&|?;{+\-*%~^<>[]\s*(/(?:[^\\/\n*[]|\\[^\n]|\[(?:[^\\\]\n]|\\[^\n])*\])(?:[^\\/\n[]|\\[^\n]|\[(?:[^\\\]\n]|\\[^\n])*\])*/[a-zA-Z]*)` +
	`|([A-Za-z_$][\w$]*)`)

var jsKeywords = set.NewReadOnly(
	"require", "exports", "module",
	"process", "global", "Buffer",
	"setImmediate", "clearImmediate",
	"__dirname", "__filename",
)

func (m *Module) parseJS() {
	content := m.Content
	for _, match := range jsTokenRegexp.FindAllStringSubmatchIndex(content, -1) {
		switch {
		case match[2] >= 0:
			// line comment
			m.handleJSComment(match[2], match[3], match[2]+2)
		case match[4] >= 0:
			// block comment
			m.handleJSComment(match[4], match[5]-2, match[4]+2)
		case match[8] >= 0:
			// require("...") in call (non-member) position
			m.handleRequireCall(match[7], match[1], match[8], match[9])
		case match[10] >= 0:
			// regex literal, skipped like strings
		case match[12] >= 0:
			m.handleJSKeyword(match[12], match[13])
		}
	}
}

func (m *Module) handleJSComment(commentStart int, bodyEnd int, bodyStart int) {
	commentEnd := bodyEnd
	if m.Content[commentStart+1] == '*' {
		commentEnd = bodyEnd + 2
	}
	if m.parseComment(m.Content[bodyStart:bodyEnd], bodyStart, commentStart, commentEnd) {
		m.Remove(commentStart, commentEnd)
	}
}

func (m *Module) handleRequireCall(callStart int, callEnd int, litStart int, litEnd int) {
	m.isCommonJS = true
	if m.Target == TargetUnknown {
		m.Target = TargetTpack
	}
	lit := m.Content[litStart:litEnd]
	quote := lit[0]
	url := DecodeString(lit)
	res := m.resolveUrl(url, UsageRequire, litStart)
	if res == nil {
		return
	}
	if m.ExtractCss != nil && res.Module.Type == ModuleCSS {
		// redirect the stylesheet into the extracted css bundle and drop
		// the call
		m.ExtractCss.Require(m.File, litStart, res.Module, url)
		m.Remove(callStart, callEnd)
		return
	}
	m.Require(m.File, litStart, res.Module, url)
	m.ReplaceDeferred(litStart, litEnd, func(emitter *Module) string {
		return EncodeString(emitter.buildUrl(res), quote)
	})
}

// handleJSKeyword deals with the bare node globals; each is handled at most
// once per file.
func (m *Module) handleJSKeyword(start int, end int) {
	name := m.Content[start:end]
	if !jsKeywords.Has(name) {
		return
	}
	if start > 0 {
		switch m.Content[start-1] {
		case '.', '$', '_':
			return
		}
	}
	if m.handledKeywords.Has(name) {
		return
	}
	m.handledKeywords.Add(name)

	switch name {
	case "require", "exports", "module":
		m.isCommonJS = true
		if m.Target == TargetUnknown {
			m.Target = TargetTpack
		}
		return
	case "__dirname":
		src := m
		m.ReplaceDeferred(0, 0, func(emitter *Module) string {
			dir := path.Dir(emitter.File.Relative(src.File.Path))
			return fmt.Sprintf("var __dirname = %s;\n", EncodeString(dir, '"'))
		})
		return
	case "__filename":
		src := m
		m.ReplaceDeferred(0, 0, func(emitter *Module) string {
			return fmt.Sprintf("var __filename = %s;\n", EncodeString(emitter.File.Relative(src.File.Path), '"'))
		})
		return
	}

	if !m.Options.nativeShims() || m.effectiveTarget() == TargetNodejs {
		return
	}
	shim := keywordShims[name]
	if shim.requires == "" {
		m.Insert(0, shim.prepend)
		return
	}
	res := m.resolveUrl(shim.requires, UsageRequire, start)
	if res == nil {
		return
	}
	m.Require(m.File, start, res.Module, shim.requires)
	prepend := shim.prepend
	m.ReplaceDeferred(0, 0, func(emitter *Module) string {
		return fmt.Sprintf(prepend, EncodeString(emitter.buildUrl(res), '"'))
	})
}
