package pack

import (
	"regexp"
	"strings"
)

type ppKind uint8

const (
	ppIf ppKind = iota
	ppElif
	ppElse
	ppRegion
)

type ppFrame struct {
	kind  ppKind
	truth bool
}

func (f ppFrame) kindName() string {
	if f.kind == ppRegion {
		return "region"
	}
	return "if"
}

var directiveRegexp = regexp.MustCompile(`#(include|external|require|target|if|else|elif|endif|region|endregion|error|warning|extract-css)\s*(.*)`)

// parseComment scans a comment body for a directive. textIndex is the index
// of the comment body within the module content; the returned flag tells
// the scanner whether the comment carried a directive (and should be
// removed from the output). commentStart/commentEnd delimit the whole
// comment, including its markers.
func (m *Module) parseComment(text string, textIndex int, commentStart int, commentEnd int) bool {
	match := directiveRegexp.FindStringSubmatchIndex(text)
	if match == nil {
		return false
	}
	name := text[match[2]:match[3]]
	arg := strings.TrimSpace(text[match[4]:match[5]])
	argIndex := textIndex + match[4]
	m.parseDirective(name, arg, argIndex, commentStart, commentEnd)
	return true
}

// parseDirective applies one directive. Hidden regions open at the end of
// the directive comment and close at its start, so the comment itself is
// never part of the hidden range (it is deleted separately by the scanner).
func (m *Module) parseDirective(name string, arg string, argIndex int, commentStart int, commentEnd int) {
	switch name {
	case "if":
		m.ppPushIf(arg, argIndex, commentEnd)
	case "elif":
		if top := m.ppTop(); top == nil || top.kind != ppIf {
			m.File.report(SeverityWarning, argIndex, nil, "mismatched #elif")
			return
		}
		m.ppFlipElse(commentStart, commentEnd)
		m.ppTop().kind = ppElif
		m.ppPushIf(arg, argIndex, commentEnd)
	case "else":
		if top := m.ppTop(); top == nil || top.kind != ppIf {
			m.File.report(SeverityWarning, argIndex, nil, "mismatched #else")
			return
		}
		m.ppFlipElse(commentStart, commentEnd)
		m.ppTop().kind = ppElse
	case "endif":
		top := m.ppTop()
		if top == nil || top.kind == ppRegion {
			m.File.report(SeverityWarning, argIndex, nil, "mismatched #endif")
			return
		}
		m.ppPop(commentStart)
		// pop the implicit frames an #elif chain stacked up
		for {
			top = m.ppTop()
			if top == nil || top.kind != ppElif {
				break
			}
			m.ppPop(commentStart)
		}
	case "region":
		truth := true
		if v, ok := m.Options.Region[arg]; ok && !v {
			truth = false
		}
		m.ppStack = append(m.ppStack, ppFrame{kind: ppRegion, truth: truth})
		if !truth {
			m.beginHiddenRegion(commentEnd)
		}
	case "endregion":
		top := m.ppTop()
		if top == nil || top.kind != ppRegion {
			m.File.report(SeverityWarning, argIndex, nil, "mismatched #endregion")
			return
		}
		m.ppPop(commentStart)
	case "error":
		m.File.report(SeverityError, argIndex, nil, "%s", TrimQuotes(arg))
	case "warning":
		m.File.report(SeverityWarning, argIndex, nil, "%s", TrimQuotes(arg))
	case "target":
		if target, ok := ParseTarget(TrimQuotes(arg)); ok {
			m.Target = target
		} else {
			m.File.report(SeverityWarning, argIndex, nil, "invalid target '%s'", arg)
		}
	case "include":
		url := TrimQuotes(arg)
		res := m.resolveUrlEx(url, UsageLocal, argIndex, false)
		if res == nil {
			return
		}
		// the edge goes in before the included file loads, so a cycle is
		// caught on the far side
		included := m.Include(m.File, argIndex, res.Module, res.Module.File.Name())
		res.Module.ensureLoaded()
		if included {
			// a point insertion at the comment start; the scanner deletes
			// the comment right after, and the two edits stay disjoint
			// because the insertion has zero width
			m.InsertModule(commentStart, res.Module)
		} else {
			// the edge was refused; still emit the url as a link
			m.ReplaceDeferred(commentStart, commentStart, urlText(m, res))
		}
	case "external":
		url := TrimQuotes(arg)
		res := m.resolveUrl(url, UsageRequire, argIndex)
		if res == nil {
			return
		}
		m.External(m.File, argIndex, res.Module, url)
	case "require":
		url := TrimQuotes(arg)
		res := m.resolveUrl(url, UsageRequire, argIndex)
		if res == nil {
			return
		}
		m.Require(m.File, argIndex, res.Module, url)
	case "extract-css":
		m.setupExtractCss(TrimQuotes(arg), argIndex)
	}
}

func (m *Module) ppTop() *ppFrame {
	if len(m.ppStack) == 0 {
		return nil
	}
	return &m.ppStack[len(m.ppStack)-1]
}

// ppPushIf evaluates the condition and pushes an if-frame; a false branch
// opens a hidden region right after the directive comment.
func (m *Module) ppPushIf(expr string, argIndex int, commentEnd int) {
	truth := m.evalCondition(expr, argIndex)
	m.ppStack = append(m.ppStack, ppFrame{kind: ppIf, truth: truth})
	if !truth {
		m.beginHiddenRegion(commentEnd)
	}
}

// ppFlipElse flips the top frame at an #else (or the else-half of an
// #elif): the branch that was hidden becomes visible and vice versa.
func (m *Module) ppFlipElse(commentStart int, commentEnd int) {
	top := m.ppTop()
	if !top.truth {
		m.endHiddenRegion(commentStart)
	}
	top.truth = !top.truth
	if !top.truth {
		m.beginHiddenRegion(commentEnd)
	}
}

// ppPop closes the top frame's hidden region (when hidden) and pops it.
func (m *Module) ppPop(commentStart int) {
	top := m.ppTop()
	if !top.truth {
		m.endHiddenRegion(commentStart)
	}
	m.ppStack = m.ppStack[:len(m.ppStack)-1]
}

var identRegexp = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

// evalCondition evaluates an #if / #elif expression. A bare identifier is
// the defined value itself; anything else goes through the expression
// evaluator with identifiers substituted by their defined values. Errors
// report and yield null, which is falsy.
func (m *Module) evalCondition(expr string, argIndex int) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	if identRegexp.MatchString(expr) {
		switch expr {
		case "true":
			return true
		case "false", "null", "undefined":
			return false
		}
		return isTruthy(m.defineValue(expr))
	}
	value, err := evalExpr(expr, func(name string) any {
		return m.defineValue(name)
	})
	if err != nil {
		m.File.report(SeverityError, argIndex, err, "cannot evaluate expression '%s'", expr)
		return false
	}
	return isTruthy(value)
}
