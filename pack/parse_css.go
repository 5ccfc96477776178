package pack

import (
	"regexp"
	"strings"
)

var cssTokenRegexp = regexp.MustCompile(`(/\*[\s\S]*?\*/)` +
	`|@import\s+(?:url\(\s*("[^"]*"|'[^']*'|[^)]*?)\s*\)|("[^"]*"|'[^']*'))[^;}]*;?` +
	`|url\(\s*("[^"]*"|'[^']*'|[^)]*?)\s*\)` +
	`|src\s*=\s*("[^"]*"|'[^']*'|[^,)\s]+)`)

func (m *Module) parseCSS() {
	content := m.Content
	for _, match := range cssTokenRegexp.FindAllStringSubmatchIndex(content, -1) {
		switch {
		case match[2] >= 0:
			// comment
			if m.parseComment(content[match[2]+2:match[3]-2], match[2]+2, match[2], match[3]) {
				m.Remove(match[2], match[3])
			}
		case match[4] >= 0:
			m.handleCSSImport(match[0], match[1], match[4], match[5])
		case match[6] >= 0:
			m.handleCSSImport(match[0], match[1], match[6], match[7])
		case match[8] >= 0:
			m.handleCSSUrl(match[8], match[9])
		case match[10] >= 0:
			m.handleCSSUrl(match[10], match[11])
		}
	}
}

// handleCSSImport applies the configured `@import` disposition: leave it,
// rewrite the url, or resolve the stylesheet into the bundle and drop the
// statement.
func (m *Module) handleCSSImport(stmtStart int, stmtEnd int, litStart int, litEnd int) {
	lit := m.Content[litStart:litEnd]
	url := trimCSSUrl(lit)
	if fn := m.Options.CSS.ImportFunc; fn != nil {
		replacement := fn(m, url)
		m.Replace(stmtStart, stmtEnd, replacement)
		return
	}
	switch strings.ToLower(m.Options.CSS.Import) {
	case "", "none", "false":
		return
	case "inline":
		res := m.resolveUrl(url, UsageRequire, litStart)
		if res == nil {
			return
		}
		m.Require(m.File, litStart, res.Module, url)
		m.Remove(stmtStart, stmtEnd)
	default: // "url"
		m.handleCSSUrl(litStart, litEnd)
	}
}

// handleCSSUrl rewrites (or inlines) one url reference.
func (m *Module) handleCSSUrl(litStart int, litEnd int) {
	lit := m.Content[litStart:litEnd]
	quote := byte(0)
	if len(lit) > 0 && (lit[0] == '"' || lit[0] == '\'') {
		quote = lit[0]
	}
	url := trimCSSUrl(lit)
	if url == "" {
		return
	}
	res := m.resolveUrl(url, UsageInline, litStart)
	if res == nil {
		return
	}
	if m.shouldInline(res) {
		if m.Include(m.File, litStart, res.Module, url) {
			uri := res.Module.dataURI(m)
			if quote != 0 {
				uri = string(quote) + uri + string(quote)
			}
			m.Replace(litStart, litEnd, uri)
			return
		}
	}
	m.ReplaceDeferred(litStart, litEnd, func(emitter *Module) string {
		rewritten := emitter.buildUrl(res)
		if quote != 0 {
			return string(quote) + rewritten + string(quote)
		}
		return rewritten
	})
}

func trimCSSUrl(lit string) string {
	lit = strings.TrimSpace(lit)
	if len(lit) >= 2 && (lit[0] == '"' || lit[0] == '\'') && lit[len(lit)-1] == lit[0] {
		lit = lit[1 : len(lit)-1]
	}
	return strings.TrimSpace(lit)
}
