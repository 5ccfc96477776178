package pack

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// the alternation order matters: comments come before the `<!` template
// marker so directives win, and the doctype is consumed before it too.
var htmlTokenRegexp = regexp.MustCompile(`(?i)(<!--[\s\S]*?(?:-->|$))` +
	`|(<!doctype[^>]*>)` +
	`|(<script(\s[^>]*)?>)([\s\S]*?)(</script\s*>)` +
	`|(<style(\s[^>]*)?>)([\s\S]*?)(</style\s*>)` +
	`|(<(img|link|object|embed|audio|video|source|a|base|form|input|button)(\s[^>]*)?/?>)` +
	`|(<%[\s\S]*?%>|<\?[\s\S]*?\?>|<#[\s\S]*?#>|<![\s\S]*?!>)`)

var templateMarkerRegexp = regexp.MustCompile(`<%|<\?|<#|<!`)

// url-bearing attributes per tag; srcset entries are sub-scanned.
var htmlTagAttrs = map[string][]string{
	"a":      {"href"},
	"base":   {"href"},
	"link":   {"href"},
	"form":   {"action"},
	"input":  {"formaction", "src", "data-src"},
	"button": {"formaction"},
	"object": {"data"},
	"img":    {"srcset", "src", "data-src"},
	"embed":  {"src", "data-src"},
	"audio":  {"src", "data-src"},
	"video":  {"src", "data-src"},
	"source": {"src", "srcset", "data-src"},
}

// attributes that must point at a local page, never a data URI
func isLocalHTMLAttr(tag string, attr string) bool {
	switch attr {
	case "action", "formaction":
		return true
	case "href":
		return tag == "a" || tag == "base"
	}
	return false
}

func (m *Module) parseHTML() {
	content := m.Content
	for _, match := range htmlTokenRegexp.FindAllStringSubmatchIndex(content, -1) {
		switch {
		case match[2] >= 0:
			m.handleHTMLComment(match[2], match[3])
		case match[4] >= 0:
			// doctype, opaque
		case match[6] >= 0:
			m.handleScriptTag(match)
		case match[14] >= 0:
			m.handleStyleTag(match)
		case match[22] >= 0:
			tag := strings.ToLower(content[match[24]:match[25]])
			m.handleHTMLTag(tag, match[22], match[23], match[26], match[27])
		case match[28] >= 0:
			// server-side template marker, opaque
		}
	}
}

func (m *Module) handleHTMLComment(start int, end int) {
	bodyEnd := end
	if strings.HasSuffix(m.Content[start:end], "-->") {
		bodyEnd = end - 3
	}
	if m.parseComment(m.Content[start+4:bodyEnd], start+4, start, end) {
		m.Remove(start, end)
	}
}

func (m *Module) handleScriptTag(match []int) {
	openEnd := match[7]
	attrsStart, attrsEnd := match[8], match[9]
	bodyStart, bodyEnd := match[10], match[11]
	if attrsStart < 0 {
		attrsStart, attrsEnd = openEnd-1, openEnd-1
	}
	if m.stripSkipAttr(attrsStart, attrsEnd) {
		return
	}
	if src := m.findAttr(attrsStart, attrsEnd, "src"); src != nil && !isDynamicValue(src.value) {
		res := m.resolveUrl(src.value, UsageInline, src.valStart)
		if res == nil {
			return
		}
		if m.shouldInline(res) && m.Include(m.File, src.valStart, res.Module, src.value) {
			m.Remove(src.start, src.end)
			m.ReplaceModule(bodyStart, bodyEnd, res.Module)
			return
		}
		m.rewriteAttr(src, res)
		return
	}
	body := m.Content[bodyStart:bodyEnd]
	if strings.TrimSpace(body) == "" || templateMarkerRegexp.MatchString(body) {
		return
	}
	if t := m.findAttr(attrsStart, attrsEnd, "type"); t != nil && t.value != "" && !strings.Contains(strings.ToLower(t.value), "javascript") {
		return
	}
	inline := m.createInlineModule(".js", body)
	if m.Include(m.File, bodyStart, inline, inline.File.Name()) {
		m.ReplaceModule(bodyStart, bodyEnd, inline)
	}
}

func (m *Module) handleStyleTag(match []int) {
	attrsStart, attrsEnd := match[16], match[17]
	bodyStart, bodyEnd := match[18], match[19]
	if attrsStart < 0 {
		attrsStart, attrsEnd = match[15]-1, match[15]-1
	}
	if m.stripSkipAttr(attrsStart, attrsEnd) {
		return
	}
	body := m.Content[bodyStart:bodyEnd]
	if strings.TrimSpace(body) == "" || templateMarkerRegexp.MatchString(body) {
		return
	}
	inline := m.createInlineModule(".css", body)
	if m.Include(m.File, bodyStart, inline, inline.File.Name()) {
		m.ReplaceModule(bodyStart, bodyEnd, inline)
	}
}

func (m *Module) handleHTMLTag(tag string, tagStart int, tagEnd int, attrsStart int, attrsEnd int) {
	if attrsStart < 0 {
		return
	}
	if m.stripSkipAttr(attrsStart, attrsEnd) {
		return
	}
	for _, name := range htmlTagAttrs[tag] {
		attr := m.findAttr(attrsStart, attrsEnd, name)
		if attr == nil || attr.value == "" || isDynamicValue(attr.value) {
			continue
		}
		if name == "srcset" {
			m.rewriteSrcset(attr)
			continue
		}
		if isLocalHTMLAttr(tag, name) {
			res := m.resolveUrl(attr.value, UsageLocal, attr.valStart)
			if res == nil {
				continue
			}
			m.rewriteAttr(attr, res)
			continue
		}
		res := m.resolveUrl(attr.value, UsageInline, attr.valStart)
		if res == nil {
			continue
		}
		if m.shouldInline(res) && m.Include(m.File, attr.valStart, res.Module, attr.value) {
			if tag == "link" && res.Module.Type == ModuleCSS {
				// swap the whole link element for an inline style element
				m.Insert(tagStart, "<style>")
				m.ReplaceModule(tagStart, tagEnd, res.Module)
				m.Insert(tagEnd, "</style>")
				return
			}
			uri := res.Module.dataURI(m)
			if attr.quote != 0 {
				uri = string(attr.quote) + uri + string(attr.quote)
			}
			m.Replace(attr.valStart, attr.valEnd, uri)
			continue
		}
		m.rewriteAttr(attr, res)
	}
}

// rewriteSrcset rewrites each url of the comma separated `url Nx` form.
func (m *Module) rewriteSrcset(attr *htmlAttr) {
	type entry struct {
		res        *ResolveResult
		raw        string
		descriptor string
	}
	var entries []entry
	for _, part := range strings.Split(attr.value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		url, descriptor, _ := strings.Cut(part, " ")
		res := m.resolveUrl(url, UsageInline, attr.valStart)
		entries = append(entries, entry{res: res, raw: url, descriptor: strings.TrimSpace(descriptor)})
	}
	if len(entries) == 0 {
		return
	}
	quote := attr.quote
	m.ReplaceDeferred(attr.valStart, attr.valEnd, func(emitter *Module) string {
		parts := make([]string, len(entries))
		for i, e := range entries {
			url := e.raw
			if e.res != nil {
				url = emitter.buildUrl(e.res)
			}
			if e.descriptor != "" {
				url += " " + e.descriptor
			}
			parts[i] = url
		}
		rewritten := strings.Join(parts, ", ")
		if quote != 0 {
			return string(quote) + rewritten + string(quote)
		}
		return rewritten
	})
}

// rewriteAttr schedules a deferred rewrite of the attribute value.
func (m *Module) rewriteAttr(attr *htmlAttr, res *ResolveResult) {
	quote := attr.quote
	m.ReplaceDeferred(attr.valStart, attr.valEnd, func(emitter *Module) string {
		return encodeAttr(emitter.buildUrl(res), quote)
	})
}

// isDynamicValue reports whether an attribute value carries a server-side
// template marker; such urls are left for the template engine.
func isDynamicValue(value string) bool {
	return templateMarkerRegexp.MatchString(value)
}

// stripSkipAttr deletes a `__skip` attribute and reports whether the tag
// must be left unparsed.
func (m *Module) stripSkipAttr(attrsStart int, attrsEnd int) bool {
	attr := m.findAttr(attrsStart, attrsEnd, "__skip")
	if attr == nil {
		return false
	}
	m.Remove(attr.start, attr.end)
	return true
}

// htmlAttr locates one attribute inside an open tag: the whole span
// (including the leading whitespace), and the value span including its quotes.
type htmlAttr struct {
	start, end         int
	valStart, valEnd   int
	value              string
	quote              byte
}

func (m *Module) findAttr(attrsStart int, attrsEnd int, name string) *htmlAttr {
	if attrsStart >= attrsEnd {
		return nil
	}
	re := m.builder.attrRegexp(name)
	match := re.FindStringSubmatchIndex(m.Content[attrsStart:attrsEnd])
	if match == nil {
		return nil
	}
	attr := &htmlAttr{
		start: attrsStart + match[0],
		end:   attrsStart + match[1],
	}
	if match[4] >= 0 {
		raw := m.Content[attrsStart+match[4] : attrsStart+match[5]]
		attr.valStart = attrsStart + match[4]
		attr.valEnd = attrsStart + match[5]
		if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') {
			attr.quote = raw[0]
		}
		attr.value = decodeAttr(raw)
	} else {
		attr.valStart = attr.end
		attr.valEnd = attr.end
	}
	return attr
}

// createInlineModule synthesises a module for inline `<script>`/`<style>`
// content. The counter is scoped to the enclosing html module, so the
// synthetic names (and the source maps referencing them) are reproducible
// across builds.
func (m *Module) createInlineModule(ext string, content string) *Module {
	m.inlineCount++
	name := fmt.Sprintf("%s#inline%d%s", m.File.Path, m.inlineCount, ext)
	moduleType := moduleTypeExts[path.Ext(name)]
	return m.builder.syntheticModule(name, moduleType, []byte(content), m.Options)
}
