package pack

import (
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ije/esbuild-internal/xxhash"
	"tpack.sh/internal/mime"
)

// effectiveTarget is the emission dialect of this module: the `#target`
// directive wins, then the configured target, then plain browser output.
func (m *Module) effectiveTarget() Target {
	if m.Target != TargetUnknown {
		return m.Target
	}
	if target := m.Options.target(); target != TargetUnknown {
		return target
	}
	return TargetBrowser
}

// Save composes the module and hands the result (and the one of the
// extracted css sibling, if any) to the builder's output sink. Saving is
// an idempotent read of the loaded state.
func (m *Module) Save() error {
	if m.saved {
		return nil
	}
	m.saved = true

	w := NewWriter(m.Options.Output.SourceMap)
	if prefix := m.Options.Output.Prefix; prefix != "" {
		w.WriteString(m.formatHeader(prefix))
	}
	m.Write(w, nil)
	if postfix := m.Options.Output.Postfix; postfix != "" {
		w.WriteString(m.formatHeader(postfix))
	}

	outName := m.outputName(w.Bytes())
	if err := m.builder.writeOutput(m, outName, w); err != nil {
		return err
	}
	if m.ExtractCss != nil {
		if err := m.ExtractCss.Save(); err != nil {
			return err
		}
	}
	return nil
}

// Write emits every module of the list (the require-closure by default)
// into the writer, bracketed by the configured module prefix/postfix and
// separated by the module seperator.
func (m *Module) Write(w *Writer, moduleList []*Module) {
	if moduleList == nil {
		moduleList = m.GetAllRequires()
	}
	wrapped := m.Type == ModuleJS && m.effectiveTarget() == TargetTpack && m.externals.len() == 0
	if wrapped && !w.loaderEmitted {
		w.loaderEmitted = true
		w.WriteString(loaderJS)
		if !strings.HasSuffix(loaderJS, EOL) {
			w.WriteString(EOL)
		}
	}
	seperator := m.Options.moduleSeperator()
	for i, member := range moduleList {
		if i > 0 {
			w.WriteString(seperator)
		}
		if prefix := m.Options.Output.ModulePrefix; prefix != "" {
			w.WriteString(prefix)
		}
		if wrapped {
			m.writeDefine(w, member, member == m)
		} else if m.effectiveTarget() == TargetRequirejs && m.Type == ModuleJS {
			m.writeAMD(w, member, member == m)
		} else {
			m.writeModule(w, member)
		}
		if postfix := m.Options.Output.ModulePostfix; postfix != "" {
			w.WriteString(postfix)
		}
	}
}

// writeModule splices the module's content with its replacements: literal
// values verbatim, deferred values computed against the currently emitting
// module, module values recursively.
func (m *Module) writeModule(w *Writer, member *Module) {
	if len(member.replacements) == 0 {
		w.Write(member.Content, member.Source, 0)
		return
	}
	cursor := 0
	for _, r := range member.replacements {
		if r.Start > cursor {
			w.Write(member.Content[cursor:r.Start], member.Source, cursor)
		}
		switch {
		case r.Inline != nil:
			r.Inline.Write(w, nil)
		case r.Deferred != nil:
			w.WriteString(r.Deferred(m))
		default:
			w.WriteString(r.Literal)
		}
		cursor = r.End
	}
	if cursor < len(member.Content) {
		w.Write(member.Content[cursor:], member.Source, cursor)
	}
}

// writeDefine wraps one closure member in a `__tpack__.define` call; the
// root module itself is registered anonymously.
func (m *Module) writeDefine(w *Writer, member *Module, isSelf bool) {
	w.WriteString("__tpack__.define(")
	if !isSelf {
		w.WriteString(EncodeString(m.File.Relative(member.File.Path), '"'))
		w.WriteString(", ")
	}
	switch member.Type {
	case ModuleCSS:
		w.WriteString("function(require,exports,module){\n\tmodule.exports = __tpack__.insertStyle(")
		w.WriteString(EncodeString(member.patchedText(m), '"'))
		w.WriteString(");\n});")
	case ModuleJSON:
		w.WriteString("function(require,exports,module){\n\tmodule.exports = ")
		w.WriteString(strings.TrimSpace(member.patchedText(m)))
		w.WriteString(";\n});")
	case ModuleJS:
		w.WriteString("function(require,exports,module){\n")
		w.IncreaseIndent()
		m.writeModule(w, member)
		w.DecreaseIndent()
		w.WriteString("\n});")
	default:
		w.WriteString("function(require,exports,module){\n\tmodule.exports = ")
		if member.Type == ModuleBinary {
			w.WriteString(EncodeString(member.dataURI(m), '"'))
		} else {
			w.WriteString(EncodeString(member.patchedText(m), '"'))
		}
		w.WriteString(";\n});")
	}
}

// writeAMD wraps one closure member in a RequireJS `define` call.
func (m *Module) writeAMD(w *Writer, member *Module, isSelf bool) {
	w.WriteString("define(")
	if !isSelf {
		w.WriteString(EncodeString(m.File.Relative(member.File.Path), '"'))
		w.WriteString(", ")
	}
	w.WriteString(`["require", "exports", "module"], function(require, exports, module) {`)
	w.WriteString(EOL)
	w.IncreaseIndent()
	m.writeModule(w, member)
	w.DecreaseIndent()
	w.WriteString("\n});")
}

// patchedText renders the member's content with its replacements applied,
// from the perspective of the emitting module.
func (m *Module) patchedText(emitter *Module) string {
	if len(m.replacements) == 0 {
		return m.Content
	}
	w := NewWriter(false)
	emitter.writeModule(w, m)
	return w.String()
}

// dataURI embeds the module's patched content as a base64 data URI.
func (m *Module) dataURI(emitter *Module) string {
	data := m.patchedText(emitter)
	return "data:" + mime.DataURIType(m.File.Name()) + ";base64," +
		base64.StdEncoding.EncodeToString([]byte(data))
}

// formatHeader expands the [name], [target] and [date] tokens of the
// output prefix/postfix.
func (m *Module) formatHeader(s string) string {
	s = strings.ReplaceAll(s, "[name]", m.File.Name())
	s = strings.ReplaceAll(s, "[target]", m.effectiveTarget().String())
	s = strings.ReplaceAll(s, "[date]", time.Now().Format("2006-01-02"))
	return s
}

// outputName renders the output file name: the configured name template
// with [name], [ext] and [hash] expanded, or the source name unchanged.
func (m *Module) outputName(data []byte) string {
	base := m.File.Name()
	template := m.Options.Output.Name
	if template == "" {
		return base
	}
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)
	out := strings.ReplaceAll(template, "[name]", name)
	out = strings.ReplaceAll(out, "[ext]", ext)
	if strings.Contains(out, "[hash]") {
		hash := fmt.Sprintf("%016x", xxhash.Sum64(data))
		out = strings.ReplaceAll(out, "[hash]", hash[:8])
	}
	return out
}
