package pack

import (
	"path"
	"regexp"
)

// severity option values for resolver failures.
const (
	SeverityOptionError   = "error"
	SeverityOptionWarning = "warning"
	SeverityOptionIgnore  = "ignore"
)

// DefineValue is a preprocessor symbol value. Besides plain JSON values, a
// `func(file *File) any` may be used to compute the value per file.
type DefineValue = any

// Options is the full option set of a build. The zero value is usable; the
// target-dependent defaults are computed on read by the accessor methods
// (extensions, modulesDirectories, packageMains).
type Options struct {
	Target  string                 `json:"target,omitempty"`
	Resolve ResolveOptions         `json:"resolve,omitempty"`
	URL     URLOptions             `json:"url,omitempty"`
	Output  OutputOptions          `json:"output,omitempty"`
	CSS     CSSOptions             `json:"css,omitempty"`
	Define  map[string]DefineValue `json:"define,omitempty"`
	Region  map[string]bool        `json:"region,omitempty"`
	// Module holds per-file option overrides keyed by a file pattern. A
	// pattern matches when it compiles as a regular expression that matches
	// the slashed file path, or when it matches the base filename as a glob.
	Module map[string]*Options `json:"module,omitempty"`
}

// ResolveOptions controls how a raw URL is mapped to a module.
type ResolveOptions struct {
	// Parse may rewrite the raw url before any other step runs.
	Parse func(module *Module, url string) string `json:"-"`
	// Skip aborts the resolution with no result when it returns true.
	Skip func(module *Module, url string) bool `json:"-"`
	// Fallback is consulted when the whole pipeline failed; the returned
	// path is accepted if it exists.
	Fallback func(module *Module, url string) string `json:"-"`

	Alias              map[string]string `json:"alias,omitempty"`
	Extensions         []string          `json:"extensions,omitempty"`
	ModulesDirectories []string          `json:"modulesDirectories,omitempty"`
	PackageMains       []string          `json:"packageMains,omitempty"`
	Root               []string          `json:"root,omitempty"`
	CommonJS           *bool             `json:"commonjs,omitempty"`
	NativeShims        *bool             `json:"nativeShims,omitempty"`
	CheckPeerDeps      bool              `json:"checkPeerDependencies,omitempty"`
	NotFound           string            `json:"notFound,omitempty"`
	NonLocal           string            `json:"nonLocal,omitempty"`
}

// URLOptions controls link rewriting and inlining.
type URLOptions struct {
	// Inline is the data-URI threshold in bytes: 0 disables inlining,
	// -1 inlines unconditionally, n > 0 inlines assets of at most n bytes.
	// A `?__inline` query marker overrides it per reference.
	Inline int64 `json:"inline,omitempty"`
	// Postfix is appended to every rewritten url; `[hash]` expands to the
	// content hash of the target module. Suppressed by `?__postfix=0`.
	Postfix string `json:"postfix,omitempty"`
	// PostfixFunc overrides Postfix when set.
	PostfixFunc func(module *Module, url string) string `json:"-"`
	// PublicPaths maps a source directory prefix to the public url it is
	// served from; a rewritten url whose target file lies under a mapped
	// prefix uses the public url instead of a relative path.
	PublicPaths map[string]string `json:"publicPaths,omitempty"`
}

// OutputOptions controls the composed output.
type OutputOptions struct {
	Path      string `json:"path,omitempty"`
	Name      string `json:"name,omitempty"`
	SourceMap bool   `json:"sourceMap,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Postfix   string `json:"postfix,omitempty"`
	// ModuleSeperator keeps its historical spelling for config interop.
	ModuleSeperator *string `json:"moduleSeperator,omitempty"`
	ModulePrefix    string  `json:"modulePrefix,omitempty"`
	ModulePostfix   string  `json:"modulePostfix,omitempty"`
}

// CSSOptions controls the css scanner.
type CSSOptions struct {
	// Import is one of "none", "url" or "inline".
	Import string `json:"import,omitempty"`
	// ImportFunc overrides Import: the returned string replaces the whole
	// `@import` statement.
	ImportFunc func(module *Module, url string) string `json:"-"`
}

// default probe extensions; nodejs prefers native addons, the web targets
// prefer stylesheet and template lookups.
var (
	defaultExtensionsNode = []string{"", ".node", ".json", ".js"}
	defaultExtensionsWeb  = []string{"", ".json", ".js", ".css", ".tpl"}

	defaultModulesDirsNode = []string{"node_modules"}
	defaultModulesDirsWeb  = []string{"web_modules", "node_modules"}

	defaultPackageMainsNode = []string{"main"}
	defaultPackageMainsWeb  = []string{"browser", "web", "browserify", "main"}
)

func (o *Options) target() Target {
	target, _ := ParseTarget(o.Target)
	return target
}

func (o *Options) extensions() []string {
	if len(o.Resolve.Extensions) > 0 {
		return o.Resolve.Extensions
	}
	if o.target() == TargetNodejs {
		return defaultExtensionsNode
	}
	return defaultExtensionsWeb
}

func (o *Options) modulesDirectories() []string {
	if len(o.Resolve.ModulesDirectories) > 0 {
		return o.Resolve.ModulesDirectories
	}
	if o.target() == TargetNodejs {
		return defaultModulesDirsNode
	}
	return defaultModulesDirsWeb
}

func (o *Options) packageMains() []string {
	if len(o.Resolve.PackageMains) > 0 {
		return o.Resolve.PackageMains
	}
	if o.target() == TargetNodejs {
		return defaultPackageMainsNode
	}
	return defaultPackageMainsWeb
}

func (o *Options) moduleSeperator() string {
	if o.Output.ModuleSeperator != nil {
		return *o.Output.ModuleSeperator
	}
	return EOL
}

func (o *Options) nativeShims() bool {
	return o.Resolve.NativeShims == nil || *o.Resolve.NativeShims
}

// clone returns a deep copy of the options (shared function values).
func (o *Options) clone() *Options {
	c := *o
	c.Resolve.Alias = cloneMap(o.Resolve.Alias)
	c.Resolve.Extensions = cloneSlice(o.Resolve.Extensions)
	c.Resolve.ModulesDirectories = cloneSlice(o.Resolve.ModulesDirectories)
	c.Resolve.PackageMains = cloneSlice(o.Resolve.PackageMains)
	c.Resolve.Root = cloneSlice(o.Resolve.Root)
	c.URL.PublicPaths = cloneMap(o.URL.PublicPaths)
	c.Define = cloneMap(o.Define)
	c.Region = cloneMap(o.Region)
	c.Module = cloneMap(o.Module)
	return &c
}

// merge deep-merges the override into the options: maps are merged key by
// key, slices and scalars are replaced wholesale when set.
func (o *Options) merge(override *Options) {
	if override == nil {
		return
	}
	if override.Target != "" {
		o.Target = override.Target
	}
	o.Resolve.merge(&override.Resolve)
	o.URL.merge(&override.URL)
	o.Output.merge(&override.Output)
	o.CSS.merge(&override.CSS)
	o.Define = mergeMap(o.Define, override.Define)
	o.Region = mergeMap(o.Region, override.Region)
	if override.Module != nil {
		o.Module = mergeMap(o.Module, override.Module)
	}
}

func (r *ResolveOptions) merge(override *ResolveOptions) {
	if override.Parse != nil {
		r.Parse = override.Parse
	}
	if override.Skip != nil {
		r.Skip = override.Skip
	}
	if override.Fallback != nil {
		r.Fallback = override.Fallback
	}
	r.Alias = mergeMap(r.Alias, override.Alias)
	if override.Extensions != nil {
		r.Extensions = override.Extensions
	}
	if override.ModulesDirectories != nil {
		r.ModulesDirectories = override.ModulesDirectories
	}
	if override.PackageMains != nil {
		r.PackageMains = override.PackageMains
	}
	if override.Root != nil {
		r.Root = override.Root
	}
	if override.CommonJS != nil {
		r.CommonJS = override.CommonJS
	}
	if override.NativeShims != nil {
		r.NativeShims = override.NativeShims
	}
	if override.CheckPeerDeps {
		r.CheckPeerDeps = true
	}
	if override.NotFound != "" {
		r.NotFound = override.NotFound
	}
	if override.NonLocal != "" {
		r.NonLocal = override.NonLocal
	}
}

func (u *URLOptions) merge(override *URLOptions) {
	if override.Inline != 0 {
		u.Inline = override.Inline
	}
	if override.Postfix != "" {
		u.Postfix = override.Postfix
	}
	if override.PostfixFunc != nil {
		u.PostfixFunc = override.PostfixFunc
	}
	u.PublicPaths = mergeMap(u.PublicPaths, override.PublicPaths)
}

func (out *OutputOptions) merge(override *OutputOptions) {
	if override.Path != "" {
		out.Path = override.Path
	}
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.SourceMap {
		out.SourceMap = true
	}
	if override.Prefix != "" {
		out.Prefix = override.Prefix
	}
	if override.Postfix != "" {
		out.Postfix = override.Postfix
	}
	if override.ModuleSeperator != nil {
		out.ModuleSeperator = override.ModuleSeperator
	}
	if override.ModulePrefix != "" {
		out.ModulePrefix = override.ModulePrefix
	}
	if override.ModulePostfix != "" {
		out.ModulePostfix = override.ModulePostfix
	}
}

func (c *CSSOptions) merge(override *CSSOptions) {
	if override.Import != "" {
		c.Import = override.Import
	}
	if override.ImportFunc != nil {
		c.ImportFunc = override.ImportFunc
	}
}

// optionsFor clones the base options and merges every per-file override
// whose pattern matches the file.
func (o *Options) optionsFor(file *File) *Options {
	merged := o.clone()
	if len(o.Module) == 0 {
		return merged
	}
	filename := toSlash(file.Path)
	for pattern, override := range o.Module {
		if matchFilePattern(pattern, filename) {
			merged.merge(override)
		}
	}
	return merged
}

func matchFilePattern(pattern string, filename string) bool {
	if re, err := regexp.Compile(pattern); err == nil {
		if re.MatchString(filename) {
			return true
		}
	}
	ok, err := path.Match(pattern, path.Base(filename))
	return err == nil && ok
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T{}, s...)
}

func mergeMap[K comparable, V any](dst map[K]V, src map[K]V) map[K]V {
	if src == nil {
		return dst
	}
	if dst == nil {
		dst = make(map[K]V, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
