package pack

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ije/esbuild-internal/xxhash"
)

var nonLocalRegexp = regexp.MustCompile(`^(\w\w+:|//)`)

// resolveUrl maps a raw url appearing in this module's content to another
// module. The pipeline short-circuits on the first success or explicit
// skip; a nil result with no diagnostic means the url is intentionally
// left alone.
func (m *Module) resolveUrl(rawUrl string, usage Usage, index int) *ResolveResult {
	return m.resolveUrlEx(rawUrl, usage, index, true)
}

// resolveUrlEx optionally defers loading the resolved module, so the
// caller can record a graph edge first (`#include` needs the edge in place
// before the included file scans its own directives).
func (m *Module) resolveUrlEx(rawUrl string, usage Usage, index int, load bool) *ResolveResult {
	opts := &m.Options.Resolve
	url := rawUrl

	// 1. custom parse hook
	if opts.Parse != nil {
		url = opts.Parse(m, url)
		if url == "" {
			return nil
		}
	}

	// 2. alias rewrite (longest prefix wins)
	aliasBase := ""
	if len(opts.Alias) > 0 {
		if rewritten, ok := applyAlias(url, opts.Alias); ok {
			aliasBase = url
			url = rewritten
		}
	}

	// 3. non-local guard: network and data urls are not resolvable files
	if nonLocalRegexp.MatchString(url) {
		if usage == UsageLocal {
			m.reportBySeverity(opts.NonLocal, SeverityError, index, "cannot use non-local url '%s' here", rawUrl)
		}
		return nil
	}

	// 4. custom skip hook
	if opts.Skip != nil && opts.Skip(m, url) {
		return nil
	}

	// 5. split off query and hash
	pathname, query, hash := splitUrl(url)
	if pathname == "" {
		return nil
	}
	probe := &ResolveResult{Query: query, Hash: hash, Alias: aliasBase}
	if ResolveQuery(probe, "__skip").Kind != QueryNone {
		// `?__skip` means: leave the url exactly as written
		return nil
	}
	query = probe.Query

	// 6. resolution body
	var (
		resolved string
		dep      *Module
		skipped  bool
	)
	if usage == UsageRequire && m.commonjsSearch() {
		// an alias value is a project path, not a package name: probe it
		// like a relative reference
		if aliasBase != "" || startsWith(pathname, "./", "../", "/") || pathname == "." || pathname == ".." {
			resolved = m.tryExtensions(m.File.ResolvePath(pathname))
		} else {
			resolved, dep, skipped = m.resolveSpecifier(pathname, index)
			if skipped {
				return nil
			}
		}
	} else {
		resolved = m.tryExtensions(m.File.ResolvePath(pathname))
	}

	// 7. fallback hook
	if resolved == "" && dep == nil && opts.Fallback != nil {
		if fb := opts.Fallback(m, url); fb != "" && m.builder.fileExists(fb) {
			resolved = fb
		}
	}

	// 8. not found
	if resolved == "" && dep == nil {
		def := SeverityError
		if usage == UsageInline {
			def = SeverityWarning
		}
		m.reportBySeverity(opts.NotFound, def, index, "cannot find '%s'", rawUrl)
		return nil
	}

	if dep == nil {
		var err error
		dep, err = m.builder.moduleByPath(resolved)
		if err != nil {
			m.File.report(SeverityError, index, err, "cannot load '%s'", rawUrl)
			return nil
		}
	}
	if load {
		dep.ensureLoaded()
	}
	return &ResolveResult{Module: dep, Query: query, Hash: hash, Alias: aliasBase}
}

// commonjsSearch reports whether bare specifiers go through the package
// lookup. CommonJS-style search is a script notion: stylesheets resolve
// their imports relative to the file unless explicitly configured.
func (m *Module) commonjsSearch() bool {
	if m.Options.Resolve.CommonJS != nil {
		return *m.Options.Resolve.CommonJS
	}
	return m.Type == ModuleJS
}

// applyAlias rewrites the url by the longest matching alias key. A key only
// matches a whole path segment prefix; trailing slashes on keys and values
// are ignored and the comparison is case-insensitive.
func applyAlias(url string, alias map[string]string) (string, bool) {
	lower := strings.ToLower(url)
	bestLen := -1
	bestValue := ""
	for k, v := range alias {
		key := strings.TrimSuffix(k, "/")
		if len(key) == 0 || len(key) > len(url) {
			continue
		}
		if !strings.HasPrefix(lower, strings.ToLower(key)) {
			continue
		}
		if len(url) > len(key) && url[len(key)] != '/' {
			continue
		}
		if len(key) > bestLen {
			bestLen = len(key)
			bestValue = strings.TrimSuffix(v, "/")
		}
	}
	if bestLen < 0 {
		return url, false
	}
	return bestValue + url[bestLen:], true
}

// tryExtensions probes the base path with each configured extension and
// returns the first existing file.
func (m *Module) tryExtensions(base string) string {
	if base == "" {
		return ""
	}
	for _, ext := range m.Options.extensions() {
		if m.builder.fileExists(base + ext) {
			return base + ext
		}
	}
	return ""
}

// resolveSpecifier resolves a bare CommonJS specifier: native shim table
// first, then the package lookup walking up parent directories, then the
// configured global roots. skipped is true when the url must be left as-is
// (node builtins on the nodejs target).
func (m *Module) resolveSpecifier(specifier string, index int) (resolved string, dep *Module, skipped bool) {
	if cached, ok := m.specifierCache[specifier]; ok {
		return cached, nil, false
	}

	// (a) native shim table
	if shim, isBuiltin := nativeShims[specifier]; isBuiltin {
		if m.effectiveTarget() == TargetNodejs {
			// the host runtime provides the builtin
			return "", nil, true
		}
		if m.Options.nativeShims() {
			if shim == "" {
				return "", m.builder.emptyModule(specifier), false
			}
			specifier = shim
		}
	}

	// (b) walk up parent directories probing each modules directory
	dirs := m.Options.modulesDirectories()
	for dir := m.File.Dir(); ; {
		for _, modulesDir := range dirs {
			candidate := path.Join(dir, modulesDir, specifier)
			if found := m.tryExtensions(candidate); found != "" {
				m.cacheSpecifier(specifier, found)
				return found, nil, false
			}
			if m.builder.dirExists(candidate) {
				if found := m.tryPackage(candidate); found != "" {
					m.cacheSpecifier(specifier, found)
					return found, nil, false
				}
			}
		}
		parent := path.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// (c) global roots
	for _, root := range m.Options.Resolve.Root {
		candidate := path.Join(toSlash(root), specifier)
		if found := m.tryExtensions(candidate); found != "" {
			m.cacheSpecifier(specifier, found)
			return found, nil, false
		}
		if m.builder.dirExists(candidate) {
			if found := m.tryPackage(candidate); found != "" {
				m.cacheSpecifier(specifier, found)
				return found, nil, false
			}
		}
	}
	return "", nil, false
}

func (m *Module) cacheSpecifier(specifier string, resolved string) {
	if m.specifierCache == nil {
		m.specifierCache = map[string]string{}
	}
	m.specifierCache[specifier] = resolved
}

// tryPackage resolves a package directory: the first string field among the
// configured package mains, then an index file probe.
func (m *Module) tryPackage(dir string) string {
	pkg, err := m.builder.readPackageJSON(path.Join(dir, "package.json"))
	if err == nil {
		for _, field := range m.Options.packageMains() {
			main, ok := pkg.fields[field].(string)
			if !ok || main == "" {
				continue
			}
			entry := path.Join(dir, main)
			if found := m.tryExtensions(entry); found != "" {
				m.checkPeerDependencies(dir, pkg)
				return found
			}
			if m.builder.dirExists(entry) {
				if found := m.tryIndex(entry); found != "" {
					m.checkPeerDependencies(dir, pkg)
					return found
				}
			}
			break
		}
	}
	if found := m.tryIndex(dir); found != "" {
		if err == nil {
			m.checkPeerDependencies(dir, pkg)
		}
		return found
	}
	return ""
}

func (m *Module) tryIndex(dir string) string {
	for _, ext := range m.Options.extensions() {
		if ext == "" {
			continue
		}
		filename := path.Join(dir, "index"+ext)
		if m.builder.fileExists(filename) {
			return filename
		}
	}
	return ""
}

// checkPeerDependencies verifies the peer dependency ranges of a resolved
// package against the versions actually installed near it.
func (m *Module) checkPeerDependencies(pkgDir string, pkg *packageJSON) {
	if !m.Options.Resolve.CheckPeerDeps || len(pkg.PeerDependencies) == 0 {
		return
	}
	for name, wanted := range pkg.PeerDependencies {
		constraint, err := semver.NewConstraint(wanted)
		if err != nil {
			continue
		}
		installed := m.findInstalledVersion(pkgDir, name)
		if installed == "" {
			log.Warnf("%s: peer dependency %s@%s is not installed", pkg.Name, name, wanted)
			continue
		}
		version, err := semver.NewVersion(installed)
		if err != nil {
			continue
		}
		if !constraint.Check(version) {
			log.Warnf("%s: installed %s@%s does not satisfy peer dependency range %q", pkg.Name, name, installed, wanted)
		}
	}
}

func (m *Module) findInstalledVersion(fromDir string, name string) string {
	for dir := fromDir; ; {
		pkg, err := m.builder.readPackageJSON(path.Join(dir, "node_modules", name, "package.json"))
		if err == nil && pkg.Version != "" {
			return pkg.Version
		}
		parent := path.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// buildUrl composes the emitted url for a resolved reference, relative to
// the module being written: public-path table or relative path, url
// postfix, then the preserved query and hash. The `?__inline`, `?__postfix`
// and `?__skip` markers never survive into the output.
func (m *Module) buildUrl(res *ResolveResult) string {
	target := toSlash(res.Module.File.Path)
	base := ""
	for prefix, public := range m.Options.URL.PublicPaths {
		p := strings.TrimSuffix(toSlash(prefix), "/")
		if strings.HasPrefix(target, p+"/") {
			base = strings.TrimSuffix(public, "/") + target[len(p):]
			break
		}
	}
	if base == "" {
		base = m.File.Relative(target)
	}

	// strip the markers from a copy: the result is read again each time the
	// module is emitted
	copied := *res
	res = &copied
	suppressPostfix := false
	if q := ResolveQuery(res, "__postfix"); q.Kind == QueryBytes && q.Bytes == 0 {
		suppressPostfix = true
	}
	ResolveQuery(res, "__inline")
	ResolveQuery(res, "__skip")

	query := res.Query
	if !suppressPostfix {
		postfix := m.postfixFor(base, res.Module)
		if postfix != "" {
			if postfix[0] == '?' {
				if query != "" {
					query += "&" + postfix[1:]
				} else {
					query = postfix
				}
			} else {
				base += postfix
			}
		}
	}
	return base + query + res.Hash
}

func (m *Module) postfixFor(url string, target *Module) string {
	if fn := m.Options.URL.PostfixFunc; fn != nil {
		return fn(m, url)
	}
	postfix := m.Options.URL.Postfix
	if postfix != "" && strings.Contains(postfix, "[hash]") && target != nil {
		hash := fmt.Sprintf("%016x", xxhash.Sum64(target.File.Data()))
		postfix = strings.ReplaceAll(postfix, "[hash]", hash[:8])
	}
	return postfix
}

// applyPostfix is the `__postfix(...)` macro body: the raw url with the
// configured postfix appended.
func (m *Module) applyPostfix(url string, target *Module) string {
	postfix := m.postfixFor(url, target)
	return url + postfix
}

// shouldInline decides whether a resolved reference embeds as a data URI:
// an explicit `?__inline` marker wins, otherwise the url.inline byte
// threshold applies.
func (m *Module) shouldInline(res *ResolveResult) bool {
	switch q := ResolveQuery(res, "__inline"); q.Kind {
	case QueryFlag:
		return true
	case QueryBytes:
		return int64(len(res.Module.File.Data())) <= q.Bytes
	}
	inline := m.Options.URL.Inline
	switch {
	case inline < 0:
		return true
	case inline == 0:
		return false
	}
	return int64(len(res.Module.File.Data())) <= inline
}

// setupExtractCss synthesises the sibling css module that collects the
// stylesheets this module requires.
func (m *Module) setupExtractCss(name string, index int) {
	if m.ExtractCss != nil {
		return
	}
	if name == "" {
		base := m.File.Name()
		name = strings.TrimSuffix(base, path.Ext(base)) + ".css"
	}
	filename := m.File.ResolvePath(name)
	m.ExtractCss = m.builder.syntheticModule(filename, ModuleCSS, nil, m.Options)
}
