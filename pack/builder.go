package pack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ije/esbuild-internal/xxhash"
	"github.com/ije/gox/set"
	syncx "github.com/ije/gox/sync"
	"tpack.sh/internal/jsonc"
	"tpack.sh/internal/mime"
)

const pkgCacheCapacity = 512

// Builder is one build session: it owns the module cache (one module per
// file), the package.json parse cache, the filesystem probes, and the
// output sink. The probes are swappable so hosts and tests can virtualise
// the filesystem.
type Builder struct {
	ExistsFile func(filename string) bool
	ExistsDir  func(dirname string) bool
	ReadFile   func(filename string) ([]byte, error)

	// Outputs collects the composed results keyed by output name; it is
	// filled by Save whether or not an output directory is configured.
	Outputs map[string]*Output

	options    *Options
	modules    map[string]*Module
	modulesMu  sync.Mutex
	loadMu     syncx.KeyedMutex
	pkgCache   *lru.Cache[string, *packageJSON]
	attrRegexps map[string]*regexp.Regexp
	attrMu     sync.Mutex
	metaDB     Database
}

// Output is one composed artifact.
type Output struct {
	Name      string
	Data      []byte
	SourceMap []byte
	Skipped   bool
}

// NewBuilder creates a build session over the given base options.
func NewBuilder(options *Options) *Builder {
	if options == nil {
		options = &Options{}
	}
	pkgCache, err := lru.New[string, *packageJSON](pkgCacheCapacity)
	if err != nil {
		panic(err)
	}
	return &Builder{
		ExistsFile:  existsFile,
		ExistsDir:   existsDir,
		ReadFile:    os.ReadFile,
		Outputs:     map[string]*Output{},
		options:     options,
		modules:     map[string]*Module{},
		pkgCache:    pkgCache,
		attrRegexps: map[string]*regexp.Regexp{},
	}
}

// SetMetaDB attaches a build-meta database; Save then skips outputs whose
// content hash has not changed since the recorded build.
func (b *Builder) SetMetaDB(db Database) {
	b.metaDB = db
}

// GetModule returns the module of the file, creating and loading it on
// first use. Creation is memoised per file path, so every parent that
// resolves to the same file shares one module.
func (b *Builder) GetModule(file *File, options *Options) *Module {
	key := toSlash(file.Path)
	b.modulesMu.Lock()
	if m, ok := b.modules[key]; ok {
		b.modulesMu.Unlock()
		return m
	}
	b.modulesMu.Unlock()

	unlock := b.loadMu.Lock(key)
	defer unlock()

	b.modulesMu.Lock()
	if m, ok := b.modules[key]; ok {
		b.modulesMu.Unlock()
		return m
	}
	b.modulesMu.Unlock()

	if options == nil {
		options = b.options
	}
	m := b.newModule(file, options)
	b.modulesMu.Lock()
	b.modules[key] = m
	b.modulesMu.Unlock()
	m.ensureLoaded()
	return m
}

// GetModuleByPath reads the file from the filesystem and returns its
// module.
func (b *Builder) GetModuleByPath(filename string) (*Module, error) {
	m, err := b.moduleByPath(filename)
	if err == nil {
		m.ensureLoaded()
	}
	return m, err
}

// moduleByPath returns the registered module of the path, creating it
// without loading when it is new. Loading is a separate step so a caller
// can record a graph edge before the dependency's own scan runs (the
// circular-include check depends on that ordering).
func (b *Builder) moduleByPath(filename string) (*Module, error) {
	key := toSlash(filename)
	b.modulesMu.Lock()
	m, ok := b.modules[key]
	b.modulesMu.Unlock()
	if ok {
		return m, nil
	}
	data, err := b.ReadFile(filepath.FromSlash(filename))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	unlock := b.loadMu.Lock(key)
	defer unlock()

	b.modulesMu.Lock()
	if m, ok := b.modules[key]; ok {
		b.modulesMu.Unlock()
		return m, nil
	}
	m = b.newModule(NewFile(key, data), b.options)
	b.modules[key] = m
	b.modulesMu.Unlock()
	return m, nil
}

func (b *Builder) newModule(file *File, options *Options) *Module {
	opts := options.optionsFor(file)
	moduleType, ok := moduleTypeExts[file.Ext()]
	if !ok {
		moduleType = ModuleResource
		if !mime.IsText(file.Name()) {
			moduleType = ModuleBinary
		}
	}
	m := &Module{
		File:            file,
		Source:          NewFile(file.Path, file.Data()),
		Options:         opts,
		Type:            moduleType,
		Target:          opts.target(),
		builder:         b,
		includes:        newModuleList(),
		requires:        newModuleList(),
		externals:       newModuleList(),
		handledKeywords: set.New[string](),
	}
	return m
}

// syntheticModule creates (and loads) a module that has no backing file:
// inline script/style fragments and extracted css sheets.
func (b *Builder) syntheticModule(name string, moduleType ModuleType, data []byte, options *Options) *Module {
	key := toSlash(name)
	b.modulesMu.Lock()
	if m, ok := b.modules[key]; ok {
		b.modulesMu.Unlock()
		return m
	}
	b.modulesMu.Unlock()

	m := b.newModule(NewFile(key, data), options)
	m.Type = moduleType
	b.modulesMu.Lock()
	b.modules[key] = m
	b.modulesMu.Unlock()
	m.ensureLoaded()
	return m
}

// emptyModule returns the stub module that stands in for a node builtin
// with no browser emulation.
func (b *Builder) emptyModule(name string) *Module {
	return b.syntheticModule("tpack:empty/"+name+".js", ModuleJS, nil, b.options)
}

func (b *Builder) fileExists(filename string) bool {
	return b.ExistsFile(filepath.FromSlash(filename))
}

func (b *Builder) dirExists(dirname string) bool {
	return b.ExistsDir(filepath.FromSlash(dirname))
}

// packageJSON is the parsed view of one package.json: the raw fields (the
// configured package mains are looked up by name) plus the typed bits the
// resolver needs.
type packageJSON struct {
	fields           map[string]any
	Name             string
	Version          string
	PeerDependencies map[string]string
}

// readPackageJSON parses a package.json, memoised per builder. Comments
// and trailing commas are tolerated: some toolchains leave them behind.
func (b *Builder) readPackageJSON(filename string) (*packageJSON, error) {
	key := toSlash(filename)
	if pkg, ok := b.pkgCache.Get(key); ok {
		if pkg == nil {
			return nil, os.ErrNotExist
		}
		return pkg, nil
	}
	data, err := b.ReadFile(filepath.FromSlash(filename))
	if err != nil {
		b.pkgCache.Add(key, nil)
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(jsonc.StripJSONC(data), &fields); err != nil {
		b.pkgCache.Add(key, nil)
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	pkg := &packageJSON{fields: fields}
	if name, ok := fields["name"].(string); ok {
		pkg.Name = name
	}
	if version, ok := fields["version"].(string); ok {
		pkg.Version = version
	}
	if peers, ok := fields["peerDependencies"].(map[string]any); ok {
		pkg.PeerDependencies = map[string]string{}
		for name, rng := range peers {
			if s, ok := rng.(string); ok {
				pkg.PeerDependencies[name] = s
			}
		}
	}
	b.pkgCache.Add(key, pkg)
	return pkg, nil
}

// attrRegexp returns the cached regexp matching one named attribute inside
// an open tag.
func (b *Builder) attrRegexp(name string) *regexp.Regexp {
	b.attrMu.Lock()
	defer b.attrMu.Unlock()
	re, ok := b.attrRegexps[name]
	if !ok {
		re = regexp.MustCompile(`(?i)\s` + regexp.QuoteMeta(name) + `(\s*=\s*("[^"]*"|'[^']*'|[^\s>]*))?`)
		b.attrRegexps[name] = re
	}
	return re
}

// writeOutput lands one composed artifact: in memory always, and on disk
// beneath output.path when configured. With a meta database attached,
// byte-identical outputs are skipped.
func (b *Builder) writeOutput(m *Module, outName string, w *Writer) error {
	out := &Output{Name: outName, Data: w.Bytes()}
	sourceMap := w.SourceMap(outName)
	if sourceMap != nil {
		mapRef := outName + ".map"
		switch m.Type {
		case ModuleCSS:
			w.WriteString(EOL + "/*# sourceMappingURL=" + mapRef + " */")
		case ModuleJS:
			w.WriteString(EOL + "//# sourceMappingURL=" + mapRef)
		}
		out.Data = w.Bytes()
		out.SourceMap = sourceMap
	}
	b.Outputs[outName] = out

	outDir := m.Options.Output.Path
	if outDir == "" {
		return nil
	}
	outPath := filepath.Join(filepath.FromSlash(outDir), filepath.FromSlash(outName))

	hash := fmt.Sprintf("%016x", xxhash.Sum64(out.Data))
	if b.metaDB != nil {
		recorded, _ := b.metaDB.Get(outPath)
		if string(recorded) == hash && existsFile(outPath) {
			out.Skipped = true
			log.Debugf("output %s unchanged, skipped", outName)
			return nil
		}
	}

	if err := ensureDir(filepath.Dir(outPath)); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, out.Data, 0644); err != nil {
		return err
	}
	if out.SourceMap != nil {
		if err := os.WriteFile(outPath+".map", out.SourceMap, 0644); err != nil {
			return err
		}
	}
	if b.metaDB != nil {
		if err := b.metaDB.Put(outPath, []byte(hash)); err != nil {
			log.Warnf("record build meta of %s: %v", outName, err)
		}
	}
	log.Debugf("output %s written (%d bytes)", outName, len(out.Data))
	return nil
}
