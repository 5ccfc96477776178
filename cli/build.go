package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	logx "github.com/ije/gox/log"
	"github.com/ije/gox/term"
	"tpack.sh/internal/jsonc"
	"tpack.sh/pack"
)

const buildHelpMessage = `Bundle the entry files and everything they reference.

Usage: tpack build [...entries] [options]

Arguments:
  entries      Entry files to bundle (html, js or css)

Options:
  --config     Config file path, default is "tpack.config.json"
  --out-dir    Output directory, default is "dist"
  --target     Output target: browser | nodejs | tpack | requirejs
  --source-map Emit source maps
  --debug      Verbose logging
  --help, -h   Show help message
`

// Build bundles the given entry files per the project config.
func Build() {
	config := flag.String("config", "tpack.config.json", "config file path")
	outDir := flag.String("out-dir", "", "output directory")
	target := flag.String("target", "", "output target")
	sourceMap := flag.Bool("source-map", false, "emit source maps")
	debug := flag.Bool("debug", false, "verbose logging")
	args, help := parseCommandFlags()

	if help {
		fmt.Print(buildHelpMessage)
		return
	}
	if len(args) == 0 {
		fmt.Print(buildHelpMessage)
		os.Exit(1)
	}

	options, err := loadOptions(*config)
	if err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		os.Exit(1)
	}
	if *outDir != "" {
		options.Output.Path = *outDir
	}
	if options.Output.Path == "" {
		options.Output.Path = "dist"
	}
	if *target != "" {
		options.Target = *target
	}
	if *sourceMap {
		options.Output.SourceMap = true
	}

	logger := &logx.Logger{}
	if *debug {
		logger.SetLevelByName("debug")
	} else {
		logger.SetLevelByName("info")
	}
	pack.SetLogger(logger)

	builder := pack.NewBuilder(options)
	metaDB, err := openMetaDB(options.Output.Path)
	if err == nil {
		builder.SetMetaDB(metaDB)
		defer metaDB.Close()
	}

	t0 := time.Now()
	failed := 0
	for _, entry := range args {
		filename, err := filepath.Abs(entry)
		if err != nil {
			os.Stderr.WriteString(term.Red(fmt.Sprintf("resolve %s: %v\n", entry, err)))
			failed++
			continue
		}
		module, err := builder.GetModuleByPath(filename)
		if err != nil {
			os.Stderr.WriteString(term.Red(err.Error()) + "\n")
			failed++
			continue
		}
		if err := module.Save(); err != nil {
			os.Stderr.WriteString(term.Red(fmt.Sprintf("save %s: %v\n", entry, err)))
			failed++
			continue
		}
		for _, d := range module.File.Diagnostics {
			os.Stderr.WriteString(term.Dim(entry+": ") + d.String() + "\n")
		}
	}

	written, skipped := 0, 0
	for _, out := range builder.Outputs {
		if out.Skipped {
			skipped++
		} else {
			written++
		}
	}
	if failed > 0 {
		os.Stderr.WriteString(term.Red(fmt.Sprintf("%d of %d entries failed\n", failed, len(args))))
		os.Exit(1)
	}
	fmt.Printf(term.Green("Done in %dms")+term.Dim(" (%d outputs, %d unchanged)")+"\n",
		time.Since(t0).Milliseconds(), written, skipped)
}

// loadOptions reads the project config; comments and trailing commas are
// allowed.
func loadOptions(filename string) (*pack.Options, error) {
	options := &pack.Options{}
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return options, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(jsonc.StripJSONC(data), options); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filename, err)
	}
	return options, nil
}

func openMetaDB(outDir string) (pack.Database, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	return pack.OpenBoltDB(path.Join(outDir, ".tpack.meta"))
}
