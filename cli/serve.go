package cli

import (
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ije/gox/term"
	"github.com/ije/gox/utils"
	"github.com/ije/rex"
	"tpack.sh/internal/mime"
)

const serveHelpMessage = `Serve the build output directory.

Usage: tpack serve [dir] [options]

Arguments:
  dir          Directory to serve, default is "dist"

Options:
  --port       Port to serve on, default is 8080
  --help, -h   Show help message
`

// Serve serves the build output over http.
func Serve() {
	port := flag.Int("port", 8080, "port to serve on")
	args, help := parseCommandFlags()

	if help {
		fmt.Print(serveHelpMessage)
		return
	}

	dir := "dist"
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err == nil {
		var fi os.FileInfo
		fi, err = os.Stat(dir)
		if err == nil && !fi.IsDir() {
			err = fmt.Errorf("stat %s: not a directory", dir)
		}
	}
	if err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		os.Exit(1)
	}

	rex.Use(
		rex.Header("Server", "tpack"),
		func(ctx *rex.Context) any {
			pathname := utils.NormalizePathname(ctx.R.URL.Path)
			if strings.HasSuffix(pathname, "/") {
				pathname += "index.html"
			}
			filename := filepath.Join(dir, filepath.FromSlash(pathname))
			if !strings.HasPrefix(filename, dir) || path.Base(filename) == ".tpack.meta" {
				return rex.Status(404, "not found")
			}
			fi, err := os.Lstat(filename)
			if err != nil || fi.IsDir() {
				return rex.Status(404, "not found")
			}
			file, err := os.Open(filename)
			if err != nil {
				return rex.Status(500, err.Error())
			}
			ctx.SetHeader("Content-Type", mime.GetContentType(filename))
			ctx.SetHeader("Cache-Control", "no-cache")
			return rex.Content(pathname, fi.ModTime(), file) // auto closed
		},
	)

	C := rex.Serve(rex.ServerConfig{
		Port: uint16(*port),
	})
	fmt.Printf(term.Green("Server is ready on http://localhost:%d\n"), *port)
	if err := <-C; err != nil {
		os.Stderr.WriteString(term.Red(err.Error()) + "\n")
		os.Exit(1)
	}
}
