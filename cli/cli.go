package cli

import (
	"flag"
	"fmt"
	"os"
)

const helpMessage = "\033[30mtpack - A module bundler for web assets.\033[0m" + `

Usage: tpack [command] [options]

Commands:
  build [...entries]    Bundle the entry files and their dependencies
  serve                 Serve the build output directory
  version               Show the version

Options:
  --version, -v         Show the version
  --help, -h            Display this help message
`

// Run dispatches the command line.
func Run(version string) {
	if len(os.Args) < 2 {
		fmt.Print(helpMessage)
		return
	}
	switch command := os.Args[1]; command {
	case "build":
		Build()
	case "serve":
		Serve()
	case "version":
		fmt.Println("tpack " + version)
	default:
		for _, arg := range os.Args[1:] {
			if arg == "--version" {
				fmt.Println("tpack " + version)
				return
			}
			if arg == "-v" {
				fmt.Println(version)
				return
			}
		}
		fmt.Print(helpMessage)
	}
}

// parseCommandFlags parses the flags after the command name, before or after
// the positional arguments, and returns the positional arguments.
func parseCommandFlags() (args []string, help bool) {
	for _, arg := range os.Args[2:] {
		if arg == "--help" || arg == "-h" {
			return nil, true
		}
	}
	rest := os.Args[2:]
	for {
		flag.CommandLine.Parse(rest)
		rest = flag.Args()
		if len(rest) == 0 {
			return args, false
		}
		args = append(args, rest[0])
		rest = rest[1:]
	}
}
