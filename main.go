package main

import (
	"tpack.sh/cli"
	"tpack.sh/pack"
)

func main() {
	cli.Run(pack.VERSION)
}
