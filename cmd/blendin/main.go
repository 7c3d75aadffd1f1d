package main

import "github.com/mcoot/blendin/internal/cli"

func main() {
	cli.Execute()
}
