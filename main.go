package main

import "github.com/jasperwreed/recall/internal/cli"

func main() {
	cli.Execute()
}
