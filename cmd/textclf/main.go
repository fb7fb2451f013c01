package main

import "textclf/internal/cli"

func main() {
	cli.Execute()
}
