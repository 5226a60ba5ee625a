package main

import "github.com/vietddude/crashguard/internal/cli"

func main() {
	cli.Execute()
}
