package main

import "github.com/kedgaks/golos/cli"

func main() {
	cli.Execute()
}
