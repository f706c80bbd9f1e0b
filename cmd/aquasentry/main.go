package main

import "github.com/sipca-labs/aquasentry/internal/cli"

func main() {
	cli.Execute()
}
