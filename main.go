package main

import (
	"github.com/custodia-labs/docwatch/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
