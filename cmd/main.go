package main

import (
	"os"

	"github.com/sjvalley/go-airchat/cmd/airchat"
)

func main() {
	if err := airchat.Execute(); err != nil {
		os.Exit(1)
	}
}
