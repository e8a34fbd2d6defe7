package main

import (
	"log"

	"github.com/example/srsengine/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Fatalf("srsengine: %v", err)
	}
}
