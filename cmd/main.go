package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/meghashyamc/deepfind/cli"
)

func main() {
	godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
