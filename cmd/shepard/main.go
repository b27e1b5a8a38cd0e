package main

import (
	"fmt"
	"os"

	// Load .env (OPENAI_API_KEY, SHEPARD_*) before configuration is read
	_ "github.com/joho/godotenv/autoload"

	"github.com/ppiankov/shepard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
