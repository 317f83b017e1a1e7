package main

import (
	"github.com/joho/godotenv"

	"power-price-tracker/internal/cli"
)

func main() {
	// Optional .env for local development; real deployments use config.yaml
	// or POWERTRACKER_* environment variables.
	_ = godotenv.Load()

	cli.Execute()
}
