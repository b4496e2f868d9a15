package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"docqa/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
