package main

import (
	"edsync/cmd/edsync/cmds"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debug("The .env file not found.")
	}

	if err := cmds.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
