//go:build lambda

package main

import (
	"context"
	"edsync/internal/app"
	"edsync/internal/types"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	err := godotenv.Load(envFile)
	if err != nil {
		log.Info("The .env file not found.")
	}
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := types.LoadConfigFile(os.Getenv("SITES_FILE"))
	if err != nil {
		log.Fatalf("Failed to load sites config: %v", err)
	}

	a, err := app.New(context.Background(), cfg, app.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	lambda.Start(a.HandleSQSEvent)
}
