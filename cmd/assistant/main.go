package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/okravets/llm-chat-assistant/config"
	"github.com/okravets/llm-chat-assistant/internal/app"
)

func main() {
	cfgPath := flag.String("config", "config/config.yml", "path to the yaml config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.Run(cfg); err != nil {
		log.Fatalf("app stopped: %v", err)
	}
}
