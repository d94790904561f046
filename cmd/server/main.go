package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/studyforge/learning-engine/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using process environment")
	}

	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	if err := a.Start(); err != nil {
		a.Log.Error("Failed to start", "error", err)
		a.Stop()
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.Log.Info("Shutting down...")
	a.Stop()
}
