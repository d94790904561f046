// Command nightly runs the batch jobs once and exits, for manual triggers
// and external cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/studyforge/learning-engine/internal/app"
	"github.com/studyforge/learning-engine/internal/types"
)

func main() {
	var (
		revisionOnly = flag.Bool("revision-only", false, "run only the revision queue regeneration")
		fitOnly      = flag.Bool("fit-only", false, "run only the BKT parameter refit")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using process environment")
	}

	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	exitCode := 0

	if !*fitOnly {
		if err := a.Services.Nightly.RunRevision(ctx, types.TriggerManual); err != nil {
			a.Log.Error("Revision batch failed", "error", err)
			exitCode = 1
		}
	}
	if !*revisionOnly {
		if err := a.Services.Nightly.RunBKTFit(ctx, types.TriggerManual); err != nil {
			a.Log.Error("BKT fit batch failed", "error", err)
			exitCode = 1
		}
	}

	a.Stop()
	os.Exit(exitCode)
}
