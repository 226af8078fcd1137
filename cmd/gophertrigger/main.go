package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger"
)

// GTRIG_ENTITY_TABLES declares table backed entity types as
// name:table:idColumn:field1,field2 entries separated by semicolons.
const entityTablesSetting = "GTRIG_ENTITY_TABLES"

func main() {

	//you may do your own logger setup here or use this default one with slog
	gophertrigger.SetupLogger()

	app, err := gophertrigger.Setup(gophertrigger.Options{})
	if err != nil {
		slog.Error("Setup failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	for _, entry := range strings.Split(os.Getenv(entityTablesSetting), ";") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 4 {
			if entry != "" {
				slog.Warn("Ignoring malformed entity table", "entry", entry)
			}
			continue
		}
		if err := app.RegisterTableEntity(parts[0], parts[1], parts[2], strings.Split(parts[3], ",")); err != nil {
			slog.Error("Failed to register entity type", "entry", entry, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx); err != nil {
		slog.Error("Engine exited with error", "error", err)
	}
}
