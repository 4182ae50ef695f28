// Command formflow previews a form schema from the terminal: it loads a
// schema file, walks through the wizard with interactive prompts, and prints
// the assembled submission instead of persisting it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/foundersclub/formflow/internal/upload"
	"github.com/foundersclub/formflow/pkg/renderers/tui"
	"github.com/foundersclub/formflow/pkg/schemaio"
	"github.com/foundersclub/formflow/pkg/wizard"
)

func main() {
	_ = godotenv.Load()

	schemaPath := flag.String("schema", "", "path to a form schema file (json or yaml)")
	userID := flag.String("user", "preview", "user id to attribute the submission to")
	email := flag.String("email", "", "email to attribute the submission to")
	uploadDir := flag.String("upload-dir", "", "directory for file uploads; file fields are skipped when empty")
	flag.Parse()

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if *schemaPath == "" {
		logger.Fatal().Msg("-schema is required")
	}

	schema, err := schemaio.LoadFile(*schemaPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *schemaPath).Msg("load schema")
	}

	// Preview sessions print the payload rather than storing it.
	printer := wizard.SubmitterFunc(func(_ context.Context, payload wizard.Payload) (wizard.Receipt, error) {
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return wizard.Receipt{}, err
		}
		fmt.Println(string(encoded))
		return wizard.Receipt{ID: "preview"}, nil
	})

	ctrl, err := wizard.New(schema, printer)
	if err != nil {
		logger.Fatal().Err(err).Msg("build wizard")
	}

	var options []tui.Option
	if *uploadDir != "" {
		uploader, err := upload.New(*uploadDir, "file://"+*uploadDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("build uploader")
		}
		options = append(options, tui.WithUploader(uploader))
	}

	session, err := tui.NewSession(ctrl, schema, options...)
	if err != nil {
		logger.Fatal().Err(err).Msg("build session")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := session.Run(ctx, wizard.SubmitContext{
		Identity: wizard.Identity{UserID: *userID, Email: *email},
		EventID:  schema.EventID,
	}); err != nil {
		if errors.Is(err, tui.ErrAborted) || errors.Is(err, context.Canceled) {
			logger.Info().Msg("aborted")
			os.Exit(130)
		}
		logger.Fatal().Err(err).Msg("session failed")
	}
}
