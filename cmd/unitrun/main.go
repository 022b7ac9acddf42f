package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gitlab.com/plantguard-2025.net/internal/adapter/logging"
	"gitlab.com/plantguard-2025.net/internal/cli"
	"gitlab.com/plantguard-2025.net/internal/config"
	"gitlab.com/plantguard-2025.net/internal/core/services/unittest"
	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/plantcare"
)

var version = "dev"

func main() {
	// .env is optional for the CLI
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "unitrun",
		Short:         "Table-driven unit test runner",
		Long:          `Run spreadsheet test tables against the functions and methods of registered projects, with optional mocks.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// keep engine logs out of the report unless asked for
	if os.Getenv("LOG_LEVEL") == "" {
		_ = os.Setenv("LOG_LEVEL", "warn")
	}
	logger := logging.NewZapLogger()
	defer logger.Sync()

	catalog := project.NewCatalog()
	if err := plantcare.Register(catalog); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}

	// Runs from the CLI are not persisted
	svc := unittest.NewUnitTestService(catalog, nil, nil, config.NewUnitTestConfig(), logger)
	cli.NewCommands(svc, os.Stdout, os.Stderr).Register(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cli.ErrCasesFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		// deferred calls do not run past os.Exit
		_ = logger.Sync()
		os.Exit(1)
	}
}
