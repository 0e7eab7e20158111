package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-invoicing-client/internal/logger"
	"github.com/goliatone/go-invoicing-client/normalize"
	"github.com/goliatone/go-invoicing-client/pkg/di"
)

var version = "0.1.0"

// ContainerFactory builds the client graph for a command invocation.
type ContainerFactory func(ctx context.Context) (*di.Container, error)

type app struct {
	factory   ContainerFactory
	container *di.Container
}

// NewRootCommand returns the invoicing command tree and a func releasing
// the container built by the executed command. The container is built
// lazily so help and usage work without configuration.
func NewRootCommand(factory ContainerFactory) (*cobra.Command, func() error) {
	a := &app{factory: factory}

	root := &cobra.Command{
		Use:   "invoicing",
		Short: "Command-line client for the invoicing backend",
		Long: `invoicing talks to the accounting backend: persons, invoices and
revenue statistics, with email and password authentication.

The session token is persisted between invocations (see INVOICING_SESSION_BACKEND).

Required environment variables:
  INVOICING_API_URL - Base URL of the backend, e.g. http://localhost:8080`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCommand(a),
		newGoogleLoginCommand(a),
		newRegisterCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newPersonsCommand(a),
		newInvoicesCommand(a),
	)

	return root, a.close
}

// Execute runs the command tree against the process streams and returns
// the exit code.
func Execute(ctx context.Context, factory ContainerFactory, args []string) int {
	return Run(ctx, factory, args, os.Stdout, os.Stderr)
}

// Run runs the command tree with args and returns the exit code.
func Run(ctx context.Context, factory ContainerFactory, args []string, stdout, stderr io.Writer) int {
	log := logger.WithComponent("cmd")

	root, closeApp := NewRootCommand(factory)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := closeApp(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("Failed to release client resources")
	}

	if err != nil {
		log.Debug().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) get(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	c, err := a.factory(ctx)
	if err != nil {
		return nil, err
	}
	a.container = c
	return c, nil
}

func (a *app) close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (normalize.ID, error) {
	id, err := normalize.ParseID(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
