package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/espeon/distosp/cmd/distosp/internal"
	"github.com/espeon/distosp/cmd/distosp/internal/check"
	"github.com/espeon/distosp/cmd/distosp/internal/run"
	"github.com/espeon/distosp/cmd/distosp/internal/version"
)

func NewDistospCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "distosp",
		Short:   fmt.Sprintf("distosp - Discord to streamplace chat relay v%s", internal.GetVersion()),
		Example: "distosp run",
	}

	cmd.AddCommand(
		run.NewRunCommand(),
		check.NewCheckCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewDistospCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
