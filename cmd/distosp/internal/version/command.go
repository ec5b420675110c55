package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/espeon/distosp/cmd/distosp/internal"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print distosp version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("distosp %s\n", internal.FormatVersion())
			build, goVer := internal.FormatBuildInfo()
			if build != "" {
				fmt.Printf("  built: %s\n", build)
			}
			fmt.Printf("  go:    %s\n", goVer)
		},
	}
}
