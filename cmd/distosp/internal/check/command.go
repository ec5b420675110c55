package check

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/espeon/distosp/pkg/config"
	"github.com/espeon/distosp/pkg/directory"
)

// NewCheckCommand reports the effective configuration without connecting
// to Discord or the PDS.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Inspect the relay configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return checkCmd()
		},
	}
}

func checkCmd() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("Credentials:")
	printCredential("DISCORD_TOKEN", cfg.DiscordToken)
	printCredential("ATP_HANDLE", cfg.ATPHandle)
	printCredential("ATP_APP_PASSWORD", cfg.ATPAppPassword)
	printCredential("SLACK_BOT_TOKEN", cfg.SlackBotToken)
	printCredential("SLACK_APP_TOKEN", cfg.SlackAppToken)

	fmt.Println()
	fmt.Printf("ATP host:       %s\n", cfg.ATPHost)
	fmt.Printf("Command prefix: %q\n", cfg.CommandPrefix)
	fmt.Printf("Source label:   %s\n", cfg.SourceLabel)

	dir, malformed := directory.Parse(cfg.ChannelMappings)
	fmt.Println()
	if dir.Len() == 0 {
		fmt.Println("Channel mappings: none (nothing will be forwarded)")
	} else {
		fmt.Printf("Channel mappings (%d):\n", dir.Len())
		all := dir.All()
		ids := make([]string, 0, len(all))
		for id := range all {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("  %s -> %s\n", id, all[id])
		}
	}
	for _, pair := range malformed {
		fmt.Printf("  ✗ malformed pair: %q\n", pair)
	}

	fmt.Println()
	if err := cfg.Validate(); err != nil {
		fmt.Printf("✗ %v\n", err)
	} else {
		fmt.Println("✓ Configuration looks ready")
	}
	return nil
}

func printCredential(name, value string) {
	mark := "✗"
	if value != "" {
		mark = "✓"
	}
	fmt.Printf("  %s %-18s %s\n", mark, name, presence(value))
}

func presence(value string) string {
	if value == "" {
		return "not set"
	}
	return "set"
}
