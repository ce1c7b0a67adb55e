package cli

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every command
type RootOptions struct {
	// EnvFile is loaded before the command runs; variables already set win
	EnvFile string
}

// NewRootCommand creates the applebot command tree
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "applebot",
		Short: "Discord bot that keeps a live gateway session",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(opts.EnvFile); err != nil {
				log.Printf("No %s file loaded: %v", opts.EnvFile, err)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "file of environment variables to load")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))

	return cmd
}
