package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ekforge/atom/cmd/atom/commands"
	"github.com/ekforge/atom/config"
	"github.com/ekforge/atom/logger"
)

var rootCmd = &cobra.Command{
	Use:   "atom",
	Short: "atom - content-addressed, version-aware atom store",
	Long: `atom - publish and verify independently versioned slices of a repository.

An atom is a verifiable slice of a repository, described by an atom.toml
manifest and addressed by a compact URI. Atoms are published into an
append-only store inside the repository itself, keyed by a canonical
content digest that is independent of git's own hashing.

Available commands:
  init     - Initialize the repository as an atom store
  publish  - Discover and publish atoms under the given paths
  resolve  - Parse an atom URI and print the resolved locator
  verify   - Verify a published atom against its recorded digest
  alias    - Manage the alias table
  version  - Show version information

Examples:
  atom init                        # anchor the store to this repository
  atom publish                     # publish every atom in the repository
  atom publish libs/mylib          # publish one atom
  atom resolve gh:owner/repo::zlib@^1
  atom verify mylib@^1.0`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")

		jsonLogs := false
		if cfg, err := config.Load(); err == nil {
			jsonLogs = cfg.Log.JSON
		}
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json", false, "Output results in JSON format")

	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.PublishCmd)
	rootCmd.AddCommand(commands.ResolveCmd)
	rootCmd.AddCommand(commands.VerifyCmd)
	rootCmd.AddCommand(commands.AliasCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
