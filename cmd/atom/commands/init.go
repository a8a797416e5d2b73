package commands

import (
	"encoding/hex"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ekforge/atom/display"
	gitstore "github.com/ekforge/atom/store/git"
)

// InitCmd represents the init command
var InitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Initialize a repository as an atom store",
	Long: `Initialize the repository containing PATH (default: the current
directory) as an atom store.

Initialization records the oldest ancestor of HEAD as the store root.
Atom identity hashes are keyed by this root, so the same atom id in two
unrelated repositories never collides. Running init twice is harmless.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}

		s, err := gitstore.Open(path, gitstore.Options{})
		if err != nil {
			return err
		}
		if err := s.Init(cmd.Context()); err != nil {
			return err
		}
		root, err := s.Root()
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(map[string]string{"root": hex.EncodeToString(root)})
		}
		pterm.Success.Printf("Store initialized, root %s\n", hex.EncodeToString(root))
		return nil
	},
}
