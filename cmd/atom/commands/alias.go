package commands

import (
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ekforge/atom/config"
	"github.com/ekforge/atom/display"
	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/uri"
)

// AliasCmd represents the alias command group
var AliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage the alias table",
	Long: `Manage the alias table used during URI resolution.

Built-in aliases (gh, gl, bb, sf) are always present; setting an alias
with the same name shadows the built-in. Aliases may reference other
aliases, as long as the graph stays acyclic.

Examples:
  atom alias list
  atom alias set org gh:work-org
  atom alias rm org`,
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the effective alias table",
	Long: `List the effective alias table: built-ins overlaid with configured
mappings.

With --watch the command stays alive, watching the user config file and
reprinting the table whenever it changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(cfg.AliasTable())
		}
		if err := renderAliasTable(cfg.AliasTable()); err != nil {
			return err
		}

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return watchAliasTable(cmd)
		}
		return nil
	},
}

// watchAliasTable blocks, reprinting the alias table on every config
// change, until interrupted.
func watchAliasTable(cmd *cobra.Command) error {
	path := config.UserConfigPath()
	if path == "" {
		return errors.New("could not determine home directory")
	}
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, "no user config to watch; `atom alias set` creates one")
	}

	w, err := config.NewWatcher(path)
	if err != nil {
		return err
	}
	defer w.Stop()
	w.OnReload(func(cfg *config.Config) error {
		return renderAliasTable(cfg.AliasTable())
	})
	config.SetGlobalWatcher(w)
	w.Start()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

func aliasTableData(table uri.Aliases) pterm.TableData {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	data := pterm.TableData{{"Alias", "Expansion"}}
	for _, name := range names {
		data = append(data, []string{name, table[name]})
	}
	return data
}

func renderAliasTable(table uri.Aliases) error {
	return pterm.DefaultTable.WithHasHeader().WithData(aliasTableData(table)).Render()
}

var aliasSetCmd = &cobra.Command{
	Use:   "set NAME VALUE",
	Short: "Persist an alias mapping to the user config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, value := args[0], args[1]

		// refuse a mapping that would make the table cyclic
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		trial := cfg.AliasTable().Merge(uri.Aliases{name: value})
		if _, err := trial.Resolve(name); err != nil && errors.Is(err, uri.ErrAliasCycle) {
			return err
		}

		if err := config.SetAlias(name, value); err != nil {
			return err
		}
		config.Reset()
		pterm.Success.Printf("%s = %s\n", name, value)
		return nil
	},
}

var aliasRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove an alias mapping from the user config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetAlias(args[0]); err != nil {
			return err
		}
		config.Reset()
		pterm.Success.Printf("removed %s\n", args[0])
		return nil
	},
}

func init() {
	aliasListCmd.Flags().Bool("watch", false, "keep running and reprint the table on config changes")
	AliasCmd.AddCommand(aliasListCmd)
	AliasCmd.AddCommand(aliasSetCmd)
	AliasCmd.AddCommand(aliasRmCmd)
}
