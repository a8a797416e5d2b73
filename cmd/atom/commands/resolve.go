package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ekforge/atom/config"
	"github.com/ekforge/atom/display"
	"github.com/ekforge/atom/uri"
)

// ResolveCmd represents the resolve command
var ResolveCmd = &cobra.Command{
	Use:   "resolve URI",
	Short: "Parse an atom URI and print the resolved locator",
	Long: `Parse an atom URI, expand its alias through the alias table, apply
scheme defaulting, and print the fully-qualified locator.

Examples:
  atom resolve gh:owner/repo::zlib@^1
  atom resolve git@gh:owner/repo::mylib
  atom resolve pkgs::zlib          # with a configured pkgs alias`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		u, err := uri.Parse(args[0])
		if err != nil {
			return err
		}
		loc, err := u.Resolve(cfg.AliasTable())
		if err != nil {
			return err
		}

		version := ""
		if loc.Version != nil {
			version = loc.Version.String()
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(map[string]string{
				"url":      loc.TransportURL,
				"fragment": loc.Fragment,
				"id":       loc.Id.String(),
				"version":  version,
			})
		}

		data := pterm.TableData{
			{"URL", loc.TransportURL},
			{"Atom", loc.Id.String()},
		}
		if loc.Fragment != "" {
			data = append(data, []string{"Fragment", loc.Fragment})
		}
		if version != "" {
			data = append(data, []string{"Version", version})
		}
		return pterm.DefaultTable.WithData(data).Render()
	},
}
