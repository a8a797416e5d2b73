package commands

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ekforge/atom/config"
	"github.com/ekforge/atom/display"
	gitstore "github.com/ekforge/atom/store/git"
	"github.com/ekforge/atom/uri"
)

// VerifyCmd represents the verify command
var VerifyCmd = &cobra.Command{
	Use:   "verify TARGET",
	Short: "Verify a published atom against its recorded digest",
	Long: `Resolve TARGET in an atom store, recompute the digest of the stored
slice, and compare it to the digest recorded at publish time.

A bare id (optionally with a version requirement) is looked up in the
local store. A full atom URI names a remote repository: its atom refs
are fetched over the resolved transport URL and verified in memory,
bounded by --timeout.

A mismatch means the store content no longer matches what was published
and is reported as an integrity error.

Examples:
  atom verify mylib                       # verify the latest local record
  atom verify mylib@^1.0                  # verify the newest local 1.x record
  atom verify gh:my-org/pkgs::mylib       # fetch and verify from a remote`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := uri.Parse(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var s *gitstore.Store
		if remoteTarget(u) {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			loc, err := u.Resolve(cfg.AliasTable())
			if err != nil {
				return err
			}

			timeout, _ := cmd.Flags().GetDuration("timeout")
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()

			s, err = gitstore.OpenRemote(ctx, loc.TransportURL)
			if err != nil {
				return err
			}
		} else {
			s, err = gitstore.Open(".", gitstore.Options{})
			if err != nil {
				return err
			}
		}

		rec, err := s.Verify(ctx, u.Id, u.Version)
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(map[string]string{
				"id":       rec.Id.String(),
				"version":  rec.Version.String(),
				"digest":   rec.Digest.String(),
				"identity": hex.EncodeToString(rec.Identity[:]),
				"path":     rec.Path,
				"src":      rec.Src,
				"ref":      rec.Ref,
			})
		}
		pterm.Success.Printf("%s@%s verified, digest %s\n", rec.Id, rec.Version, rec.Digest)
		return nil
	},
}

func init() {
	VerifyCmd.Flags().Duration("timeout", time.Minute, "bound on fetching atom refs from a remote")
}

// remoteTarget reports whether the URI names a repository rather than a
// bare id in the local store.
func remoteTarget(u *uri.Uri) bool {
	return u.Scheme != "" || u.Alias != "" || u.HasUser || u.Frag != ""
}
