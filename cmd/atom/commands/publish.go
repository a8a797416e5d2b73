package commands

import (
	"encoding/hex"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ekforge/atom/config"
	"github.com/ekforge/atom/display"
	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/publish"
	gitstore "github.com/ekforge/atom/store/git"
)

// PublishCmd represents the publish command
var PublishCmd = &cobra.Command{
	Use:   "publish [PATH]...",
	Short: "Discover and publish atoms under the given paths",
	Long: `Discover every atom manifest under the given paths (default: the whole
repository) and publish each slice into the atom store.

Each atom is processed independently: an invalid manifest or version
conflict fails that atom alone and the rest of the batch proceeds. The
command exits nonzero if any atom failed.

Only committed content is published; the slice is read from HEAD, not
the working tree.

Examples:
  atom publish                     # publish everything
  atom publish libs/mylib          # publish one atom
  atom publish libs vendor/zlib    # publish atoms under two roots
  atom publish --push              # publish, then push atom refs to the remote`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		s, err := gitstore.Open(".", gitstore.Options{MaxRefRetries: cfg.Publish.MaxRefRetries})
		if err != nil {
			return err
		}

		roots := args
		if len(roots) == 0 {
			roots = []string{s.WorktreeRoot()}
		}

		report, err := publish.NewPublisher(s, cfg.Publish.Workers).Run(cmd.Context(), roots...)
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			if err := display.OutputJSON(jsonReport(report)); err != nil {
				return err
			}
		} else {
			renderReport(report)
		}

		if push, _ := cmd.Flags().GetBool("push"); push {
			if err := s.Push(cmd.Context(), cfg.Publish.Remote); err != nil {
				return err
			}
		}

		if report.Failed() {
			return errors.Newf("%d of %d atoms failed", report.Stats.Failed, len(report.Outcomes))
		}
		return nil
	},
}

func init() {
	PublishCmd.Flags().Bool("push", false, "push atom refs to the configured remote after publishing")
}

type publishOutcome struct {
	Path     string `json:"path"`
	Status   string `json:"status"`
	Id       string `json:"id,omitempty"`
	Version  string `json:"version,omitempty"`
	Digest   string `json:"digest,omitempty"`
	Identity string `json:"identity,omitempty"`
	Error    string `json:"error,omitempty"`
}

type publishReport struct {
	BatchId   string           `json:"batch_id"`
	Published int              `json:"published"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Outcomes  []publishOutcome `json:"outcomes"`
}

func jsonReport(report *publish.Report) publishReport {
	out := publishReport{
		BatchId:   report.BatchId,
		Published: report.Stats.Published,
		Skipped:   report.Stats.Skipped,
		Failed:    report.Stats.Failed,
	}
	for _, o := range report.Outcomes {
		row := publishOutcome{Path: o.Path, Status: outcomeStatus(o)}
		if o.Record != nil {
			row.Id = o.Record.Id.String()
			row.Version = o.Record.Version.String()
			row.Digest = o.Record.Digest.String()
			row.Identity = hex.EncodeToString(o.Record.Identity[:])
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		out.Outcomes = append(out.Outcomes, row)
	}
	return out
}

func outcomeStatus(o publish.Outcome) string {
	switch {
	case errors.IsConflictError(o.Err):
		return "conflict"
	case o.Err != nil:
		return "failed"
	case o.Skipped:
		return "skipped"
	default:
		return "published"
	}
}

func renderReport(report *publish.Report) {
	data := pterm.TableData{{"Status", "Atom", "Version", "Digest", "Path"}}
	for _, o := range report.Outcomes {
		if o.Err != nil {
			data = append(data, []string{outcomeStatus(o), "", "", o.Err.Error(), o.Path})
			continue
		}
		data = append(data, []string{
			outcomeStatus(o),
			o.Record.Id.String(),
			o.Record.Version.String(),
			o.Record.Digest.String(),
			o.Path,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	if report.Failed() {
		pterm.Error.Printf("%d published, %d skipped, %d failed\n",
			report.Stats.Published, report.Stats.Skipped, report.Stats.Failed)
	} else {
		pterm.Success.Printf("%d published, %d skipped\n",
			report.Stats.Published, report.Stats.Skipped)
	}
}
