package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmerge/internal/config"
	"github.com/matsen/pubmerge/internal/dedupe"
	"github.com/matsen/pubmerge/internal/storage"
)

var (
	auditDBPath string
	auditRunID  string
)

func init() {
	auditCmd.PersistentFlags().StringVar(&auditDBPath, "db", "", "Audit database written by run --audit-db")
	_ = auditCmd.MarkPersistentFlagRequired("db")
	auditLogCmd.Flags().StringVar(&auditRunID, "run", "", "Run id")
	_ = auditLogCmd.MarkFlagRequired("run")
	auditCmd.AddCommand(auditRunsCmd, auditLogCmd)
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect recorded runs",
}

var auditRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAudit(func(a *storage.Audit) error {
			return listRuns(cmd.OutOrStdout(), a)
		})
	},
}

var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the removals and review decisions of a run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAudit(func(a *storage.Audit) error {
			return showRunLog(cmd.OutOrStdout(), a, auditRunID)
		})
	},
}

func withAudit(fn func(*storage.Audit) error) error {
	a, err := storage.OpenAudit(config.ExpandPath(auditDBPath))
	if err != nil {
		return withCode(ExitDataError, err)
	}
	defer a.Close()
	return fn(a)
}

func listRuns(w io.Writer, a *storage.Audit) error {
	runs, err := a.ListRuns()
	if err != nil {
		return err
	}
	if !humanOutput {
		if runs == nil {
			runs = []storage.Run{}
		}
		return outputJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %d batches  %d -> %d records (%d auto-removed, %d pending)\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Batches,
			r.Summary.Initial, r.Summary.Final, r.Summary.AutoRemoved, r.Summary.PendingReview)
	}
	return nil
}

// RunLogResponse is the JSON form of audit log.
type RunLogResponse struct {
	Run       *storage.Run             `json:"run"`
	Removals  []dedupe.LogEntry        `json:"removals"`
	Decisions []storage.StoredDecision `json:"decisions"`
}

func showRunLog(w io.Writer, a *storage.Audit, runID string) error {
	run, err := a.GetRun(runID)
	if err != nil {
		return withCode(ExitDataError, err)
	}
	entries, err := a.LogEntries(runID)
	if err != nil {
		return err
	}
	decisions, err := a.Decisions(runID)
	if err != nil {
		return err
	}

	if !humanOutput {
		resp := RunLogResponse{Run: run, Removals: entries, Decisions: decisions}
		if entries == nil {
			resp.Removals = []dedupe.LogEntry{}
		}
		if decisions == nil {
			resp.Decisions = []storage.StoredDecision{}
		}
		return outputJSON(w, resp)
	}

	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.StartedAt.Local().Format(time.DateTime))
	printSummaryHuman(w, run.Summary)
	if len(entries) > 0 {
		fmt.Fprintln(w, "\nRemoved:")
		for _, e := range entries {
			fmt.Fprintf(w, "  %-16s %-10s %s\n", e.Removed.ID, e.MatchedBy, truncateString(e.Removed.Title, AuditTitleMaxLen))
			fmt.Fprintf(w, "  %-16s kept %s: %s\n", "", e.KeptID, truncateString(e.KeptTitle, AuditTitleMaxLen))
		}
	}
	if len(decisions) > 0 {
		fmt.Fprintln(w, "\nReview decisions:")
		for _, d := range decisions {
			fmt.Fprintf(w, "  batch %q group %d: kept %s; discarded %s\n",
				d.Batch, d.GroupIndex, formatIDList(d.Kept), formatIDList(d.Discarded))
		}
	}
	return nil
}
