package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/cli/appctx"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/db"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/render"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage the migration state database",
	Long: `The state database records which cards were migrated to which tasks and
which card links are still waiting for their other end, per board and
project. It is a SQLite file by default; set T2K_STATE_PATH or --state to a
postgres:// DSN to share it between machines.`,
}

var stateInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the state database",
	RunE:  runStateInit,
}

var stateLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recorded migration runs",
	RunE:  appctx.WithApp(appctx.Options{NeedsState: true}, runStateLs),
}

var stateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the progress recorded for a board and project",
	Long: `Removes the migrated cards, pending links and runs recorded for a board
and project, so the next migrate starts from scratch. Tasks already created
in Kanboard are not touched.`,
	RunE: appctx.WithApp(appctx.Options{NeedsState: true}, runStateClear),
}

var (
	stateInitStatus   bool
	stateLsLimit      int
	stateClearBoard   string
	stateClearProject int
	stateClearYes     bool
)

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateInitCmd, stateLsCmd, stateClearCmd)

	stateInitCmd.Flags().BoolVar(&stateInitStatus, "status", false, "Show applied and pending migrations without changing anything")

	stateLsCmd.Flags().IntVarP(&stateLsLimit, "limit", "n", 20, "Number of runs to show (0 for all)")

	stateClearCmd.Flags().StringVar(&stateClearBoard, "board", "", "Trello board id (required)")
	stateClearCmd.Flags().IntVar(&stateClearProject, "project", 0, "Kanboard project id (required)")
	stateClearCmd.Flags().BoolVarP(&stateClearYes, "yes", "y", false, "Do not ask for confirmation")
	stateClearCmd.MarkFlagRequired("board")
	stateClearCmd.MarkFlagRequired("project")
}

func runStateInit(cmd *cobra.Command, args []string) error {
	app, err := appctx.Bootstrap(cmd, appctx.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	database, err := db.Open(app.Config.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer database.Close()

	out := cmd.OutOrStdout()
	if stateInitStatus {
		applied, pending, err := database.MigrationStatus()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "State database: %s\n", database.Path())
		for _, m := range applied {
			fmt.Fprintf(out, "  applied  %s\n", m)
		}
		for _, m := range pending {
			fmt.Fprintf(out, "  pending  %s\n", m)
		}
		return nil
	}

	applied, err := database.MigrateWithInfo()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if len(applied) == 0 {
		fmt.Fprintf(out, "State database at %s is up to date\n", database.Path())
		return nil
	}
	fmt.Fprintf(out, "Applied %d migration(s) to %s:\n", len(applied), database.Path())
	for _, m := range applied {
		fmt.Fprintf(out, "  %s\n", m)
	}
	return nil
}

func runStateLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}

	runs, err := app.State.ListRuns(stateLsLimit)
	if err != nil {
		return err
	}

	switch r.Format() {
	case render.FormatJSON:
		return r.RenderJSON(runs)
	case render.FormatYAML:
		return r.RenderYAML(runs)
	case render.FormatNDJSON:
		items := make([]interface{}, len(runs))
		for i, run := range runs {
			items[i] = run
		}
		return r.RenderNDJSON(items)
	}

	headers := []string{"RUN", "BOARD", "PROJECT", "STARTED", "STATUS", "CARDS", "FAILURES"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		cards, failures := "-", "-"
		if run.Summary != nil {
			cards = strconv.Itoa(run.Summary.CardsMigrated)
			failures = strconv.Itoa(run.Summary.Failures())
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.BoardID,
			strconv.Itoa(run.ProjectID),
			run.StartedAt,
			run.Status,
			cards,
			failures,
		})
	}

	if r.Format() == render.FormatTSV {
		return r.RenderTSV(headers, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}
	return r.RenderStyledTable(headers, rows, func(row, col int, cell string) string {
		if col == 4 {
			return r.StatusStyle(runs[row].Status) + cell[len(runs[row].Status):]
		}
		return cell
	})
}

func runStateClear(app *appctx.App, cmd *cobra.Command, args []string) error {
	target := state.Target{BoardID: stateClearBoard, ProjectID: stateClearProject}

	if !stateClearYes {
		fmt.Fprintf(cmd.OutOrStdout(), "Forget all recorded progress for %s? [y/N] ", target)
		var answer string
		fmt.Fscanln(cmd.InOrStdin(), &answer)
		if answer != "y" && answer != "Y" && answer != "yes" {
			return fmt.Errorf("aborted")
		}
	}

	res, err := app.State.Clear(target)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s: %d cards, %d pending links, %d runs\n",
		target, res.Cards, res.Relations, res.Runs)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
