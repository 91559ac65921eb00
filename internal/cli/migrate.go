package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/cli/appctx"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/config"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/migrate"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/render"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/state"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy a Trello board into a Kanboard project",
	Long: `Copies lists, cards, comments, checklists, attachments and card links
from a Trello board into an existing Kanboard project.

Lists are matched to columns by title; missing columns are created and
columns no list maps to are removed. Every migrated card is recorded in the
state database so that an interrupted run can be continued with --resume.

Examples:
  trello2kanboard migrate --board 5f1a2b3c --project 4
  trello2kanboard migrate --board 5f1a2b3c --project 4 --rules rules.yaml --resume`,
	RunE: runMigrateCmd,
}

var (
	migrateBoard    string
	migrateProject  int
	migrateRules    string
	migrateResume   bool
	migrateNoState  bool
	migrateQuiet    bool
	migrateMaxSize  string
	migrateTimezone string
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrateBoard, "board", "", "Trello board id or short link (required)")
	migrateCmd.Flags().IntVar(&migrateProject, "project", 0, "Kanboard project id (required)")
	migrateCmd.Flags().StringVar(&migrateRules, "rules", "", "YAML file with user overrides, label rules, size limit and timezone")
	migrateCmd.Flags().BoolVar(&migrateResume, "resume", false, "Skip cards recorded by earlier runs and retry their pending links")
	migrateCmd.Flags().BoolVar(&migrateNoState, "no-state", false, "Do not record progress in the state database")
	migrateCmd.Flags().BoolVarP(&migrateQuiet, "quiet", "q", false, "Only print the final summary")
	migrateCmd.Flags().StringVar(&migrateMaxSize, "attachment-max-size", "", "Largest upload copied as a file, e.g. 3MiB (overrides rules)")
	migrateCmd.Flags().StringVar(&migrateTimezone, "timezone", "", "IANA timezone for due dates (overrides rules)")
	migrateCmd.MarkFlagRequired("board")
	migrateCmd.MarkFlagRequired("project")
}

func runMigrateCmd(cmd *cobra.Command, args []string) error {
	opts := appctx.Options{
		NeedsState:    !migrateNoState,
		AutoMigrate:   true,
		NeedsTrello:   true,
		NeedsKanboard: true,
	}
	return appctx.WithApp(opts, runMigrate)(cmd, args)
}

func runMigrate(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}

	opts, err := migrateOptions()
	if err != nil {
		return err
	}

	// Status lines would corrupt structured output on stdout.
	opts.Out = cmd.OutOrStdout()
	if r.Format() != render.FormatTable {
		opts.Out = cmd.ErrOrStderr()
	}
	if migrateQuiet {
		opts.Out = io.Discard
	}

	var journal *state.Run
	if app.State != nil {
		target := state.Target{BoardID: opts.BoardID, ProjectID: opts.ProjectID}
		checkpoint, err := app.State.Load(target)
		if err != nil {
			return err
		}
		switch {
		case migrateResume:
			opts.Checkpoint = checkpoint
			fmt.Fprintf(opts.Out, "Resuming %s: %d cards already migrated, %d links pending\n",
				target, len(checkpoint.Cards), len(checkpoint.Pending))
		case len(checkpoint.Cards) > 0:
			return fmt.Errorf("%d cards of %s were migrated by an earlier run; use --resume to continue or 'trello2kanboard state clear' to start over",
				len(checkpoint.Cards), target)
		}

		journal, err = app.State.BeginRun(target)
		if err != nil {
			return err
		}
		opts.Journal = journal
	} else if migrateResume {
		return errors.New("--resume needs the state database; drop --no-state")
	}

	m, err := migrate.New(app.Trello, app.Kanboard, opts)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := m.Run(ctx)

	if journal != nil {
		if err := journal.Finish(summary, runErr); err != nil {
			log.Printf("state: %v", err)
		}
	}

	if summary != nil {
		if err := r.RenderSummary(summary, runErr); err != nil {
			return err
		}
	}

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, context.Canceled) && journal != nil:
		return fmt.Errorf("migration interrupted, rerun with --resume to continue: %w", runErr)
	default:
		return runErr
	}
}

// migrateOptions builds engine options from flags and the rules file.
func migrateOptions() (migrate.Options, error) {
	opts := migrate.Options{
		BoardID:   migrateBoard,
		ProjectID: migrateProject,
	}

	if migrateRules != "" {
		rules, err := config.LoadRules(migrateRules)
		if err != nil {
			return opts, err
		}
		if err := rules.Apply(&opts); err != nil {
			return opts, fmt.Errorf("rules file %s: %w", migrateRules, err)
		}
	}

	overrides := &config.Rules{Timezone: migrateTimezone}
	if migrateMaxSize != "" {
		size, err := config.ParseByteSize(migrateMaxSize)
		if err != nil {
			return opts, fmt.Errorf("--attachment-max-size: %w", err)
		}
		overrides.AttachmentMaxSize = config.ByteSize(size)
	}
	if err := overrides.Apply(&opts); err != nil {
		return opts, err
	}

	return opts, nil
}
