package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/cli/appctx"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/config"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/kanboard"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/migrate"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/render"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview column and member changes without writing",
	Long: `Reads the Trello board and the Kanboard project and shows what migrate
would do to the project columns as a unified diff of column titles, followed
by how board members map to project users. Nothing is written.`,
	RunE: appctx.WithApp(appctx.Options{NeedsTrello: true, NeedsKanboard: true}, runPlan),
}

var (
	planBoard   string
	planProject int
	planRules   string
)

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planBoard, "board", "", "Trello board id or short link (required)")
	planCmd.Flags().IntVar(&planProject, "project", 0, "Kanboard project id (required)")
	planCmd.Flags().StringVar(&planRules, "rules", "", "YAML rules file (user overrides are applied)")
	planCmd.MarkFlagRequired("board")
	planCmd.MarkFlagRequired("project")
}

// planSource is the part of the Trello client plan reads from.
type planSource interface {
	GetBoard(ctx context.Context, boardID string) (*trello.Board, error)
	ListLists(ctx context.Context, boardID string) ([]trello.List, error)
	ListMembers(ctx context.Context, boardID string) ([]trello.Member, error)
}

// planTarget is the part of the Kanboard client plan reads from.
type planTarget interface {
	GetProjectByID(ctx context.Context, projectID int) (*kanboard.Project, error)
	GetColumns(ctx context.Context, projectID int) ([]kanboard.Column, error)
	GetProjectUsers(ctx context.Context, projectID int) ([]kanboard.User, error)
}

type memberPlan struct {
	Trello   string `json:"trello" yaml:"trello"`
	UserID   int    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Resolved bool   `json:"resolved" yaml:"resolved"`
}

type migrationPlan struct {
	Board         string       `json:"board" yaml:"board"`
	BoardName     string       `json:"board_name" yaml:"board_name"`
	Project       int          `json:"project" yaml:"project"`
	ProjectName   string       `json:"project_name" yaml:"project_name"`
	ColumnsBefore []string     `json:"columns_before" yaml:"columns_before"`
	ColumnsAfter  []string     `json:"columns_after" yaml:"columns_after"`
	Create        []string     `json:"create" yaml:"create"`
	Remove        []string     `json:"remove" yaml:"remove"`
	Members       []memberPlan `json:"members" yaml:"members"`
	Notes         string       `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func runPlan(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}

	var overrides map[string]int
	if planRules != "" {
		rules, err := config.LoadRules(planRules)
		if err != nil {
			return err
		}
		overrides = rules.Users
	}

	ctx := commandContext(cmd)
	plan, err := buildPlan(ctx, app.Trello, app.Kanboard, planBoard, planProject, overrides)
	if err != nil {
		return err
	}

	switch r.Format() {
	case render.FormatJSON, render.FormatNDJSON:
		return r.RenderJSON(plan)
	case render.FormatYAML:
		return r.RenderYAML(plan)
	}
	return printPlan(cmd, r, plan)
}

func buildPlan(ctx context.Context, src planSource, dst planTarget, boardID string, projectID int, overrides map[string]int) (*migrationPlan, error) {
	board, err := src.GetBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("get board %s: %w", boardID, err)
	}
	lists, err := src.ListLists(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("list lists of board %s: %w", board.ID, err)
	}
	project, err := dst.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, kanboard.ErrOperationFailed) {
			return nil, fmt.Errorf("project %d not found", projectID)
		}
		return nil, fmt.Errorf("get project %d: %w", projectID, err)
	}
	columns, err := dst.GetColumns(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get columns of project %d: %w", projectID, err)
	}
	users, err := dst.GetProjectUsers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get users of project %d: %w", projectID, err)
	}
	members, err := src.ListMembers(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("list members of board %s: %w", board.ID, err)
	}

	cp := migrate.PlanColumns(lists, columns)
	plan := &migrationPlan{
		Board:         board.ID,
		BoardName:     board.Name,
		Project:       projectID,
		ProjectName:   project.Name,
		ColumnsBefore: migrate.TitlesBefore(columns),
		ColumnsAfter:  cp.TitlesAfter(),
		Create:        append([]string{}, cp.Create...),
		Remove:        []string{},
	}
	for _, c := range cp.Remove {
		plan.Remove = append(plan.Remove, c.Title)
	}

	var notes bytes.Buffer
	resolved := migrate.ResolveMembers(members, users, overrides, &notes)
	plan.Notes = notes.String()

	byID := make(map[int]kanboard.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, m := range members {
		mp := memberPlan{Trello: m.Username}
		if rm, ok := resolved[m.ID]; ok {
			mp.Resolved = true
			mp.UserID = rm.UserID
			if u, ok := byID[rm.UserID]; ok {
				mp.User = u.DisplayName()
			}
		}
		plan.Members = append(plan.Members, mp)
	}
	sort.SliceStable(plan.Members, func(i, j int) bool {
		return plan.Members[i].Trello < plan.Members[j].Trello
	})
	return plan, nil
}

func printPlan(cmd *cobra.Command, r *render.Renderer, plan *migrationPlan) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Board %q (%s) -> project %d %q\n\n", plan.BoardName, plan.Board, plan.Project, plan.ProjectName)

	if len(plan.Create) == 0 && len(plan.Remove) == 0 {
		fmt.Fprintln(out, "Columns already match the board lists.")
	} else {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(joinLines(plan.ColumnsBefore)),
			B:        difflib.SplitLines(joinLines(plan.ColumnsAfter)),
			FromFile: fmt.Sprintf("project %d columns", plan.Project),
			ToFile:   "after migrate",
			Context:  3,
		})
		if err != nil {
			return fmt.Errorf("failed to diff columns: %w", err)
		}
		fmt.Fprint(out, diff)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Members:")
	if plan.Notes != "" {
		fmt.Fprint(out, plan.Notes)
	}
	if len(plan.Members) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(plan.Members))
	for _, m := range plan.Members {
		target := "-"
		if m.Resolved {
			target = fmt.Sprintf("%s (id %d)", m.User, m.UserID)
			if m.User == "" {
				target = fmt.Sprintf("id %d", m.UserID)
			}
		}
		rows = append(rows, []string{m.Trello, target})
	}
	return r.RenderTable([]string{"TRELLO", "KANBOARD"}, rows)
}

func joinLines(lines []string) string {
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
