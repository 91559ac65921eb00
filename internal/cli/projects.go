package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/cli/appctx"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/render"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List Kanboard projects of the configured user",
	Long:  `Lists the id and name of every Kanboard project the configured user is a member of.`,
	RunE:  appctx.WithApp(appctx.Options{NeedsKanboard: true}, runProjects),
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	projects, err := app.Kanboard.GetMyProjects(ctx)
	if err != nil {
		return err
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })

	switch r.Format() {
	case render.FormatJSON:
		return r.RenderJSON(projects)
	case render.FormatYAML:
		return r.RenderYAML(projects)
	case render.FormatNDJSON:
		items := make([]interface{}, len(projects))
		for i, p := range projects {
			items[i] = p
		}
		return r.RenderNDJSON(items)
	}

	headers := []string{"ID", "NAME", "ACTIVE"}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{strconv.Itoa(p.ID), p.Name, strconv.FormatBool(p.Active)})
	}
	if r.Format() == render.FormatTSV {
		return r.RenderTSV(headers, rows)
	}
	return r.RenderTable(headers, rows)
}
