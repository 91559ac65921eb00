package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/cli/appctx"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/render"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List Trello boards visible to the configured account",
	Long:  `Lists the id and name of every Trello board the configured account belongs to.`,
	RunE:  appctx.WithApp(appctx.Options{NeedsTrello: true}, runBoards),
}

var boardsAll bool

func init() {
	rootCmd.AddCommand(boardsCmd)
	boardsCmd.Flags().BoolVarP(&boardsAll, "all", "a", false, "Include closed boards")
}

func runBoards(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := app.Renderer(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	boards, err := app.Trello.ListMyBoards(ctx)
	if err != nil {
		return err
	}

	visible := boards[:0]
	for _, b := range boards {
		if b.Closed && !boardsAll {
			continue
		}
		visible = append(visible, b)
	}

	switch r.Format() {
	case render.FormatJSON:
		return r.RenderJSON(visible)
	case render.FormatYAML:
		return r.RenderYAML(visible)
	case render.FormatNDJSON:
		items := make([]interface{}, len(visible))
		for i, b := range visible {
			items[i] = b
		}
		return r.RenderNDJSON(items)
	}

	headers := []string{"ID", "SHORT", "NAME", "CLOSED"}
	rows := make([][]string, 0, len(visible))
	for _, b := range visible {
		rows = append(rows, []string{b.ID, b.ShortLink, b.Name, strconv.FormatBool(b.Closed)})
	}
	if r.Format() == render.FormatTSV {
		return r.RenderTSV(headers, rows)
	}
	return r.RenderTable(headers, rows)
}
