package migrate

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/kanboard"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

// ColumnStatus is the outcome of synchronizing one list
type ColumnStatus string

const (
	ColumnCreated ColumnStatus = "done"
	ColumnExists  ColumnStatus = "already exists"
	ColumnFailed  ColumnStatus = "failed"
)

// ColumnMapping ties a Trello list to the Kanboard column its cards go to.
// ColumnID is zero when Status is ColumnFailed.
type ColumnMapping struct {
	List     trello.List
	ColumnID int
	Status   ColumnStatus
}

// ColumnSync is the result of SyncColumns.
type ColumnSync struct {
	Mappings []ColumnMapping // one per list, in list order
	Created  int
	// Reused counts lists mapped onto a column that existed before the
	// sync. A list sharing a column created earlier in the same sync is
	// reported as already existing but counted in neither Created nor Reused.
	Reused int
	Failed   int
	Removed  int
	// RemoveFailed counts extra columns that could not be deleted.
	RemoveFailed int
}

// ByList returns list id -> column id for the lists that have a column.
func (s *ColumnSync) ByList() map[string]int {
	m := make(map[string]int, len(s.Mappings))
	for _, mapping := range s.Mappings {
		if mapping.ColumnID != 0 {
			m[mapping.List.ID] = mapping.ColumnID
		}
	}
	return m
}

// indexColumns maps titles to the first column carrying them.
func indexColumns(columns []kanboard.Column) map[string]kanboard.Column {
	byTitle := make(map[string]kanboard.Column, len(columns))
	for _, c := range columns {
		if _, ok := byTitle[c.Title]; !ok {
			byTitle[c.Title] = c
		}
	}
	return byTitle
}

// SyncColumns reconciles lists with the existing project columns. A list
// reuses the column with the same title or gets a new one; columns no list
// claimed are removed afterwards. Failures are reported on out and never
// abort the sync, only a cancelled context does.
func SyncColumns(ctx context.Context, dst Target, projectID int, lists []trello.List, columns []kanboard.Column, out io.Writer) (*ColumnSync, error) {
	byTitle := indexColumns(columns)
	matched := make(map[int]bool)
	created := make(map[int]bool)
	sync := &ColumnSync{}

	fmt.Fprintln(out, "Migrate lists to columns:")
	for _, list := range lists {
		mapping := ColumnMapping{List: list}
		if col, ok := byTitle[list.Name]; ok {
			mapping.ColumnID = col.ID
			mapping.Status = ColumnExists
			matched[col.ID] = true
			if !created[col.ID] {
				sync.Reused++
			}
		} else {
			id, err := dst.AddColumn(ctx, projectID, list.Name)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				mapping.Status = ColumnFailed
				sync.Failed++
			} else {
				mapping.ColumnID = id
				mapping.Status = ColumnCreated
				matched[id] = true
				created[id] = true
				// later lists with the same name share the column
				byTitle[list.Name] = kanboard.Column{ID: id, Title: list.Name}
				sync.Created++
			}
		}
		sync.Mappings = append(sync.Mappings, mapping)
		fmt.Fprintf(out, "  %q [%s]\n", list.Name, mapping.Status)
	}

	fmt.Fprintln(out, "Removing extra columns...")
	for _, col := range columns {
		if matched[col.ID] {
			continue
		}
		status := "done"
		if err := dst.RemoveColumn(ctx, col.ID); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			status = "failed"
			sync.RemoveFailed++
		} else {
			sync.Removed++
		}
		fmt.Fprintf(out, "  %d %q - %s\n", col.ID, col.Title, status)
	}
	fmt.Fprintln(out, "complete")

	return sync, nil
}

// ColumnPlan describes what SyncColumns would do without doing it.
type ColumnPlan struct {
	Create []string          // titles to add, in list order
	Keep   []kanboard.Column // existing columns claimed by a list
	Remove []kanboard.Column // existing columns no list claims
}

// PlanColumns computes the column changes for lists against columns.
func PlanColumns(lists []trello.List, columns []kanboard.Column) ColumnPlan {
	byTitle := indexColumns(columns)
	kept := make(map[int]bool)
	planned := make(map[string]bool)
	var plan ColumnPlan

	for _, list := range lists {
		if col, ok := byTitle[list.Name]; ok {
			if !kept[col.ID] {
				kept[col.ID] = true
				plan.Keep = append(plan.Keep, col)
			}
			continue
		}
		if !planned[list.Name] {
			planned[list.Name] = true
			plan.Create = append(plan.Create, list.Name)
		}
	}
	for _, col := range columns {
		if !kept[col.ID] {
			plan.Remove = append(plan.Remove, col)
		}
	}
	return plan
}

// Changes reports whether applying the plan would modify the project.
func (p ColumnPlan) Changes() bool {
	return len(p.Create) > 0 || len(p.Remove) > 0
}

// TitlesBefore returns the current column titles in board order.
func TitlesBefore(columns []kanboard.Column) []string {
	sorted := sortedColumns(columns)
	titles := make([]string, 0, len(sorted))
	for _, c := range sorted {
		titles = append(titles, c.Title)
	}
	return titles
}

// TitlesAfter returns the column titles in board order once the plan is
// applied. New columns are appended at the end, as Kanboard does.
func (p ColumnPlan) TitlesAfter() []string {
	titles := make([]string, 0, len(p.Keep)+len(p.Create))
	for _, c := range sortedColumns(p.Keep) {
		titles = append(titles, c.Title)
	}
	return append(titles, p.Create...)
}

func sortedColumns(columns []kanboard.Column) []kanboard.Column {
	sorted := make([]kanboard.Column, len(columns))
	copy(sorted, columns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	return sorted
}
