package migrate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/kanboard"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

// MultipleMembersTag marks tasks whose card had more than one member.
const MultipleMembersTag = "migration: more than one member"

const otherMembersNote = "\n\nOther members of original card: "

// migrateCard creates the task for a card and copies its comments,
// checklist items and attachments. A card whose task cannot be created is
// reported and skipped entirely. Only cancellation is returned as an error.
func (r *run) migrateCard(ctx context.Context, list trello.List, columnID int, card *trello.Card) error {
	params := r.taskParams(columnID, card)

	taskID, err := r.dst.CreateTask(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(r.out, "Failed to create task %q in column %q: %v\n", card.Name, list.Name, err)
		r.summary.CardsFailed++
		return nil
	}

	// The task exists from here on; record it before anything can stop the run.
	r.migrated[card.ID] = taskID
	r.summary.CardsMigrated++
	r.record(r.journal.CardMigrated(card.ID, taskID))

	if card.IsComplete() {
		if err := r.dst.CloseTask(ctx, taskID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(r.out, " Failed to close task %d for card %q: %v\n", taskID, card.Name, err)
		}
	}

	if err := r.migrateComments(ctx, taskID, card.Comments); err != nil {
		return err
	}
	if err := r.migrateChecklists(ctx, taskID, card.Checklists); err != nil {
		return err
	}

	attachments, err := r.src.ListAttachments(ctx, card.ID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(r.out, " Failed to list attachments of card %q: %v\n", card.Name, err)
		r.summary.AttachmentsFailed++
		return nil
	}
	return r.migrateAttachments(ctx, card, taskID, attachments)
}

// taskParams builds the createTask call for a card.
func (r *run) taskParams(columnID int, card *trello.Card) kanboard.TaskParams {
	class := Classify(card.Labels, r.opts.Complexity, r.opts.Priority)
	description := card.Desc
	tags := class.Tags

	owner, mentions := cardMembers(card.MemberIDs, r.members)
	if len(mentions) > 0 {
		description += otherMembersNote + strings.Join(mentions, " ")
		tags = append(tags, MultipleMembersTag)
		fmt.Fprintf(r.out, " More than one member on %q card\n", card.Name)
	}

	var due string
	if card.Due != "" {
		d, err := ConvertDue(card.Due, r.opts.Location)
		if err != nil {
			fmt.Fprintf(r.out, " Ignoring due date of card %q: %v\n", card.Name, err)
		} else {
			due = d
		}
	}

	return kanboard.TaskParams{
		Title:       card.Name,
		ProjectID:   r.opts.ProjectID,
		ColumnID:    columnID,
		OwnerID:     owner,
		DateDue:     due,
		Description: description,
		Score:       class.Score,
		Priority:    class.Priority,
		Tags:        tags,
	}
}

// ConvertDue converts a Trello due timestamp (UTC) to Kanboard's local
// minute-precision format in loc.
func ConvertDue(due string, loc *time.Location) (string, error) {
	t, err := time.Parse(trello.DueLayout, due)
	if err != nil {
		// Trello omits milliseconds on some older cards.
		var rfcErr error
		if t, rfcErr = time.Parse(time.RFC3339Nano, due); rfcErr != nil {
			return "", fmt.Errorf("invalid due date %q: %w", due, err)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(kanboard.DateLayout), nil
}

// migrateComments copies comments oldest first. A comment whose author is
// not mapped to a Kanboard user is reported and skipped.
func (r *run) migrateComments(ctx context.Context, taskID int, comments []trello.Comment) error {
	ordered := make([]trello.Comment, len(comments))
	copy(ordered, comments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	for _, c := range ordered {
		author, ok := r.members[c.AuthorID]
		if !ok {
			fmt.Fprintf(r.out, "Failed to migrate comment %q by %s: author is not mapped to a project user\n", c.Text(), c.AuthorID)
			r.summary.CommentsFailed++
			continue
		}
		if _, err := r.dst.CreateComment(ctx, taskID, author.UserID, c.Text()); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(r.out, "Failed to migrate comment %q by %s: %v\n", c.Text(), c.AuthorID, err)
			r.summary.CommentsFailed++
			continue
		}
		r.summary.CommentsMigrated++
	}
	return nil
}

// migrateChecklists flattens checklist items into subtasks.
func (r *run) migrateChecklists(ctx context.Context, taskID int, checklists []trello.Checklist) error {
	for _, cl := range checklists {
		for _, item := range cl.CheckItems {
			status := kanboard.SubtaskTodo
			if item.Checked() {
				status = kanboard.SubtaskDone
			}
			if _, err := r.dst.CreateSubtask(ctx, taskID, item.Name, status); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Fprintf(r.out, "  Failed to migrate checklist %q item %q: %v\n", cl.Name, item.Name, err)
				r.summary.SubtasksFailed++
				continue
			}
			r.summary.SubtasksMigrated++
		}
	}
	return nil
}
