package migrate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

// externalLinkDependency is the Kanboard dependency kind used for links.
const externalLinkDependency = "related"

// migrateAttachments copies uploads as files and URLs as external links.
// URLs pointing at another card of the same board become task relations,
// linked now when that card is already migrated and deferred otherwise.
func (r *run) migrateAttachments(ctx context.Context, card *trello.Card, taskID int, attachments []trello.Attachment) error {
	linkedHere := make(map[string]bool)

	for _, a := range attachments {
		if err := ctx.Err(); err != nil {
			return err
		}

		if a.IsUpload {
			if !r.reupload(ctx, taskID, a) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.addExternalLink(ctx, taskID, a)
			}
			continue
		}

		relatedID, ok := r.relatedCard(ctx, a.URL)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.addExternalLink(ctx, taskID, a)
			continue
		}
		if relatedID == card.ID || linkedHere[relatedID] {
			continue
		}

		otherTask, migrated := r.migrated[relatedID]
		if !migrated {
			if r.relations.Defer(card.ID, relatedID) {
				r.record(r.journal.RelationPending(NewPair(card.ID, relatedID)))
			}
			continue
		}
		if r.relations.Linked(card.ID, relatedID) {
			linkedHere[relatedID] = true
			continue
		}
		if r.link(ctx, taskID, otherTask) {
			if r.relations.MarkLinked(card.ID, relatedID) {
				r.record(r.journal.RelationResolved(NewPair(card.ID, relatedID)))
			}
			linkedHere[relatedID] = true
		}
	}
	return nil
}

// relatedCard returns the id of the card on the migrated board that url
// points at.
func (r *run) relatedCard(ctx context.Context, url string) (string, bool) {
	ref, ok := trello.ParseCardURL(url)
	if !ok {
		return "", false
	}
	card, err := r.src.GetCardRef(ctx, ref)
	if err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(r.out, " Failed to look up card %q, migrated as url: %v\n", url, err)
		}
		return "", false
	}
	if card.IDBoard != r.board.ID {
		return "", false
	}
	return card.ID, true
}

// reupload copies an uploaded attachment into a task file. It returns false
// when the caller should fall back to an external link.
func (r *run) reupload(ctx context.Context, taskID int, a trello.Attachment) bool {
	limit := r.opts.AttachmentMaxSize
	if a.Bytes > limit {
		fmt.Fprintf(r.out, " Attachment %q @%d is too big(%d), migrated as url\n", a.Name, taskID, a.Bytes)
		return false
	}

	data, err := r.src.Download(ctx, a.URL, limit)
	if err != nil {
		switch {
		case ctx.Err() != nil:
		case errors.Is(err, trello.ErrTooLarge):
			fmt.Fprintf(r.out, " Attachment %q @%d is too big(>%d), migrated as url\n", a.Name, taskID, limit)
		default:
			fmt.Fprintf(r.out, " Failed to download %q, migrated as url: %v\n", a.Name, err)
		}
		return false
	}

	blob := base64.StdEncoding.EncodeToString(data)
	if _, err := r.dst.CreateTaskFile(ctx, r.opts.ProjectID, taskID, a.Name, blob); err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(r.out, " Failed to add file %q, migrated as url: %v\n", a.Name, err)
		}
		return false
	}
	r.summary.FilesUploaded++
	return true
}

func (r *run) addExternalLink(ctx context.Context, taskID int, a trello.Attachment) {
	if _, err := r.dst.CreateExternalTaskLink(ctx, taskID, a.URL, externalLinkDependency, a.Name); err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(r.out, " Failed to add link %q for attachment %q: %v\n", a.URL, a.Name, err)
			r.summary.AttachmentsFailed++
		}
		return
	}
	r.summary.LinksAdded++
}
