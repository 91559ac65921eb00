// Package migrate copies a Trello board into an existing Kanboard project.
//
// The run is best effort: every list, card, comment, checklist item,
// attachment and relation is handled on its own, failures are reported on
// the operator output and the run moves on. Only the initial reads and a
// cancelled context end a run early.
package migrate

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/kanboard"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

// DefaultAttachmentMaxSize is the largest upload that is copied as a file.
const DefaultAttachmentMaxSize int64 = 3 * 1024 * 1024

// Source is the read-only side of a migration.
type Source interface {
	GetBoard(ctx context.Context, boardID string) (*trello.Board, error)
	ListLists(ctx context.Context, boardID string) ([]trello.List, error)
	ListCards(ctx context.Context, listID string) ([]trello.Card, error)
	GetCard(ctx context.Context, cardID string) (*trello.Card, error)
	ListAttachments(ctx context.Context, cardID string) ([]trello.Attachment, error)
	GetCardRef(ctx context.Context, idOrShortLink string) (*trello.Card, error)
	ListMembers(ctx context.Context, boardID string) ([]trello.Member, error)
	Download(ctx context.Context, url string, limit int64) ([]byte, error)
}

// Target is the write side of a migration. Calls that create something
// return the new id; a refusal by the server is reported as an error
// matching kanboard.ErrOperationFailed.
type Target interface {
	GetColumns(ctx context.Context, projectID int) ([]kanboard.Column, error)
	AddColumn(ctx context.Context, projectID int, title string) (int, error)
	RemoveColumn(ctx context.Context, columnID int) error
	GetProjectUsers(ctx context.Context, projectID int) ([]kanboard.User, error)
	CreateTask(ctx context.Context, params kanboard.TaskParams) (int, error)
	CloseTask(ctx context.Context, taskID int) error
	CreateSubtask(ctx context.Context, taskID int, title string, status kanboard.SubtaskStatus) (int, error)
	CreateComment(ctx context.Context, taskID, userID int, content string) (int, error)
	CreateTaskFile(ctx context.Context, projectID, taskID int, filename, blob string) (int, error)
	CreateExternalTaskLink(ctx context.Context, taskID int, url, dependency, title string) (int, error)
	CreateTaskLink(ctx context.Context, taskID, oppositeTaskID, linkID int) (int, error)
}

// Journal records progress so an interrupted run can be resumed.
// Implementations must not block the run on failure; errors are logged.
type Journal interface {
	CardMigrated(cardID string, taskID int) error
	RelationPending(p Pair) error
	RelationResolved(p Pair) error
}

// Checkpoint is the state restored from a previous run.
type Checkpoint struct {
	Cards   map[string]int // card id -> task id
	Pending []Pair
}

// Options configures a migration run.
type Options struct {
	BoardID   string
	ProjectID int

	// Users maps Trello usernames to Kanboard user ids and takes precedence
	// over name matching.
	Users map[string]int

	// Complexity and Priority are evaluated in order; the first matching
	// rule wins.
	Complexity []Rule
	Priority   []Rule

	AttachmentMaxSize int64          // defaults to DefaultAttachmentMaxSize
	Location          *time.Location // due date timezone, defaults to UTC
	RelatedLinkID     int            // defaults to kanboard.RelatedLinkID

	// Out receives operator status lines. Nil discards them.
	Out io.Writer

	Journal    Journal
	Checkpoint *Checkpoint
}

func (o *Options) validate() error {
	if o.BoardID == "" {
		return errors.New("migrate: board id is required")
	}
	if o.ProjectID <= 0 {
		return errors.New("migrate: project id is required")
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.AttachmentMaxSize <= 0 {
		o.AttachmentMaxSize = DefaultAttachmentMaxSize
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.RelatedLinkID <= 0 {
		o.RelatedLinkID = kanboard.RelatedLinkID
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
}
