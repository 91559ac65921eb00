package migrate

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

// Migrator copies one board into one project.
type Migrator struct {
	src  Source
	dst  Target
	opts Options
}

// New creates a Migrator.
func New(src Source, dst Target, opts Options) (*Migrator, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()
	return &Migrator{src: src, dst: dst, opts: opts}, nil
}

// run holds the state of a single migration run. It is only touched from
// the goroutine executing Run.
type run struct {
	src     Source
	dst     Target
	opts    *Options
	out     io.Writer
	journal Journal

	board     *trello.Board
	members   map[string]ResolvedMember // trello member id -> kanboard user
	migrated  map[string]int            // trello card id -> kanboard task id
	relations *RelationResolver
	summary   *Summary
}

// Run performs the migration: columns first, then members, then the cards
// of every list in list order, and finally the relations that were waiting
// for a card migrated later in the run.
//
// Failing to read the board, its lists and members or the project columns
// and users is fatal. Everything else is reported on Options.Out and
// skipped. When ctx is cancelled Run stops and returns the summary so far
// together with ctx.Err().
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	r := &run{
		src:       m.src,
		dst:       m.dst,
		opts:      &m.opts,
		out:       m.opts.Out,
		journal:   m.opts.Journal,
		members:   map[string]ResolvedMember{},
		migrated:  map[string]int{},
		relations: NewRelationResolver(),
		summary:   &Summary{Project: m.opts.ProjectID},
	}
	if r.journal == nil {
		r.journal = nopJournal{}
	}
	if cp := m.opts.Checkpoint; cp != nil {
		for cardID, taskID := range cp.Cards {
			r.migrated[cardID] = taskID
		}
		r.relations = NewRelationResolver(cp.Pending...)
	}

	board, err := r.src.GetBoard(ctx, m.opts.BoardID)
	if err != nil {
		return nil, fmt.Errorf("get board %s: %w", m.opts.BoardID, err)
	}
	r.board = board
	r.summary.Board = board.ID

	lists, err := r.src.ListLists(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("list lists of board %s: %w", board.ID, err)
	}
	columns, err := r.dst.GetColumns(ctx, m.opts.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get columns of project %d: %w", m.opts.ProjectID, err)
	}

	sync, err := SyncColumns(ctx, r.dst, m.opts.ProjectID, lists, columns, r.out)
	if err != nil {
		return r.summary, err
	}
	r.summary.ColumnsCreated = sync.Created
	r.summary.ColumnsReused = sync.Reused
	r.summary.ColumnsFailed = sync.Failed
	r.summary.ColumnsRemoved = sync.Removed
	r.summary.ColumnsRemoveFailed = sync.RemoveFailed

	users, err := r.dst.GetProjectUsers(ctx, m.opts.ProjectID)
	if err != nil {
		return r.summary, fmt.Errorf("get users of project %d: %w", m.opts.ProjectID, err)
	}
	members, err := r.src.ListMembers(ctx, board.ID)
	if err != nil {
		return r.summary, fmt.Errorf("list members of board %s: %w", board.ID, err)
	}
	r.members = ResolveMembers(members, users, m.opts.Users, r.out)
	r.summary.MembersResolved = len(r.members)
	r.summary.MembersUnresolved = len(members) - len(r.members)

	columnsByList := sync.ByList()
	for _, list := range lists {
		columnID, ok := columnsByList[list.ID]
		if !ok {
			continue
		}
		if err := r.migrateList(ctx, list, columnID); err != nil {
			return r.summary, err
		}
	}

	if err := r.resolvePending(ctx); err != nil {
		return r.summary, err
	}
	return r.summary, nil
}

func (r *run) migrateList(ctx context.Context, list trello.List, columnID int) error {
	cards, err := r.src.ListCards(ctx, list.ID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(r.out, "Failed to list cards of %q: %v\n", list.Name, err)
		return nil
	}

	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, done := r.migrated[card.ID]; done {
			r.summary.CardsSkipped++
			continue
		}
		detail, err := r.src.GetCard(ctx, card.ID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(r.out, "Failed to fetch card %q (%s): %v\n", card.Name, card.ID, err)
			r.summary.CardsFailed++
			continue
		}
		if err := r.migrateCard(ctx, list, columnID, detail); err != nil {
			return err
		}
	}
	return nil
}

// resolvePending links the relations still pending after all cards were
// processed. Pairs with an unmigrated side are skipped; every pair is
// dropped from the pending set either way.
func (r *run) resolvePending(ctx context.Context) error {
	for _, p := range r.relations.Pending() {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.relations.Drop(p)

		a, aok := r.migrated[p.A]
		b, bok := r.migrated[p.B]
		if !aok || !bok {
			fmt.Fprintf(r.out, "Skip relation for tasks %s %s - some of them are not migrated\n", p.A, p.B)
			r.summary.RelationsSkipped++
			continue
		}

		if r.link(ctx, a, b) {
			r.relations.MarkLinked(p.A, p.B)
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
		r.record(r.journal.RelationResolved(p))
	}
	return nil
}

// link creates a "related" link between two tasks.
func (r *run) link(ctx context.Context, taskID, otherTaskID int) bool {
	if _, err := r.dst.CreateTaskLink(ctx, taskID, otherTaskID, r.opts.RelatedLinkID); err != nil {
		fmt.Fprintf(r.out, " Failed to add related task %d link for task %d: %v\n", otherTaskID, taskID, err)
		r.summary.RelationsFailed++
		return false
	}
	r.summary.RelationsLinked++
	return true
}

// record reports journal failures without interrupting the run.
func (r *run) record(err error) {
	if err != nil {
		log.Printf("migrate: journal: %v", err)
	}
}

type nopJournal struct{}

func (nopJournal) CardMigrated(string, int) error { return nil }
func (nopJournal) RelationPending(Pair) error { return nil }
func (nopJournal) RelationResolved(Pair) error { return nil }
