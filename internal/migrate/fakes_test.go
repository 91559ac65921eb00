package migrate

import (
	"context"
	"errors"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/kanboard"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

var errNotFound = errors.New("not found")

// fakeSource is an in-memory Trello board.
type fakeSource struct {
	board       trello.Board
	lists       []trello.List
	cards       map[string][]trello.Card // list id -> cards
	attachments map[string][]trello.Attachment
	refs        map[string]trello.Card // id or short link -> card
	members     []trello.Member
	payloads    map[string][]byte

	downloads []string
}

func newFakeSource(boardID string) *fakeSource {
	return &fakeSource{
		board:       trello.Board{ID: boardID, Name: "Board"},
		cards:       map[string][]trello.Card{},
		attachments: map[string][]trello.Attachment{},
		refs:        map[string]trello.Card{},
		payloads:    map[string][]byte{},
	}
}

func (s *fakeSource) addList(id, name string, cards ...trello.Card) {
	s.lists = append(s.lists, trello.List{ID: id, Name: name, IDBoard: s.board.ID})
	for i := range cards {
		cards[i].IDList = id
		if cards[i].IDBoard == "" {
			cards[i].IDBoard = s.board.ID
		}
		s.refs[cards[i].ID] = cards[i]
	}
	s.cards[id] = append(s.cards[id], cards...)
}

func (s *fakeSource) GetBoard(ctx context.Context, boardID string) (*trello.Board, error) {
	if boardID != s.board.ID {
		return nil, errNotFound
	}
	b := s.board
	return &b, nil
}

func (s *fakeSource) ListLists(ctx context.Context, boardID string) ([]trello.List, error) {
	return s.lists, nil
}

func (s *fakeSource) ListCards(ctx context.Context, listID string) ([]trello.Card, error) {
	return s.cards[listID], nil
}

func (s *fakeSource) GetCard(ctx context.Context, cardID string) (*trello.Card, error) {
	for _, cards := range s.cards {
		for _, c := range cards {
			if c.ID == cardID {
				c := c
				return &c, nil
			}
		}
	}
	return nil, errNotFound
}

func (s *fakeSource) ListAttachments(ctx context.Context, cardID string) ([]trello.Attachment, error) {
	attachments := s.attachments[cardID]
	for i := range attachments {
		attachments[i].CardID = cardID
	}
	return attachments, nil
}

func (s *fakeSource) GetCardRef(ctx context.Context, idOrShortLink string) (*trello.Card, error) {
	c, ok := s.refs[idOrShortLink]
	if !ok {
		return nil, errNotFound
	}
	return &c, nil
}

func (s *fakeSource) ListMembers(ctx context.Context, boardID string) ([]trello.Member, error) {
	return s.members, nil
}

func (s *fakeSource) Download(ctx context.Context, url string, limit int64) ([]byte, error) {
	s.downloads = append(s.downloads, url)
	data, ok := s.payloads[url]
	if !ok {
		return nil, errNotFound
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, trello.ErrTooLarge
	}
	return data, nil
}

type taskLink struct {
	TaskID, OppositeID, LinkID int
}

type externalLink struct {
	TaskID     int
	URL, Title string
	Dependency string
}

type subtask struct {
	TaskID int
	Title  string
	Status kanboard.SubtaskStatus
}

type comment struct {
	TaskID, UserID int
	Content        string
}

type taskFile struct {
	TaskID   int
	Filename string
	Blob     string
}

// fakeTarget is an in-memory Kanboard project that records every write.
type fakeTarget struct {
	columns []kanboard.Column
	users   []kanboard.User
	nextID  int

	// failing names methods that answer with the failure sentinel; the
	// value, if non-empty, restricts the failure to calls with that title.
	failing map[string]string

	// onClose, when set, answers CloseTask instead of recording the close.
	onClose func(ctx context.Context, taskID int) error

	linkAttempts int

	added         []string
	removed       []int
	tasks         map[int]kanboard.TaskParams
	taskOrder     []int
	closed        []int
	subtasks      []subtask
	comments      []comment
	files         []taskFile
	externalLinks []externalLink
	taskLinks     []taskLink
}

func newFakeTarget(columns ...kanboard.Column) *fakeTarget {
	return &fakeTarget{
		columns: columns,
		nextID:  100,
		failing: map[string]string{},
		tasks:   map[int]kanboard.TaskParams{},
	}
}

func (t *fakeTarget) fails(method, title string) bool {
	want, ok := t.failing[method]
	return ok && (want == "" || want == title)
}

func (t *fakeTarget) id() int {
	t.nextID++
	return t.nextID
}

func (t *fakeTarget) opErr(method string) error {
	return &kanboard.OperationError{Method: method}
}

func (t *fakeTarget) GetColumns(ctx context.Context, projectID int) ([]kanboard.Column, error) {
	out := make([]kanboard.Column, len(t.columns))
	copy(out, t.columns)
	return out, nil
}

func (t *fakeTarget) AddColumn(ctx context.Context, projectID int, title string) (int, error) {
	if t.fails("addColumn", title) {
		return 0, t.opErr("addColumn")
	}
	id := t.id()
	t.added = append(t.added, title)
	t.columns = append(t.columns, kanboard.Column{ID: id, Title: title, Position: len(t.columns) + 1})
	return id, nil
}

func (t *fakeTarget) RemoveColumn(ctx context.Context, columnID int) error {
	if t.fails("removeColumn", "") {
		return t.opErr("removeColumn")
	}
	t.removed = append(t.removed, columnID)
	kept := t.columns[:0]
	for _, c := range t.columns {
		if c.ID != columnID {
			kept = append(kept, c)
		}
	}
	t.columns = kept
	return nil
}

func (t *fakeTarget) GetProjectUsers(ctx context.Context, projectID int) ([]kanboard.User, error) {
	return t.users, nil
}

func (t *fakeTarget) CreateTask(ctx context.Context, params kanboard.TaskParams) (int, error) {
	if t.fails("createTask", params.Title) {
		return 0, t.opErr("createTask")
	}
	id := t.id()
	t.tasks[id] = params
	t.taskOrder = append(t.taskOrder, id)
	return id, nil
}

func (t *fakeTarget) CloseTask(ctx context.Context, taskID int) error {
	if t.onClose != nil {
		return t.onClose(ctx, taskID)
	}
	t.closed = append(t.closed, taskID)
	return nil
}

func (t *fakeTarget) CreateSubtask(ctx context.Context, taskID int, title string, status kanboard.SubtaskStatus) (int, error) {
	if t.fails("createSubtask", title) {
		return 0, t.opErr("createSubtask")
	}
	t.subtasks = append(t.subtasks, subtask{TaskID: taskID, Title: title, Status: status})
	return t.id(), nil
}

func (t *fakeTarget) CreateComment(ctx context.Context, taskID, userID int, content string) (int, error) {
	if t.fails("createComment", content) {
		return 0, t.opErr("createComment")
	}
	t.comments = append(t.comments, comment{TaskID: taskID, UserID: userID, Content: content})
	return t.id(), nil
}

func (t *fakeTarget) CreateTaskFile(ctx context.Context, projectID, taskID int, filename, blob string) (int, error) {
	if t.fails("createTaskFile", filename) {
		return 0, t.opErr("createTaskFile")
	}
	t.files = append(t.files, taskFile{TaskID: taskID, Filename: filename, Blob: blob})
	return t.id(), nil
}

func (t *fakeTarget) CreateExternalTaskLink(ctx context.Context, taskID int, url, dependency, title string) (int, error) {
	if t.fails("createExternalTaskLink", title) {
		return 0, t.opErr("createExternalTaskLink")
	}
	t.externalLinks = append(t.externalLinks, externalLink{TaskID: taskID, URL: url, Title: title, Dependency: dependency})
	return t.id(), nil
}

func (t *fakeTarget) CreateTaskLink(ctx context.Context, taskID, oppositeTaskID, linkID int) (int, error) {
	t.linkAttempts++
	if t.fails("createTaskLink", "") {
		return 0, t.opErr("createTaskLink")
	}
	t.taskLinks = append(t.taskLinks, taskLink{TaskID: taskID, OppositeID: oppositeTaskID, LinkID: linkID})
	return t.id(), nil
}

// taskByTitle returns the id of the first task created with title.
func (t *fakeTarget) taskByTitle(title string) (int, bool) {
	for _, id := range t.taskOrder {
		if t.tasks[id].Title == title {
			return id, true
		}
	}
	return 0, false
}

// memJournal records journal calls.
type memJournal struct {
	cards    map[string]int
	pending  map[Pair]bool
	resolved []Pair
}

func newMemJournal() *memJournal {
	return &memJournal{cards: map[string]int{}, pending: map[Pair]bool{}}
}

func (j *memJournal) CardMigrated(cardID string, taskID int) error {
	j.cards[cardID] = taskID
	return nil
}

func (j *memJournal) RelationPending(p Pair) error {
	j.pending[p] = true
	return nil
}

func (j *memJournal) RelationResolved(p Pair) error {
	delete(j.pending, p)
	j.resolved = append(j.resolved, p)
	return nil
}

func cardURL(id string) string {
	return "https://trello.com/c/" + id + "/1-card"
}
