package trello

import "time"

// DueLayout is the timestamp format Trello uses for card due dates (always UTC).
const DueLayout = "2006-01-02T15:04:05.000Z"

// Board represents a Trello board
type Board struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortLink string `json:"shortLink,omitempty"`
	URL       string `json:"url,omitempty"`
	Closed    bool   `json:"closed"`
}

// List represents a list (column) on a board
type List struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	IDBoard string  `json:"idBoard,omitempty"`
	Closed  bool    `json:"closed"`
	Pos     float64 `json:"pos"`
}

// Label is a card label. Color-only labels have an empty Name.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Member represents a board member
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

// CommentData holds the payload of a commentCard action
type CommentData struct {
	Text string `json:"text"`
}

// Comment is a commentCard action attached to a card
type Comment struct {
	ID       string      `json:"id"`
	AuthorID string      `json:"idMemberCreator"`
	Date     time.Time   `json:"date"`
	Data     CommentData `json:"data"`
}

// Text returns the comment body
func (c Comment) Text() string {
	return c.Data.Text
}

// CheckItem is a single checklist entry
type CheckItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	State string  `json:"state"` // complete, incomplete
	Pos   float64 `json:"pos"`
}

// Checked reports whether the item is ticked
func (i CheckItem) Checked() bool {
	return i.State == "complete"
}

// Checklist represents a named checklist on a card
type Checklist struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	CheckItems []CheckItem `json:"checkItems"`
}

// Attachment represents a card attachment. IsUpload is false for plain URL attachments.
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Bytes    int64  `json:"bytes"`
	IsUpload bool   `json:"isUpload"`
	MimeType string `json:"mimeType,omitempty"`

	// CardID is filled in by the client; Trello does not return it.
	CardID string `json:"-"`
}

// Card represents a Trello card. Comments and Checklists are only populated
// by GetCard.
type Card struct {
	ID          string      `json:"id"`
	ShortLink   string      `json:"shortLink,omitempty"`
	IDBoard     string      `json:"idBoard"`
	IDList      string      `json:"idList,omitempty"`
	Name        string      `json:"name"`
	Desc        string      `json:"desc"`
	Due         string      `json:"due"`
	DueComplete bool        `json:"dueComplete"`
	Closed      bool        `json:"closed"`
	MemberIDs   []string    `json:"idMembers"`
	Labels      []Label     `json:"labels"`
	Comments    []Comment   `json:"actions,omitempty"`
	Checklists  []Checklist `json:"checklists,omitempty"`
}

// IsComplete reports whether the card should be treated as finished work.
func (c *Card) IsComplete() bool {
	return c.DueComplete || c.Closed
}
