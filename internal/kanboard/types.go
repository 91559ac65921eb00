package kanboard

// DateLayout is Kanboard's minute-precision local datetime format.
const DateLayout = "2006-01-02 15:04"

// RelatedLinkID is the built-in "relates to" task link type.
const RelatedLinkID = 1

// SubtaskStatus is the Kanboard subtask status code
type SubtaskStatus int

const (
	SubtaskTodo SubtaskStatus = 0
	SubtaskDone SubtaskStatus = 2
)

// Column represents a project column
type Column struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// User represents a project member
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"` // full name, may be empty
}

// DisplayName returns the full name, falling back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Project represents a Kanboard project
type Project struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// TaskParams are the createTask parameters. Nil pointers and empty strings
// are omitted so Kanboard applies its own defaults.
type TaskParams struct {
	Title       string   `json:"title"`
	ProjectID   int      `json:"project_id"`
	ColumnID    int      `json:"column_id"`
	OwnerID     *int     `json:"owner_id,omitempty"`
	DateDue     string   `json:"date_due,omitempty"`
	Description string   `json:"description,omitempty"`
	Score       *int     `json:"score,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}
