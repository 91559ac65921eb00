// Package kanboard is a JSON-RPC client for the Kanboard API calls used by
// the migration.
package kanboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultUsername = "jsonrpc"
)

// Config holds client configuration.
type Config struct {
	URL        string // instance URL; /jsonrpc.php is appended when missing
	Username   string // defaults to "jsonrpc" (application API access)
	Token      string
	HTTPClient *http.Client
}

// Client is a Kanboard JSON-RPC client.
type Client struct {
	endpoint string
	username string
	token    string
	http     *http.Client
}

// New creates a Kanboard client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	username := cfg.Username
	if username == "" {
		username = defaultUsername
	}
	return &Client{
		endpoint: Endpoint(cfg.URL),
		username: username,
		token:    cfg.Token,
		http:     httpClient,
	}
}

// Endpoint returns the JSON-RPC endpoint for an instance URL.
func Endpoint(instanceURL string) string {
	u := strings.TrimRight(instanceURL, "/")
	if strings.HasSuffix(u, "jsonrpc.php") {
		return u
	}
	return u + "/jsonrpc.php"
}

// GetColumns lists the columns of a project ordered by position.
func (c *Client) GetColumns(ctx context.Context, projectID int) ([]Column, error) {
	raw, err := c.call(ctx, "getColumns", map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	var wire []struct {
		ID       flexInt `json:"id"`
		Title    string  `json:"title"`
		Position flexInt `json:"position"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("kanboard: decode getColumns: %w", err)
	}
	columns := make([]Column, 0, len(wire))
	for _, w := range wire {
		columns = append(columns, Column{ID: int(w.ID), Title: w.Title, Position: int(w.Position)})
	}
	return columns, nil
}

// AddColumn creates a column and returns its id.
func (c *Client) AddColumn(ctx context.Context, projectID int, title string) (int, error) {
	return c.callID(ctx, "addColumn", map[string]interface{}{
		"project_id": projectID,
		"title":      title,
	})
}

// RemoveColumn deletes a column.
func (c *Client) RemoveColumn(ctx context.Context, columnID int) error {
	return c.callOK(ctx, "removeColumn", map[string]interface{}{"column_id": columnID})
}

// GetProjectUsers lists project members with their usernames and full
// names. getProjectUsers only returns display names, so each user is looked
// up individually.
func (c *Client) GetProjectUsers(ctx context.Context, projectID int) ([]User, error) {
	raw, err := c.call(ctx, "getProjectUsers", map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	// An empty PHP array is encoded as [] rather than {}.
	if s := strings.TrimSpace(string(raw)); s != "[]" && s != "false" {
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, fmt.Errorf("kanboard: decode getProjectUsers: %w", err)
		}
	}

	ids := make([]int, 0, len(names))
	for k := range names {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("kanboard: getProjectUsers returned invalid user id %q", k)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	users := make([]User, 0, len(ids))
	for _, id := range ids {
		user, err := c.GetUser(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("kanboard: getUser %d failed, using display name only: %v", id, err)
			user = &User{ID: id, Name: names[strconv.Itoa(id)]}
		}
		users = append(users, *user)
	}
	return users, nil
}

// GetUser fetches a single user.
func (c *Client) GetUser(ctx context.Context, userID int) (*User, error) {
	raw, err := c.call(ctx, "getUser", map[string]interface{}{"user_id": userID})
	if err != nil {
		return nil, err
	}
	if isFalse(raw) {
		return nil, &OperationError{Method: "getUser"}
	}
	var wire struct {
		ID       flexInt `json:"id"`
		Username string  `json:"username"`
		Name     string  `json:"name"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("kanboard: decode getUser: %w", err)
	}
	return &User{ID: int(wire.ID), Username: wire.Username, Name: wire.Name}, nil
}

// CreateTask creates a task and returns its id.
func (c *Client) CreateTask(ctx context.Context, params TaskParams) (int, error) {
	return c.callID(ctx, "createTask", params)
}

// CloseTask marks a task as closed.
func (c *Client) CloseTask(ctx context.Context, taskID int) error {
	return c.callOK(ctx, "closeTask", map[string]interface{}{"task_id": taskID})
}

// CreateSubtask creates a subtask and returns its id.
func (c *Client) CreateSubtask(ctx context.Context, taskID int, title string, status SubtaskStatus) (int, error) {
	return c.callID(ctx, "createSubtask", map[string]interface{}{
		"task_id": taskID,
		"title":   title,
		"status":  int(status),
	})
}

// CreateComment creates a comment authored by userID.
func (c *Client) CreateComment(ctx context.Context, taskID, userID int, content string) (int, error) {
	return c.callID(ctx, "createComment", map[string]interface{}{
		"task_id": taskID,
		"user_id": userID,
		"content": content,
	})
}

// CreateTaskFile uploads a base64 encoded file to a task.
func (c *Client) CreateTaskFile(ctx context.Context, projectID, taskID int, filename, blob string) (int, error) {
	return c.callID(ctx, "createTaskFile", map[string]interface{}{
		"project_id": projectID,
		"task_id":    taskID,
		"filename":   filename,
		"blob":       blob,
	})
}

// CreateExternalTaskLink attaches an external URL to a task.
func (c *Client) CreateExternalTaskLink(ctx context.Context, taskID int, url, dependency, title string) (int, error) {
	return c.callID(ctx, "createExternalTaskLink", map[string]interface{}{
		"task_id":    taskID,
		"url":        url,
		"dependency": dependency,
		"title":      title,
	})
}

// CreateTaskLink links two tasks with the given link type.
func (c *Client) CreateTaskLink(ctx context.Context, taskID, oppositeTaskID, linkID int) (int, error) {
	return c.callID(ctx, "createTaskLink", map[string]interface{}{
		"task_id":          taskID,
		"opposite_task_id": oppositeTaskID,
		"link_id":          linkID,
	})
}

// GetMyProjects lists the projects of the authenticated user.
func (c *Client) GetMyProjects(ctx context.Context) ([]Project, error) {
	raw, err := c.call(ctx, "getMyProjects", nil)
	if err != nil {
		return nil, err
	}
	if isFalse(raw) {
		return nil, &OperationError{Method: "getMyProjects"}
	}
	var wire []projectWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("kanboard: decode getMyProjects: %w", err)
	}
	projects := make([]Project, 0, len(wire))
	for _, w := range wire {
		projects = append(projects, w.project())
	}
	return projects, nil
}

// GetProjectByID fetches a project.
func (c *Client) GetProjectByID(ctx context.Context, projectID int) (*Project, error) {
	raw, err := c.call(ctx, "getProjectById", map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	if isFalse(raw) {
		return nil, &OperationError{Method: "getProjectById"}
	}
	var wire projectWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("kanboard: decode getProjectById: %w", err)
	}
	p := wire.project()
	return &p, nil
}

type projectWire struct {
	ID       flexInt `json:"id"`
	Name     string  `json:"name"`
	IsActive flexInt `json:"is_active"`
}

func (w projectWire) project() Project {
	return Project{ID: int(w.ID), Name: w.Name, Active: w.IsActive == 1}
}

func isFalse(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "false" || s == "null" || s == ""
}
