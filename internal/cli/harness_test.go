package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/cli/appctx"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/config"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/kanboard"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/state"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/testutil"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

// trelloRoutes maps request paths to canned JSON bodies.
type trelloRoutes map[string]string

func newTrelloServer(t *testing.T, routes trelloRoutes) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// boardRoutes is a two-list board with two cards and one member.
func boardRoutes() trelloRoutes {
	return trelloRoutes{
		"/boards/b1":         `{"id":"b1","name":"Roadmap","shortLink":"abc"}`,
		"/boards/b1/lists":   `[{"id":"l1","name":"To Do"},{"id":"l2","name":"Done"}]`,
		"/boards/b1/members": `[{"id":"m1","username":"alice","fullName":"Alice"}]`,
		"/lists/l1/cards":    `[{"id":"c1","name":"Write docs","idBoard":"b1"}]`,
		"/lists/l2/cards":    `[{"id":"c2","name":"Ship it","idBoard":"b1"}]`,
		"/cards/c1": `{"id":"c1","name":"Write docs","idBoard":"b1","desc":"details",
			"idMembers":["m1"],"labels":[{"id":"x","name":"docs"}],
			"actions":[{"id":"a1","idMemberCreator":"m1","date":"2024-01-02T10:00:00Z","data":{"text":"first"}}],
			"checklists":[{"id":"k1","name":"Steps","checkItems":[{"id":"i1","name":"draft","state":"complete"}]}]}`,
		"/cards/c2":             `{"id":"c2","name":"Ship it","idBoard":"b1","dueComplete":true}`,
		"/cards/c1/attachments": `[]`,
		"/cards/c2/attachments": `[]`,
		"/members/me/boards":    `[{"id":"b1","name":"Roadmap","shortLink":"abc"},{"id":"b2","name":"Old","shortLink":"def","closed":true}]`,
	}
}

type rpcCall struct {
	Method string
	Params map[string]interface{}
}

// fakeKanboard is a minimal JSON-RPC server holding one project.
type fakeKanboard struct {
	mu      sync.Mutex
	columns []map[string]interface{}
	calls   []rpcCall
	nextID  int
}

func newFakeKanboard(t *testing.T) (*fakeKanboard, *httptest.Server) {
	t.Helper()
	fk := &fakeKanboard{
		columns: []map[string]interface{}{
			{"id": "1", "title": "To Do", "position": "1"},
			{"id": "2", "title": "Backlog", "position": "2"},
		},
		nextID: 100,
	}
	ts := httptest.NewServer(http.HandlerFunc(fk.serve))
	t.Cleanup(ts.Close)
	return fk, ts
}

func (fk *fakeKanboard) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     int64                  `json:"id"`
		Method string                 `json:"method"`
		Params map[string]interface{} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fk.mu.Lock()
	fk.calls = append(fk.calls, rpcCall{Method: req.Method, Params: req.Params})
	var result interface{}
	switch req.Method {
	case "getColumns":
		result = fk.columns
	case "addColumn":
		fk.nextID++
		fk.columns = append(fk.columns, map[string]interface{}{"id": fk.nextID, "title": req.Params["title"], "position": len(fk.columns) + 1})
		result = fk.nextID
	case "removeColumn":
		result = true
	case "getProjectUsers":
		result = map[string]string{"1": "Alice"}
	case "getUser":
		result = map[string]interface{}{"id": "1", "username": "alice", "name": "Alice"}
	case "getMyProjects":
		result = []map[string]interface{}{
			{"id": "7", "name": "Archive", "is_active": "0"},
			{"id": "4", "name": "Product", "is_active": "1"},
		}
	case "getProjectById":
		if req.Params["project_id"] != float64(4) {
			result = false
			break
		}
		result = map[string]interface{}{"id": "4", "name": "Product", "is_active": "1"}
	case "closeTask":
		result = true
	default:
		fk.nextID++
		result = fk.nextID
	}
	fk.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func (fk *fakeKanboard) count(method string) int {
	fk.mu.Lock()
	defer fk.mu.Unlock()
	n := 0
	for _, c := range fk.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (fk *fakeKanboard) find(method string) []rpcCall {
	fk.mu.Lock()
	defer fk.mu.Unlock()
	var out []rpcCall
	for _, c := range fk.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// createTestApp wires an App to the fake servers and a migrated state
// database.
func createTestApp(t *testing.T, trelloURL, kanboardURL string) *appctx.App {
	t.Helper()
	database, dbPath := testutil.TempDB(t)
	return &appctx.App{
		Config:   &config.Config{StatePath: dbPath, Output: "table"},
		DB:       database,
		State:    state.New(database),
		Trello:   trello.New(trello.Config{BaseURL: trelloURL, APIKey: "key", Token: "token"}),
		Kanboard: kanboard.New(kanboard.Config{URL: kanboardURL, Token: "secret"}),
	}
}

func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(""))
	return cmd, out, errOut
}
