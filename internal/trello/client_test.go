package trello

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, APIKey: "k", Token: "tok"})
}

func TestClient_GetCardDecodesDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cards/c1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("token") != "tok" {
			t.Errorf("expected key/token query params, got %v", q)
		}
		if q.Get("actions") != "commentCard" {
			t.Errorf("expected commentCard actions, got %q", q.Get("actions"))
		}
		w.Write([]byte(`{
			"id": "c1", "idBoard": "b1", "name": "Fix bug", "desc": "broken",
			"due": "2024-03-01T09:30:00.000Z", "dueComplete": true, "closed": false,
			"idMembers": ["m1", "m2"],
			"labels": [{"id": "l1", "name": "priority: high", "color": "red"}, {"id": "l2", "name": "", "color": "green"}],
			"actions": [{"id": "a1", "idMemberCreator": "m1", "date": "2024-02-01T10:00:00.000Z", "data": {"text": "looks good"}}],
			"checklists": [{"id": "cl1", "name": "Todo", "checkItems": [
				{"id": "i1", "name": "write test", "state": "complete"},
				{"id": "i2", "name": "fix", "state": "incomplete"}
			]}]
		}`))
	})

	card, err := client.GetCard(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if card.Name != "Fix bug" || card.IDBoard != "b1" {
		t.Errorf("unexpected card %+v", card)
	}
	if !card.IsComplete() {
		t.Error("expected dueComplete card to be complete")
	}
	if len(card.MemberIDs) != 2 || card.MemberIDs[0] != "m1" {
		t.Errorf("unexpected members %v", card.MemberIDs)
	}
	if len(card.Labels) != 2 || card.Labels[1].Name != "" {
		t.Errorf("unexpected labels %+v", card.Labels)
	}
	if len(card.Comments) != 1 || card.Comments[0].AuthorID != "m1" || card.Comments[0].Text() != "looks good" {
		t.Errorf("unexpected comments %+v", card.Comments)
	}
	if len(card.Checklists) != 1 || len(card.Checklists[0].CheckItems) != 2 {
		t.Fatalf("unexpected checklists %+v", card.Checklists)
	}
	if !card.Checklists[0].CheckItems[0].Checked() || card.Checklists[0].CheckItems[1].Checked() {
		t.Error("checklist item states decoded incorrectly")
	}
}

func TestClient_ListListsUsesAllFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filter") != "all" {
			t.Errorf("expected filter=all, got %q", r.URL.Query().Get("filter"))
		}
		w.Write([]byte(`[{"id": "l1", "name": "Backlog"}, {"id": "l2", "name": "Old", "closed": true}]`))
	})

	lists, err := client.ListLists(context.Background(), "b1")
	if err != nil {
		t.Fatalf("ListLists failed: %v", err)
	}
	if len(lists) != 2 || lists[0].Name != "Backlog" || !lists[1].Closed {
		t.Errorf("unexpected lists %+v", lists)
	}
}

func TestClient_ListAttachmentsSetsCardID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "a1", "name": "design.pdf", "url": "https://trello.com/x/design.pdf", "bytes": 1024, "isUpload": true},
			{"id": "a2", "name": "link", "url": "https://example.com", "bytes": null, "isUpload": false}]`))
	})

	attachments, err := client.ListAttachments(context.Background(), "c9")
	if err != nil {
		t.Fatalf("ListAttachments failed: %v", err)
	}
	if len(attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(attachments))
	}
	for _, a := range attachments {
		if a.CardID != "c9" {
			t.Errorf("expected CardID c9, got %q", a.CardID)
		}
	}
	if attachments[0].Bytes != 1024 || !attachments[0].IsUpload {
		t.Errorf("unexpected upload attachment %+v", attachments[0])
	}
	if attachments[1].Bytes != 0 || attachments[1].IsUpload {
		t.Errorf("unexpected link attachment %+v", attachments[1])
	}
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	_, err := client.GetBoard(context.Background(), "b1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", apiErr.Status)
	}
	if !strings.Contains(apiErr.Error(), "invalid token") {
		t.Errorf("expected body in error, got %q", apiErr.Error())
	}
}

func TestClient_DownloadLimit(t *testing.T) {
	payload := strings.Repeat("x", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()
	client := New(Config{BaseURL: srv.URL, APIKey: "k", Token: "tok"})

	data, err := client.Download(context.Background(), srv.URL+"/file", 100)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(data) != payload {
		t.Errorf("unexpected payload length %d", len(data))
	}

	if _, err := client.Download(context.Background(), srv.URL+"/file", 99); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestParseCardURL(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://trello.com/c/AbCd1234/17-some-card", "AbCd1234", true},
		{"https://trello.com/c/AbCd1234", "AbCd1234", true},
		{"https://www.trello.com/c/XyZ", "XyZ", true},
		{"https://trello.com/b/Board123/my-board", "", false},
		{"https://trello.com/c", "", false},
		{"https://example.com/c/AbCd1234", "", false},
		{"not a url %%", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseCardURL(tt.url)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseCardURL(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}
}
