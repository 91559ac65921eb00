// Package trello is a read-only client for the subset of the Trello REST API
// needed to migrate a board.
package trello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Trello REST API root
	DefaultBaseURL = "https://api.trello.com/1"

	defaultTimeout = 60 * time.Second

	// Trello returns at most 1000 comment actions per card request.
	commentsLimit = "1000"
)

// ErrTooLarge is returned by Download when the payload exceeds the requested limit.
var ErrTooLarge = errors.New("trello: payload exceeds size limit")

// Config holds client configuration.
type Config struct {
	BaseURL    string // defaults to DefaultBaseURL
	APIKey     string
	Token      string
	HTTPClient *http.Client
}

// Client talks to the Trello REST API using key/token authentication.
type Client struct {
	baseURL string
	key     string
	token   string
	http    *http.Client
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trello: GET %s: status %d: %s", e.Path, e.Status, e.Body)
}

// New creates a Trello client.
func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: base,
		key:     cfg.APIKey,
		token:   cfg.Token,
		http:    httpClient,
	}
}

// GetBoard fetches a board by id or short link.
func (c *Client) GetBoard(ctx context.Context, boardID string) (*Board, error) {
	var board Board
	q := url.Values{"fields": {"id,name,shortLink,url,closed"}}
	if err := c.get(ctx, "/boards/"+url.PathEscape(boardID), q, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// ListMyBoards lists the boards the authenticated member belongs to.
func (c *Client) ListMyBoards(ctx context.Context) ([]Board, error) {
	var boards []Board
	q := url.Values{"fields": {"id,name,shortLink,url,closed"}}
	if err := c.get(ctx, "/members/me/boards", q, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// ListLists returns all lists of a board, archived ones included.
func (c *Client) ListLists(ctx context.Context, boardID string) ([]List, error) {
	var lists []List
	q := url.Values{"filter": {"all"}}
	if err := c.get(ctx, "/boards/"+url.PathEscape(boardID)+"/lists", q, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// ListCards returns all cards of a list, archived ones included.
func (c *Client) ListCards(ctx context.Context, listID string) ([]Card, error) {
	var cards []Card
	q := url.Values{"filter": {"all"}}
	if err := c.get(ctx, "/lists/"+url.PathEscape(listID)+"/cards", q, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard fetches full card detail including comments and checklists.
func (c *Client) GetCard(ctx context.Context, cardID string) (*Card, error) {
	var card Card
	q := url.Values{
		"fields":           {"all"},
		"actions":          {"commentCard"},
		"actions_limit":    {commentsLimit},
		"checklists":       {"all"},
		"checklist_fields": {"all"},
	}
	if err := c.get(ctx, "/cards/"+url.PathEscape(cardID), q, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// GetCardRef fetches just enough of a card (by id or short link) to know
// which board it lives on.
func (c *Client) GetCardRef(ctx context.Context, idOrShortLink string) (*Card, error) {
	var card Card
	q := url.Values{"fields": {"id,idBoard,shortLink,name"}}
	if err := c.get(ctx, "/cards/"+url.PathEscape(idOrShortLink), q, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// ListAttachments returns the attachments of a card.
func (c *Client) ListAttachments(ctx context.Context, cardID string) ([]Attachment, error) {
	var attachments []Attachment
	if err := c.get(ctx, "/cards/"+url.PathEscape(cardID)+"/attachments", nil, &attachments); err != nil {
		return nil, err
	}
	for i := range attachments {
		attachments[i].CardID = cardID
	}
	return attachments, nil
}

// ListMembers returns the members of a board.
func (c *Client) ListMembers(ctx context.Context, boardID string) ([]Member, error) {
	var members []Member
	q := url.Values{"fields": {"id,username,fullName"}}
	if err := c.get(ctx, "/boards/"+url.PathEscape(boardID)+"/members", q, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Download fetches an attachment payload. The whole body is read before
// returning and the connection is released regardless of outcome. A payload
// longer than limit bytes yields ErrTooLarge (limit <= 0 means unlimited).
func (c *Client) Download(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("trello: build download request: %w", err)
	}
	// Uploaded files are only served to authenticated members.
	if isTrelloHost(req.URL.Hostname()) {
		req.Header.Set("Authorization", fmt.Sprintf(`OAuth oauth_consumer_key="%s", oauth_token="%s"`, c.key, c.token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trello: download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{Status: resp.StatusCode, Path: req.URL.Path, Body: strings.TrimSpace(string(body))}
	}

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("trello: read %s: %w", rawURL, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dst interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.key)
	query.Set("token", c.token)

	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("trello: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trello: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Status: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("trello: decode %s: %w", path, err)
	}
	return nil
}
