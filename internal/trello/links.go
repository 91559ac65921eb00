package trello

import (
	"net/url"
	"strings"
)

// ParseCardURL extracts the card id or short link from a card URL such as
// https://trello.com/c/AbCd1234/17-card-name. It returns false for anything
// that does not address a card.
func ParseCardURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if !isTrelloHost(u.Hostname()) {
		return "", false
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 || parts[0] != "c" {
		return "", false
	}
	return parts[1], true
}

func isTrelloHost(host string) bool {
	host = strings.ToLower(host)
	return host == "trello.com" || host == "www.trello.com"
}
