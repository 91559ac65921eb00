package migrate

import (
	"fmt"
	"io"
	"strings"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/kanboard"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

// ResolvedMember is the Kanboard identity of a Trello member.
type ResolvedMember struct {
	UserID   int
	Username string // Trello username, used for mentions
}

// ResolveMembers maps Trello member ids to Kanboard users.
//
// An entry in overrides (Trello username -> Kanboard user id) is used as is.
// Otherwise the member must match exactly one project user whose username
// or full name equals the Trello username; members with no match or several
// matches are reported on out and left unmapped.
func ResolveMembers(members []trello.Member, users []kanboard.User, overrides map[string]int, out io.Writer) map[string]ResolvedMember {
	resolved := make(map[string]ResolvedMember, len(members))
	for _, m := range members {
		if id, ok := overrides[m.Username]; ok {
			resolved[m.ID] = ResolvedMember{UserID: id, Username: m.Username}
			continue
		}

		var matched []kanboard.User
		for _, u := range users {
			if u.Username == m.Username || (u.Name != "" && u.Name == m.Username) {
				matched = append(matched, u)
			}
		}

		switch len(matched) {
		case 0:
			fmt.Fprintf(out, " No match found for member %q\n", m.Username)
		case 1:
			resolved[m.ID] = ResolvedMember{UserID: matched[0].ID, Username: m.Username}
		default:
			names := make([]string, 0, len(matched))
			for _, u := range matched {
				names = append(names, fmt.Sprintf("%s (id %d)", u.DisplayName(), u.ID))
			}
			fmt.Fprintf(out, " More than one match found for member %q: %s\n", m.Username, strings.Join(names, ", "))
		}
	}
	return resolved
}

// cardMembers picks the task owner from a card's members. The first mapped
// member becomes the owner; later mapped members are returned as @mentions
// and unmapped ids as is.
func cardMembers(memberIDs []string, members map[string]ResolvedMember) (*int, []string) {
	var owner *int
	var mentions []string
	for _, id := range memberIDs {
		m, ok := members[id]
		if !ok {
			mentions = append(mentions, id)
			continue
		}
		if owner != nil {
			mentions = append(mentions, "@"+m.Username)
			continue
		}
		owner = intPtr(m.UserID)
	}
	return owner, mentions
}
