package types

import (
	"regexp"
	"strings"
	"time"
)

// Item is a single conversation that can be selected and mutated.
type Item struct {
	// ID is the stable conversation identifier.
	ID string `json:"id"`

	// Title is the display title. May be empty.
	Title string `json:"title"`

	// URL opens the conversation in the browser.
	URL string `json:"url"`

	// GroupID is the canonical id of the owning project, empty for flat chats.
	GroupID string `json:"group_id,omitempty"`

	// Order is the position assigned at enumeration time.
	Order int `json:"order"`

	// Bucket is the sidebar date heading the chat was listed under ("Today", "Yesterday", ...).
	Bucket string `json:"bucket,omitempty"`

	// UpdatedAt is the last update time reported by the backend, zero when unknown.
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// UpdatedLabel is UpdatedAt formatted for display.
	UpdatedLabel string `json:"updated_label,omitempty"`
}

// DisplayTitle returns the title or a placeholder for untitled conversations.
func (i Item) DisplayTitle() string {
	if t := strings.TrimSpace(i.Title); t != "" {
		return t
	}
	return "(untitled)"
}

// Group is a project folder containing conversations.
type Group struct {
	// GroupID is the canonical project id (g-p-<32 hex>).
	GroupID string `json:"group_id"`

	// RawID is the decorated id found in the link, kept for display and debugging.
	RawID string `json:"raw_id"`

	// Title is the project name.
	Title string `json:"title"`

	// URL opens the project page.
	URL string `json:"url"`

	// Order is the position assigned at enumeration time.
	Order int `json:"order"`
}

// UntitledGroup is used when a project link carries no visible name.
const UntitledGroup = "(untitled project)"

var (
	canonicalGroupRe = regexp.MustCompile(`^(g-p-[0-9a-fA-F]{32})`)
	projectHrefRe    = regexp.MustCompile(`^/g/([^/]+)/project/?$`)
)

// CanonicalGroupID extracts the canonical project id from a decorated raw id.
// It returns false when the raw id does not start with g-p- followed by 32 hex characters.
func CanonicalGroupID(raw string) (string, bool) {
	m := canonicalGroupRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseProjectHref extracts the raw project id from a sidebar link path such as /g/<raw>/project.
func ParseProjectHref(href string) (string, bool) {
	path := href
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	m := projectHrefRe.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// GroupPage is one page of a project's conversation listing.
type GroupPage struct {
	// Items carry ID, Title and UpdatedAt. Other fields are filled by the loader.
	Items []Item

	// NextCursor is empty when the listing is exhausted.
	NextCursor string
}
