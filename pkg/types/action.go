package types

import (
	"fmt"
	"strings"
)

// Action is a mutation that can be applied to a conversation.
type Action int

const (
	ActionArchive   Action = iota + 1 // ActionArchive hides a conversation from the sidebar and moves it to the archive.
	ActionUnarchive                   // ActionUnarchive restores an archived conversation.
	ActionDelete                      // ActionDelete hides a conversation permanently.
	ActionUndelete                    // ActionUndelete restores a deleted conversation. Not offered to users.
)

var actionNames = map[Action]string{
	ActionArchive:   "archive",
	ActionUnarchive: "unarchive",
	ActionDelete:    "delete",
	ActionUndelete:  "undelete",
}

// String returns the lower-case name of the action.
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// Inverse returns the action that reverses a.
func (a Action) Inverse() Action {
	switch a {
	case ActionArchive:
		return ActionUnarchive
	case ActionUnarchive:
		return ActionArchive
	case ActionDelete:
		return ActionUndelete
	case ActionUndelete:
		return ActionDelete
	}
	return 0
}

// Bulk reports whether a may be used for a bulk run.
func (a Action) Bulk() bool {
	return a == ActionArchive || a == ActionDelete
}

// Past returns the past-tense label used in status lines.
func (a Action) Past() string {
	switch a {
	case ActionArchive:
		return "Archived"
	case ActionUnarchive:
		return "Unarchived"
	case ActionDelete:
		return "Deleted"
	case ActionUndelete:
		return "Restored"
	}
	return a.String()
}

// ParseAction parses an action name case-insensitively.
func ParseAction(s string) (Action, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for a, name := range actionNames {
		if name == needle {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
