package sequence

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ActionID is a validated action identifier. Action IDs are snake_case
// names ("send_qualification_email"); comparison is done on the
// normalized form so definitions authored with stray whitespace, case
// differences, or non-NFC Unicode still resolve to the same handler.
type ActionID string

// ParseActionID validates and normalizes a raw action name.
func ParseActionID(raw string) (ActionID, error) {
	normalized := NormalizeActionName(raw)
	if normalized == "" {
		return "", fmt.Errorf("action id is empty")
	}
	for _, r := range normalized {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '.' {
			continue
		}
		return "", fmt.Errorf("action id %q contains invalid character %q", raw, r)
	}
	return ActionID(normalized), nil
}

// NormalizeActionName lowercases, trims, and NFC-normalizes an action
// name. This is the single normalization used by the registry, the alias
// table, and the built-in handler switch, so all three tiers agree on
// identity.
func NormalizeActionName(raw string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(raw)))
}

func (a ActionID) String() string {
	return string(a)
}
