package player

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DisplayName cleans a username for display while keeping its casing. Hiscore
// feeds return non-breaking spaces and other compatibility characters inside
// names; NFKC folds those to their plain forms.
func DisplayName(username string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(username)), " ")
}

// Key is the normalized form used for cache keys and for every cross-source
// equality check. Two usernames are the same player iff their keys are equal.
func Key(username string) string {
	return strings.ToLower(DisplayName(username))
}
