package notify

import "strings"

// Preferences control which content deltas produce notifications.
type Preferences struct {
	Enabled      bool
	BreakingNews bool
	DailyDigest  bool
	// Categories the user follows for category-update alerts.
	Categories []string
}

func DefaultPreferences() Preferences {
	return Preferences{Enabled: true, BreakingNews: true}
}

// Subscribed reports whether category is followed, ignoring case.
func (p Preferences) Subscribed(category string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(strings.TrimSpace(c), category) {
			return true
		}
	}
	return false
}
