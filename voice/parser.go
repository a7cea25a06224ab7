package voice

import "strings"

// Intent kinds
const (
	ActivateIntent = "activate"
	NavigateIntent = "navigate"
)

// Trigger phrases
var (
	activatePhrases = []string{"click", "press"}
	navigatePhrases = []string{"go to", "navigate to"}
)

// Intent is a command extracted from a transcript
type Intent struct {
	Kind   string
	Target string
}

// Parse extracts intents from a transcript. A transcript yields at most one navigate
// intent followed by at most one activate intent: when both trigger phrases are present
// both intents are returned.
func Parse(transcript string) (is []Intent) {
	transcript = strings.ToLower(transcript)
	if t, ok := target(transcript, navigatePhrases); ok {
		is = append(is, Intent{Kind: NavigateIntent, Target: t})
	}
	if t, ok := target(transcript, activatePhrases); ok {
		is = append(is, Intent{Kind: ActivateIntent, Target: t})
	}
	return
}

// target returns what follows the earliest occurrence of any of the phrases
func target(transcript string, phrases []string) (t string, ok bool) {
	idx, l := -1, 0
	for _, p := range phrases {
		if i := strings.Index(transcript, p); i >= 0 && (idx < 0 || i < idx) {
			idx, l = i, len(p)
		}
	}
	if idx < 0 {
		return
	}
	t = strings.TrimSpace(transcript[idx+l:])
	ok = t != ""
	return
}
