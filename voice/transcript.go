package voice

import "strings"

// Result is one recognition result: a single utterance segment with its alternatives
type Result struct {
	Alternatives []string `json:"alternatives"`
	Final        bool     `json:"final"`
}

// Event is delivered by recognizers every time results change. Results replace every
// result starting at Index, which allows interim results to be revised.
type Event struct {
	Index   int      `json:"index"`
	Results []Result `json:"results"`
}

// Transcript is the text recognized during the current listening session
type Transcript struct {
	consumed int
	rs       []Result
}

// Apply applies an event
func (t *Transcript) Apply(e Event) {
	if e.Index < 0 {
		e.Index = 0
	}
	if e.Index > len(t.rs) {
		e.Index = len(t.rs)
	}
	t.rs = append(t.rs[:e.Index], e.Results...)
}

// String concatenates every alternative of every result that has not been consumed, lower-cased
func (t *Transcript) String() string {
	var b strings.Builder
	for idx := t.consumed; idx < len(t.rs); idx++ {
		for _, a := range t.rs[idx].Alternatives {
			if a == "" {
				continue
			}
			if b.Len() > 0 && !strings.HasPrefix(a, " ") && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
			b.WriteString(a)
		}
	}
	return strings.ToLower(b.String())
}

// Final checks whether the last result is final
func (t *Transcript) Final() bool {
	return len(t.rs) > 0 && t.rs[len(t.rs)-1].Final
}

// Len returns the number of results
func (t *Transcript) Len() int { return len(t.rs) }

// Consume hides the first n results from the transcript
func (t *Transcript) Consume(n int) {
	if n > len(t.rs) {
		n = len(t.rs)
	}
	if n > t.consumed {
		t.consumed = n
	}
}

// Reset clears the transcript
func (t *Transcript) Reset() {
	t.consumed = 0
	t.rs = nil
}
