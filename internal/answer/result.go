package answer

// Result is the outcome of one backend call: either an answer text or a
// failure reason. Reasons are diagnostics for logs and are never spoken.
type Result struct {
	text   string
	reason string
	ok     bool
}

// Answered returns a successful result carrying text.
func Answered(text string) Result {
	return Result{text: text, ok: true}
}

// Failed returns a failed result carrying a diagnostic reason.
func Failed(reason string) Result {
	if reason == "" {
		reason = "unknown backend failure"
	}
	return Result{reason: reason}
}

func (r Result) OK() bool { return r.ok }

// Text is the answer; empty for failed results.
func (r Result) Text() string { return r.text }

// Reason is the failure diagnostic; empty for answered results.
func (r Result) Reason() string { return r.reason }
