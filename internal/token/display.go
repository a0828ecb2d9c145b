package token

// Display renders a token kind the way diagnostics should: the same
// human name used internally, kept as a separate method so diagnostic
// wording can diverge from String() later without touching call sites.
func (t TokenType) Display() string {
	return t.String()
}
