// Package agent runs one conversation turn: retrieve context, render the
// session history, assemble the prompt, call the completion model and commit
// the exchange to the session. A failed turn leaves the history untouched.
package agent
