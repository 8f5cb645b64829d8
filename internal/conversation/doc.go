// Package conversation keeps the per-session dialogue history that is fed back
// into every prompt, together with the session registry that serializes turns.
package conversation
