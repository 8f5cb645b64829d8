// Package events publishes completed conversation turns to downstream
// consumers. Publishing is best-effort: the agent logs a failed publish and
// still returns the answer.
package events
