// Package retrieval produces the context text placed into a prompt, either
// from a similarity search over the document store or from the on-chain state
// of an account mentioned in the question.
package retrieval
