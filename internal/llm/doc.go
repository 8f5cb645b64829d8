// Package llm defines the two capabilities MoveGPT needs from a language model
// provider: text completion for answering a turn and embeddings for the
// document store. Provider adapters live in sub-packages.
package llm
