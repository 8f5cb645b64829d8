// Package knowledge stores the Move and Aptos reference material that answers
// are grounded on. It exposes a similarity Provider backed by chromem-go or
// qdrant, a keyword provider for offline use, and the markdown ingestion
// pipeline that fills them.
package knowledge
