// Package resource turns raw on-chain account state (resources, recent
// transactions and published modules) into plain text blocks that can be
// placed into a prompt.
package resource
