// Package prompt renders the instruction templates sent to the completion
// model. Templates use named `{placeholder}` slots; assembling a template with
// a missing value fails instead of producing a partial prompt.
package prompt
