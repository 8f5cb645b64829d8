// Package api exposes the question answering agent over HTTP. It serves the
// two answer endpoints, session and transcript inspection and Prometheus
// metrics behind a chi router.
package api
