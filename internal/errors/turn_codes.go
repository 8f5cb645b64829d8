package errors

import "net/http"

// 问答链路的三类失败在包初始化时注册。
func init() {
	Register(CodeRetrievalFailure, Attributes{
		Message:  "context retrieval failed",
		Severity: SeverityWarning,
		Upstream: true,
		Status:   http.StatusBadGateway,
	})
	Register(CodeTemplate, Attributes{
		Message:  "prompt template error",
		Severity: SeverityCritical,
		Status:   http.StatusInternalServerError,
	})
	Register(CodeCompletionFailure, Attributes{
		Message:  "completion request failed",
		Severity: SeverityWarning,
		Upstream: true,
		Status:   http.StatusBadGateway,
	})
}
