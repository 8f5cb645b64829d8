package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapKeepsCauseAndCode(t *testing.T) {
	err := Wrap(CodeTimeout, context.DeadlineExceeded, "大模型推理超时")

	if !stdErrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cause to be reachable, got %v", err)
	}
	if !stdErrors.Is(err, New(CodeTimeout, "")) {
		t.Fatalf("expected errors.Is to match on code")
	}
	if stdErrors.Is(err, New(CodeTemplate, "")) {
		t.Fatalf("different codes must not match")
	}
	if CodeOf(fmt.Errorf("outer: %w", err)) != CodeTimeout {
		t.Fatalf("expected code to survive fmt wrapping")
	}
}

func TestDefaultsFromRegistry(t *testing.T) {
	err := New(CodeRetrievalFailure, "")
	if err.Message() != "context retrieval failed" {
		t.Fatalf("unexpected default message: %q", err.Message())
	}
	if !err.Upstream() {
		t.Fatalf("retrieval failures come from collaborators")
	}
	if New(CodeTemplate, "").Upstream() {
		t.Fatalf("template errors are local")
	}
	if SeverityOf(stdErrors.New("plain")) != SeverityCritical {
		t.Fatalf("plain errors fall back to UNKNOWN severity")
	}
}

func TestRegisterAndMetadata(t *testing.T) {
	const custom Code = "CUSTOM_TEST"
	Register(custom, Attributes{Message: "custom", Severity: SeverityInfo})

	err := New(custom, "", WithMetadata("address", "0x1"), WithSeverity(SeverityWarning))
	if err.Message() != "custom" {
		t.Fatalf("unexpected message: %q", err.Message())
	}
	if err.Severity() != SeverityWarning {
		t.Fatalf("severity override ignored")
	}
	meta := err.Metadata()
	meta["address"] = "mutated"
	if err.Metadata()["address"] != "0x1" {
		t.Fatalf("metadata must be copied")
	}
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		New(CodeInvalidArgument, ""):                          http.StatusBadRequest,
		Wrap(CodeRetrievalFailure, stdErrors.New("down"), ""): http.StatusBadGateway,
		New(CodeCompletionFailure, ""):                        http.StatusBadGateway,
		Wrap(CodeTimeout, context.DeadlineExceeded, ""):       http.StatusGatewayTimeout,
		New(CodeTemplate, ""):                                 http.StatusInternalServerError,
		stdErrors.New("plain"):                                http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := StatusOf(err); got != want {
			t.Fatalf("StatusOf(%v) = %d, want %d", err, got, want)
		}
	}

	const quiet Code = "STATUSLESS_TEST"
	Register(quiet, Attributes{Message: "no status"})
	if got := StatusOf(New(quiet, "")); got != http.StatusInternalServerError {
		t.Fatalf("codes without status fall back to 500, got %d", got)
	}
}

func TestTurnCodesRegistered(t *testing.T) {
	cases := map[Code]Attributes{
		CodeRetrievalFailure:  {Message: "context retrieval failed", Severity: SeverityWarning, Upstream: true, Status: http.StatusBadGateway},
		CodeTemplate:          {Message: "prompt template error", Severity: SeverityCritical, Status: http.StatusInternalServerError},
		CodeCompletionFailure: {Message: "completion request failed", Severity: SeverityWarning, Upstream: true, Status: http.StatusBadGateway},
	}
	for code, want := range cases {
		if got := AttributesOf(code); got != want {
			t.Fatalf("AttributesOf(%s) = %+v, want %+v", code, got, want)
		}
	}
	if New(CodeTemplate, "").Message() != "prompt template error" {
		t.Fatalf("registered message not applied")
	}
}
