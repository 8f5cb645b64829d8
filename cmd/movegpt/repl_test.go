package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/require"
)

type scriptedReader struct {
	lines   []string
	end     error
	history []string
}

func (s *scriptedReader) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", s.end
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedReader) AppendHistory(item string) {
	s.history = append(s.history, item)
}

func echo(_ context.Context, q string) (string, error) {
	if q == "fail" {
		return "", errors.New("boom")
	}
	return "re: " + q, nil
}

func TestRunLoopAnswersUntilQuit(t *testing.T) {
	in := &scriptedReader{lines: []string{"hello", "  ", "fail", "again", "quit", "never"}, end: io.EOF}
	var out, errOut bytes.Buffer

	err := runLoop(context.Background(), in, &out, &errOut, "> ", echo)
	require.NoError(t, err)
	require.Equal(t, "MoveGPT: re: hello\nMoveGPT: re: again\n", out.String())
	require.Equal(t, "Error: boom\n", errOut.String())
	require.Equal(t, []string{"hello", "fail", "again", "quit"}, in.history)
	require.Equal(t, []string{"never"}, in.lines)
}

func TestRunLoopStopsOnEOFAndAbort(t *testing.T) {
	for _, end := range []error{io.EOF, liner.ErrPromptAborted} {
		in := &scriptedReader{lines: []string{"one"}, end: end}
		var out bytes.Buffer
		require.NoError(t, runLoop(context.Background(), in, &out, io.Discard, "> ", echo))
		require.Equal(t, "MoveGPT: re: one\n\n", out.String())
	}
}

func TestRunLoopPropagatesReadErrors(t *testing.T) {
	in := &scriptedReader{end: errors.New("tty gone")}
	err := runLoop(context.Background(), in, io.Discard, io.Discard, "> ", echo)
	require.EqualError(t, err, "tty gone")
}

func TestRunLoopHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := &scriptedReader{lines: []string{"hello"}}
	var out bytes.Buffer
	require.NoError(t, runLoop(ctx, in, &out, io.Discard, "> ", echo))
	require.Empty(t, out.String())
}

func TestLocalServerURL(t *testing.T) {
	require.Equal(t, "http://localhost:3000", localServerURL(":3000"))
	require.Equal(t, "http://127.0.0.1:8080", localServerURL("127.0.0.1:8080"))
	require.Equal(t, "https://api.example.com", localServerURL("https://api.example.com"))
}
