package backend

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// Stream is a lazy, finite, read-once sequence of text fragments.
// Recv returns io.EOF once the backend has finished. Concatenating every
// fragment in order yields the full reply.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// maxLineSize bounds a single NDJSON or SSE line.
const maxLineSize = 1024 * 1024

// LineParser turns one line of a streaming response body into a text delta.
// done reports that the backend signalled the end of the reply.
type LineParser func(line string) (delta string, done bool, err error)

// lineStream adapts a line-oriented HTTP body (NDJSON or SSE) to Stream.
type lineStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	parse   LineParser
	done    bool
	once    sync.Once
}

// NewLineStream wraps body and yields the non-empty deltas produced by parse.
// Blank lines are skipped. The body is closed by Close.
func NewLineStream(body io.ReadCloser, parse LineParser) Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineStream{
		body:    body,
		scanner: scanner,
		parse:   parse,
	}
}

func (s *lineStream) Recv() (string, error) {
	for !s.done {
		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		delta, done, err := s.parse(line)
		if err != nil {
			s.done = true
			return "", err
		}
		if done {
			s.done = true
		}
		if delta != "" {
			return delta, nil
		}
	}
	return "", io.EOF
}

func (s *lineStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
	})
	return err
}

// SliceStream returns a Stream over fixed fragments. It is used for
// backends that cannot stream and by tests.
func SliceStream(chunks ...string) Stream {
	return &sliceStream{chunks: chunks}
}

type sliceStream struct {
	chunks []string
	pos    int
	closed bool
}

func (s *sliceStream) Recv() (string, error) {
	if s.closed || s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// ReadAll drains the stream, closes it and returns the concatenated text.
// On a mid-stream error the text received so far is returned with the error.
func ReadAll(s Stream) (string, error) {
	defer s.Close()

	var sb strings.Builder
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}

// SSEData extracts the payload of an SSE "data:" line. ok is false for
// other SSE fields (event:, id:, comments).
func SSEData(line string) (data string, ok bool) {
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "data:")), true
}
