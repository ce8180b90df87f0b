// Package input reads polygon vertex lists in the "x,y" per line format.
package input

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/rect-search/internal/core/model"
)

var (
	ErrParse = errors.New("parse error")
	ErrIO    = errors.New("io error")
)

type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("line %d %q: invalid coordinate row", e.Line, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// ReadFile loads and parses the vertex list at path.
func ReadFile(path string) (model.Boundary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return Parse(bytes.NewReader(raw))
}

// Parse reads one "x,y" vertex per line. Blank lines are skipped.
// Coordinates must lie in [0, model.MaxCoord].
func Parse(r io.Reader) (model.Boundary, error) {
	var out model.Boundary
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		p, err := parsePoint(text)
		if err != nil {
			return nil, &ParseError{Line: line, Text: text, Err: err}
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, &IOError{Path: "<input>", Err: err}
	}
	return out, nil
}

func parsePoint(s string) (model.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Point{}, fmt.Errorf("want 2 comma separated values, got %d", len(parts))
	}
	x, err := parseCoord(parts[0])
	if err != nil {
		return model.Point{}, fmt.Errorf("x: %w", err)
	}
	y, err := parseCoord(parts[1])
	if err != nil {
		return model.Point{}, fmt.Errorf("y: %w", err)
	}
	return model.Point{X: x, Y: y}, nil
}

func parseCoord(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative coordinate %d", n)
	}
	if n > model.MaxCoord {
		return 0, fmt.Errorf("coordinate %d exceeds %d", n, model.MaxCoord)
	}
	return n, nil
}
