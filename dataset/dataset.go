// Package dataset reads and writes point files.
//
// A point file holds the clustering radius on its first line followed by one
// "x, y" pair per line:
//
//	0.1
//	0.05, 0.05
//	0.1, 0.05
//	0.5, 0.5
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"web/cellcluster/cluster"
)

var (
	ErrEmpty               = errors.New("file is empty")
	ErrMalformedRadius     = errors.New("radius is not a number")
	ErrMissingField        = errors.New("expected two comma separated coordinates")
	ErrMalformedCoordinate = errors.New("coordinate is not a number")
)

// Dataset is the parsed content of a point file.
type Dataset struct {
	Radius float64
	Points []cluster.Point
}

// ParseError locates a parse failure. Field is "radius", "x" or "y".
type ParseError struct {
	Line  int
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the point file at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Read parses a point file. Blank lines after the radius are ignored.
func Read(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, ErrEmpty
	}

	radiusText := trimNewline(scanner.Text())
	radius, err := strconv.ParseFloat(strings.TrimSpace(radiusText), 64)
	if err != nil {
		return nil, &ParseError{Line: 1, Field: "radius", Text: radiusText, Err: ErrMalformedRadius}
	}

	ds := &Dataset{Radius: radius}
	line := 1
	for scanner.Scan() {
		line++
		text := trimNewline(scanner.Text())
		if strings.TrimSpace(text) == "" {
			continue
		}
		p, err := parsePoint(line, text)
		if err != nil {
			return nil, err
		}
		ds.Points = append(ds.Points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	return ds, nil
}

func parsePoint(line int, text string) (cluster.Point, error) {
	fields := strings.Split(text, ",")
	if len(fields) < 2 {
		return cluster.Point{}, &ParseError{Line: line, Field: "y", Text: text, Err: ErrMissingField}
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return cluster.Point{}, &ParseError{Line: line, Field: "x", Text: fields[0], Err: ErrMalformedCoordinate}
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return cluster.Point{}, &ParseError{Line: line, Field: "y", Text: fields[1], Err: ErrMalformedCoordinate}
	}
	return cluster.Point{X: x, Y: y}, nil
}

// trimNewline drops a trailing carriage return left by CRLF files.
func trimNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// Write emits ds in point file format.
func Write(w io.Writer, ds *Dataset) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strconv.FormatFloat(ds.Radius, 'g', -1, 64))
	bw.WriteByte('\n')
	for _, p := range ds.Points {
		bw.WriteString(strconv.FormatFloat(p.X, 'g', -1, 64))
		bw.WriteString(", ")
		bw.WriteString(strconv.FormatFloat(p.Y, 'g', -1, 64))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Save writes ds to path, replacing any existing file.
func Save(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Generate builds a random data set of n points in the unit square.
func Generate(n int, radius float64, seed int64) (*Dataset, error) {
	if radius <= 0 || radius > 1 {
		return nil, fmt.Errorf("radius must be in (0, 1], got %g", radius)
	}
	if n < 1 {
		return nil, fmt.Errorf("number of points must be positive, got %d", n)
	}
	return &Dataset{Radius: radius, Points: cluster.GenerateTestPoints(n, seed)}, nil
}
