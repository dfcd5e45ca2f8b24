package geom

import (
	"fmt"
	"strconv"
	"strings"
)

// MalformedPathError reports path data that could not be decoded.
type MalformedPathError struct {
	Path   string
	Offset int
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path at offset %d: %s", e.Offset, e.Reason)
}

// argCounts is the number of numeric arguments each command consumes.
var argCounts = map[byte]int{
	'M': 2, 'L': 2, 'T': 2,
	'H': 1, 'V': 1,
	'C': 6,
	'S': 4, 'Q': 4,
	'A': 7,
	'Z': 0,
}

// PathToPoints decodes SVG-style path data into its vertex list.
//
// Move and line commands map to points directly. Curve and arc commands keep
// only their endpoint, so curvature is discarded. Close commands add no point.
func PathToPoints(path string) ([]Point, error) {
	s := &pathScanner{src: path}
	points := []Point{}

	var cur, start Point
	var cmd byte // current command letter, 0 when none is active

	for {
		s.skipSeparators()
		if s.done() {
			break
		}

		c := s.src[s.pos]
		if isLetter(c) {
			upper := toUpper(c)
			if _, ok := argCounts[upper]; !ok {
				return nil, s.fail(fmt.Sprintf("unknown command %q", c))
			}
			s.pos++
			if upper == 'Z' {
				cur = start
				cmd = 0
				continue
			}
			cmd = c
		} else if cmd == 0 {
			return nil, s.fail("coordinates without a command")
		}

		upper := toUpper(cmd)
		args, err := s.numbers(argCounts[upper])
		if err != nil {
			return nil, err
		}

		rel := cmd != upper
		var next Point
		switch upper {
		case 'M', 'L', 'T':
			next = Point{X: args[0], Y: args[1]}
		case 'H':
			next = Point{X: args[0], Y: cur.Y}
			if rel {
				next.Y = 0
			}
		case 'V':
			next = Point{X: cur.X, Y: args[0]}
			if rel {
				next.X = 0
			}
		case 'C':
			next = Point{X: args[4], Y: args[5]}
		case 'S', 'Q':
			next = Point{X: args[2], Y: args[3]}
		case 'A':
			next = Point{X: args[5], Y: args[6]}
		}
		if rel {
			next = next.Add(cur.X, cur.Y)
		}

		points = append(points, next)
		cur = next

		if upper == 'M' {
			start = next
			// Extra coordinate pairs after a move are implicit line-tos.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		}
	}

	return points, nil
}

// PointsToPath encodes points as "M x y L x y ... Z". The path is closed only
// when it has at least three points. Numbers use the shortest representation
// that parses back to the same float64.
func PointsToPath(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	var b strings.Builder
	for i, p := range points {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}
		b.WriteString(formatNumber(p.X))
		b.WriteByte(' ')
		b.WriteString(formatNumber(p.Y))
	}
	if len(points) >= 3 {
		b.WriteString(" Z")
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type pathScanner struct {
	src string
	pos int
}

func (s *pathScanner) done() bool { return s.pos >= len(s.src) }

func (s *pathScanner) fail(reason string) *MalformedPathError {
	return &MalformedPathError{Path: s.src, Offset: s.pos, Reason: reason}
}

func (s *pathScanner) skipSeparators() {
	for !s.done() {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			s.pos++
		default:
			return
		}
	}
}

// numbers reads exactly n numeric arguments.
func (s *pathScanner) numbers(n int) ([]float64, error) {
	out := make([]float64, 0, n)
	for len(out) < n {
		s.skipSeparators()
		if s.done() {
			return nil, s.fail(fmt.Sprintf("expected %d arguments, got %d", n, len(out)))
		}
		if isLetter(s.src[s.pos]) {
			return nil, s.fail(fmt.Sprintf("expected %d arguments, got %d", n, len(out)))
		}

		startPos := s.pos
		tok := s.scanNumber()
		if tok == "" {
			return nil, s.fail(fmt.Sprintf("unexpected character %q", s.src[startPos]))
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			s.pos = startPos
			return nil, s.fail(fmt.Sprintf("invalid number %q", tok))
		}
		out = append(out, v)
	}
	return out, nil
}

// scanNumber consumes one number token ("-1.5e3", ".5", "10") and returns it,
// or returns "" without consuming anything when no digits are present.
func (s *pathScanner) scanNumber() string {
	start := s.pos
	i := s.pos
	if i < len(s.src) && (s.src[i] == '+' || s.src[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s.src) && isDigit(s.src[i]) {
		i++
		digits++
	}
	if i < len(s.src) && s.src[i] == '.' {
		i++
		for i < len(s.src) && isDigit(s.src[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return ""
	}

	if i < len(s.src) && (s.src[i] == 'e' || s.src[i] == 'E') {
		j := i + 1
		if j < len(s.src) && (s.src[j] == '+' || s.src[j] == '-') {
			j++
		}
		if j < len(s.src) && isDigit(s.src[j]) {
			for j < len(s.src) && isDigit(s.src[j]) {
				j++
			}
			i = j
		}
	}

	s.pos = i
	return s.src[start:i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
