package svgpath

import (
	"fmt"
	"strconv"
)

// Parse parses SVG path data into a Path. Coordinates may be separated by
// whitespace and/or commas; command letters may be repeated implicitly by
// supplying extra coordinate groups, with the usual SVG rule that extra
// groups after a moveto are treated as linetos.
func Parse(d string) (*Path, error) {
	p := parser{data: d}
	path := &Path{}

	var cur, start Point
	var cmd byte
	haveStart := false

	for {
		p.skipSep()
		if p.eof() {
			break
		}

		if c := p.peek(); isCommand(c) {
			cmd = c
			p.pos++
		} else if cmd == 0 {
			return nil, fmt.Errorf("svgpath: path must start with a command, got %q", c)
		} else {
			// Implicit repetition of the previous command.
			switch cmd {
			case 'M':
				cmd = 'L'
			case 'm':
				cmd = 'l'
			case 'Z', 'z':
				// Close takes no parameters, so a coordinate here can
				// never be consumed.
				return nil, fmt.Errorf("svgpath: unexpected %q after close at offset %d", c, p.pos)
			}
		}

		rel := cmd >= 'a'
		base := Point{}
		if rel {
			base = cur
		}

		switch cmd {
		case 'M', 'm':
			pt, err := p.point(base)
			if err != nil {
				return nil, err
			}
			path.elements = append(path.elements, MoveTo{Point: pt})
			cur, start, haveStart = pt, pt, true

		case 'L', 'l':
			pt, err := p.point(base)
			if err != nil {
				return nil, err
			}
			path.elements = append(path.elements, LineTo{Point: pt})
			cur = pt

		case 'H', 'h':
			x, err := p.number()
			if err != nil {
				return nil, err
			}
			if rel {
				x += cur.X
			}
			cur = Point{X: x, Y: cur.Y}
			path.elements = append(path.elements, LineTo{Point: cur})

		case 'V', 'v':
			y, err := p.number()
			if err != nil {
				return nil, err
			}
			if rel {
				y += cur.Y
			}
			cur = Point{X: cur.X, Y: y}
			path.elements = append(path.elements, LineTo{Point: cur})

		case 'C', 'c':
			c1, err := p.point(base)
			if err != nil {
				return nil, err
			}
			c2, err := p.point(base)
			if err != nil {
				return nil, err
			}
			pt, err := p.point(base)
			if err != nil {
				return nil, err
			}
			path.elements = append(path.elements, CubicTo{Control1: c1, Control2: c2, Point: pt})
			cur = pt

		case 'Q', 'q':
			c1, err := p.point(base)
			if err != nil {
				return nil, err
			}
			pt, err := p.point(base)
			if err != nil {
				return nil, err
			}
			path.elements = append(path.elements, QuadTo{Control: c1, Point: pt})
			cur = pt

		case 'Z', 'z':
			if !haveStart {
				return nil, fmt.Errorf("svgpath: close without subpath")
			}
			path.elements = append(path.elements, Close{})
			cur = start

		default:
			return nil, fmt.Errorf("svgpath: unsupported command %q", cmd)
		}
	}

	if len(path.elements) == 0 {
		return nil, fmt.Errorf("svgpath: empty path")
	}
	return path, nil
}

func isCommand(c byte) bool {
	switch c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'C', 'c', 'Q', 'q', 'Z', 'z',
		'S', 's', 'T', 't', 'A', 'a':
		return true
	}
	return false
}

type parser struct {
	data string
	pos  int
}

func (p *parser) eof() bool { return p.pos >= len(p.data) }

func (p *parser) peek() byte { return p.data[p.pos] }

func (p *parser) skipSep() {
	for !p.eof() {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r', ',':
			p.pos++
		default:
			return
		}
	}
}

// number reads one float, accepting a leading sign and exponent notation.
func (p *parser) number() (float64, error) {
	p.skipSep()
	begin := p.pos
	if !p.eof() && (p.peek() == '+' || p.peek() == '-') {
		p.pos++
	}
	seenDot := false
	for !p.eof() {
		c := p.peek()
		switch {
		case c >= '0' && c <= '9':
			p.pos++
		case c == '.' && !seenDot:
			seenDot = true
			p.pos++
		case c == 'e' || c == 'E':
			p.pos++
			if !p.eof() && (p.peek() == '+' || p.peek() == '-') {
				p.pos++
			}
		default:
			goto done
		}
	}
done:
	if p.pos == begin {
		return 0, fmt.Errorf("svgpath: expected number at offset %d", begin)
	}
	v, err := strconv.ParseFloat(p.data[begin:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("svgpath: bad number %q: %w", p.data[begin:p.pos], err)
	}
	return v, nil
}

func (p *parser) point(base Point) (Point, error) {
	x, err := p.number()
	if err != nil {
		return Point{}, err
	}
	y, err := p.number()
	if err != nil {
		return Point{}, err
	}
	return Point{X: base.X + x, Y: base.Y + y}, nil
}
