package spatialref

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Node is one keyword element of a WKT coordinate system definition, e.g.
// PROJCS["name", GEOGCS[...], ...]. Args hold strings (quoted values),
// float64 (numbers), Identifier (bare words such as EAST) and *Node.
type Node struct {
	Keyword string
	Args    []any
}

// Identifier is an unquoted enumeration value, e.g. the EAST in AXIS["X",EAST].
type Identifier string

// Name returns the first argument when it is a quoted string.
func (n *Node) Name() string {
	if n == nil || len(n.Args) == 0 {
		return ""
	}
	s, _ := n.Args[0].(string)
	return s
}

// Child returns the first direct child with the given keyword.
func (n *Node) Child(keyword string) *Node {
	if n == nil {
		return nil
	}
	for _, a := range n.Args {
		if c, ok := a.(*Node); ok && strings.EqualFold(c.Keyword, keyword) {
			return c
		}
	}
	return nil
}

// ParseWKT parses a WKT coordinate system string into a node tree.
func ParseWKT(s string) (*Node, error) {
	p := &wktParser{src: s}
	p.skipSpace()
	n, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, eris.Wrapf(ErrInvalidProjection, "spatialref: trailing content at offset %d", p.pos)
	}
	return n, nil
}

type wktParser struct {
	src string
	pos int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *wktParser) word() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *wktParser) node() (*Node, error) {
	kw := p.word()
	if kw == "" {
		return nil, eris.Wrapf(ErrInvalidProjection, "spatialref: expected keyword at offset %d", p.pos)
	}
	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != '[' && p.src[p.pos] != '(') {
		return nil, eris.Wrapf(ErrInvalidProjection, "spatialref: expected '[' after %s", kw)
	}
	closer := byte(']')
	if p.src[p.pos] == '(' {
		closer = ')'
	}
	p.pos++

	n := &Node{Keyword: strings.ToUpper(kw)}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, eris.Wrapf(ErrInvalidProjection, "spatialref: unterminated %s", n.Keyword)
		}
		if p.src[p.pos] == closer && len(n.Args) == 0 {
			p.pos++
			return n, nil
		}

		arg, err := p.value()
		if err != nil {
			return nil, err
		}
		n.Args = append(n.Args, arg)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, eris.Wrapf(ErrInvalidProjection, "spatialref: unterminated %s", n.Keyword)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return n, nil
		default:
			return nil, eris.Wrapf(ErrInvalidProjection, "spatialref: unexpected %q in %s", p.src[p.pos], n.Keyword)
		}
	}
}

func (p *wktParser) value() (any, error) {
	c := p.src[p.pos]
	switch {
	case c == '"':
		return p.quoted()
	case c == '-' || c == '+' || c == '.' || c >= '0' && c <= '9':
		return p.number()
	}

	save := p.pos
	w := p.word()
	if w == "" {
		return nil, eris.Wrapf(ErrInvalidProjection, "spatialref: unexpected %q at offset %d", c, p.pos)
	}
	p.skipSpace()
	if p.pos < len(p.src) && (p.src[p.pos] == '[' || p.src[p.pos] == '(') {
		p.pos = save
		return p.node()
	}
	return Identifier(w), nil
}

func (p *wktParser) quoted() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		// "" is an escaped quote.
		if p.pos < len(p.src) && p.src[p.pos] == '"' {
			b.WriteByte('"')
			p.pos++
			continue
		}
		return b.String(), nil
	}
	return "", eris.Wrap(ErrInvalidProjection, "spatialref: unterminated string")
}

func (p *wktParser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, eris.Wrapf(ErrInvalidProjection, "spatialref: bad number %q", p.src[start:p.pos])
	}
	return f, nil
}
