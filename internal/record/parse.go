package record

import (
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// ErrSyntax is returned for text that is not a literal expression.
var ErrSyntax = eris.New("record: invalid literal")

// ParseLiteral parses text produced by Render back into a Value. It accepts
// a safe subset of Python literal syntax: dict, list and tuple displays,
// quoted strings (with escapes and implicit concatenation), integers,
// floats, unary signs on numbers, True, False and None. Nothing is ever
// evaluated; names such as inf, nan or bare words are rejected.
func ParseLiteral(text string) (Value, error) {
	p := &parser{src: text}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q after value", p.peek())
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	return eris.Wrapf(ErrSyntax, "offset %d: "+format, append([]any{p.pos}, args...)...)
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', '\f':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) value() (Value, error) {
	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}
	c := p.peek()
	switch {
	case c == '{':
		return p.dict()
	case c == '[':
		return p.sequence('[', ']', false)
	case c == '(':
		return p.sequence('(', ')', true)
	case c == '\'' || c == '"':
		return p.stringSeq()
	case c == '-' || c == '+':
		return p.signed()
	case c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		return p.word()
	default:
		return nil, p.errorf("unexpected %q", c)
	}
}

func (p *parser) dict() (Value, error) {
	p.pos++ // {
	obj := NewObject()
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return obj, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		key, err := p.keyString(k)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' in dict")
		}
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return obj, nil
		default:
			return nil, p.errorf("expected ',' or '}' in dict")
		}
	}
}

// keyString maps a hashable literal key onto an Object key. Strings are
// used as is, other scalars and tuples by their rendered text.
func (p *parser) keyString(k Value) (string, error) {
	switch t := k.(type) {
	case string:
		return t, nil
	case *Object:
		return "", p.errorf("unhashable dict key")
	case []Value:
		for _, e := range t {
			if _, err := p.keyString(e); err != nil {
				return "", err
			}
		}
		return Render(t), nil
	default:
		return Render(t), nil
	}
}

func (p *parser) sequence(open, closing byte, tuple bool) (Value, error) {
	p.pos++ // open
	out := make([]Value, 0)
	sawComma := false
	for {
		p.skipSpace()
		if p.peek() == closing {
			p.pos++
			break
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			sawComma = true
			continue
		case closing:
			p.pos++
		default:
			return nil, p.errorf("expected ',' or %q", closing)
		}
		break
	}
	// (x) is a parenthesised value, not a tuple.
	if tuple && len(out) == 1 && !sawComma {
		return out[0], nil
	}
	return out, nil
}

func (p *parser) signed() (Value, error) {
	neg := false
	for p.peek() == '-' || p.peek() == '+' {
		if p.peek() == '-' {
			neg = !neg
		}
		p.pos++
		p.skipSpace()
	}
	if p.eof() || !(p.peek() == '.' || isDigit(p.peek())) {
		return nil, p.errorf("sign must precede a number")
	}
	v, err := p.number()
	if err != nil || !neg {
		return v, err
	}
	switch t := v.(type) {
	case json.Number:
		n, _ := new(big.Int).SetString(string(t), 10)
		return json.Number(n.Neg(n).String()), nil
	case float64:
		return -t, nil
	}
	return v, nil
}

func (p *parser) number() (Value, error) {
	start := p.pos
	if p.peek() == '0' && p.pos+1 < len(p.src) {
		switch p.src[p.pos+1] {
		case 'x', 'X':
			return p.radix(16)
		case 'o', 'O':
			return p.radix(8)
		case 'b', 'B':
			return p.radix(2)
		}
	}

	digits := func() int {
		n := 0
		for !p.eof() {
			c := p.peek()
			if isDigit(c) {
				n++
				p.pos++
				continue
			}
			if c == '_' && n > 0 && p.pos+1 < len(p.src) && isDigit(p.src[p.pos+1]) {
				p.pos++
				continue
			}
			break
		}
		return n
	}

	intDigits := digits()
	isFloat := false
	if p.peek() == '.' {
		isFloat = true
		p.pos++
		frac := digits()
		if intDigits == 0 && frac == 0 {
			return nil, p.errorf("invalid number")
		}
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		save := p.pos
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if digits() == 0 {
			p.pos = save
			return nil, p.errorf("invalid exponent")
		}
		isFloat = true
	}
	if c := p.peek(); c == 'j' || c == 'J' || isIdentStart(c) || isDigit(c) {
		return nil, p.errorf("invalid number suffix %q", c)
	}

	raw := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if isFloat {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, p.errorf("invalid float %q", raw)
		}
		return f, nil
	}
	if len(raw) > 1 && raw[0] == '0' && strings.Trim(raw, "0") != "" {
		return nil, p.errorf("leading zeros in integer %q", raw)
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, p.errorf("invalid integer %q", raw)
	}
	return json.Number(n.String()), nil
}

func (p *parser) radix(base int) (Value, error) {
	p.pos += 2
	start := p.pos
	for !p.eof() && (isHex(p.peek()) || p.peek() == '_') {
		p.pos++
	}
	raw := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	n, ok := new(big.Int).SetString(raw, base)
	if raw == "" || !ok {
		return nil, p.errorf("invalid base-%d integer", base)
	}
	if c := p.peek(); isIdentStart(c) {
		return nil, p.errorf("invalid number suffix %q", c)
	}
	return json.Number(n.String()), nil
}

func (p *parser) word() (Value, error) {
	start := p.pos
	for !p.eof() && (isIdentStart(p.peek()) || isDigit(p.peek())) {
		p.pos++
	}
	w := p.src[start:p.pos]
	switch w {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	}
	// String prefixes: u, r, b and their combinations (no f-strings).
	if c := p.peek(); (c == '\'' || c == '"') && isStringPrefix(w) {
		p.pos = start
		return p.stringSeq()
	}
	p.pos = start
	return nil, p.errorf("name %q is not a literal", w)
}

// stringSeq parses one or more adjacent string literals and concatenates them.
func (p *parser) stringSeq() (Value, error) {
	var b strings.Builder
	for {
		s, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
		save := p.pos
		p.skipSpace()
		if !p.startsString() {
			p.pos = save
			return b.String(), nil
		}
	}
}

func (p *parser) startsString() bool {
	i := p.pos
	for i < len(p.src) && i-p.pos < 2 && isIdentStart(p.src[i]) {
		i++
	}
	if i >= len(p.src) || (p.src[i] != '\'' && p.src[i] != '"') {
		return false
	}
	return i == p.pos || isStringPrefix(p.src[p.pos:i])
}

func (p *parser) stringLiteral() (string, error) {
	raw := false
	for isIdentStart(p.peek()) {
		if c := p.peek(); c == 'r' || c == 'R' {
			raw = true
		}
		p.pos++
	}
	quote := p.peek()
	if quote != '\'' && quote != '"' {
		return "", p.errorf("expected string")
	}
	triple := strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(quote), 3))
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}

	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.peek()
		switch {
		case c == quote && !triple:
			p.pos++
			return b.String(), nil
		case c == quote && strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(quote), 3)):
			p.pos += 3
			return b.String(), nil
		case (c == '\n' || c == '\r') && !triple:
			return "", p.errorf("unterminated string")
		case c == '\\':
			if err := p.escape(&b, raw); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *parser) escape(b *strings.Builder, raw bool) error {
	p.pos++ // backslash
	if p.eof() {
		return p.errorf("unterminated string")
	}
	c := p.peek()
	if raw {
		// Raw strings keep the backslash; it only shields the next char.
		b.WriteByte('\\')
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		b.WriteRune(r)
		p.pos += size
		return nil
	}
	p.pos++
	switch c {
	case '\n':
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'v':
		b.WriteByte('\v')
	case 'x':
		return p.hexEscape(b, 2)
	case 'u':
		return p.hexEscape(b, 4)
	case 'U':
		return p.hexEscape(b, 8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := int(c - '0')
		for i := 0; i < 2 && !p.eof() && p.peek() >= '0' && p.peek() <= '7'; i++ {
			n = n*8 + int(p.peek()-'0')
			p.pos++
		}
		b.WriteRune(rune(n))
	case 'N':
		return p.errorf("named unicode escapes are not supported")
	default:
		b.WriteByte('\\')
		p.pos--
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		b.WriteRune(r)
		p.pos += size
	}
	return nil
}

func (p *parser) hexEscape(b *strings.Builder, width int) error {
	if p.pos+width > len(p.src) {
		return p.errorf("truncated escape")
	}
	h := p.src[p.pos : p.pos+width]
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return p.errorf("invalid escape %q", h)
	}
	if n > unicode.MaxRune {
		return p.errorf("escape %q out of range", h)
	}
	p.pos += width
	b.WriteRune(rune(n))
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isStringPrefix(w string) bool {
	switch strings.ToLower(w) {
	case "u", "r", "b", "br", "rb":
		return true
	}
	return false
}
