package natives

import (
	"strconv"
	"strings"

	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

// parseJSON is a recursive-descent JSON reader producing glipt values
// directly (nil/bool/number/string/list/map) rather than round-tripping
// through a host-generic tree. Malformed input yields nil.
func parseJSON(th *vm.Thread, src string) value.Value {
	p := &jsonParser{th: th, src: src}
	p.skipSpace()
	v, ok := p.parseValue()
	if !ok {
		return value.Nil
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return value.Nil
	}
	return v
}

type jsonParser struct {
	th  *vm.Thread
	src string
	pos int
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) parseValue() (value.Value, bool) {
	if p.pos >= len(p.src) {
		return value.Nil, false
	}
	switch c := p.src[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, ok := p.parseString()
		if !ok {
			return value.Nil, false
		}
		return p.th.StringValue(s), true
	case c == 't':
		return p.parseLit("true", value.True)
	case c == 'f':
		return p.parseLit("false", value.False)
	case c == 'n':
		return p.parseLit("null", value.Nil)
	case c == '-' || ('0' <= c && c <= '9'):
		return p.parseNumber()
	}
	return value.Nil, false
}

func (p *jsonParser) parseLit(lit string, v value.Value) (value.Value, bool) {
	if strings.HasPrefix(p.src[p.pos:], lit) {
		p.pos += len(lit)
		return v, true
	}
	return value.Nil, false
}

func (p *jsonParser) parseNumber() (value.Value, bool) {
	start := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if ('0' <= c && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			p.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return value.Nil, false
	}
	return value.Number(f), true
}

func (p *jsonParser) parseString() (string, bool) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return sb.String(), true
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", false
			}
			switch p.src[p.pos] {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'u':
				if p.pos+4 >= len(p.src) {
					return "", false
				}
				code, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return "", false
				}
				sb.WriteRune(rune(code))
				p.pos += 4
			default:
				return "", false
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", false
}

func (p *jsonParser) parseArray() (value.Value, bool) {
	p.pos++ // [
	var elems []value.Value
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ']' {
		p.pos++
		return p.th.NewList(nil), true
	}
	for {
		p.skipSpace()
		v, ok := p.parseValue()
		if !ok {
			p.th.Unprotect(len(elems))
			return value.Nil, false
		}
		p.th.Protect(v) // parsed elements stay rooted while siblings allocate
		elems = append(elems, v)
		p.skipSpace()
		if p.pos >= len(p.src) {
			p.th.Unprotect(len(elems))
			return value.Nil, false
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			lv := p.th.NewList(elems)
			p.th.Unprotect(len(elems))
			return lv, true
		default:
			p.th.Unprotect(len(elems))
			return value.Nil, false
		}
	}
}

func (p *jsonParser) parseObject() (value.Value, bool) {
	p.pos++ // {
	m, mv := p.th.NewMap()
	p.th.Protect(mv) // rooted while entries allocate
	defer p.th.Unprotect(1)
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
		return mv, true
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '"' {
			return value.Nil, false
		}
		key, ok := p.parseString()
		if !ok {
			return value.Nil, false
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return value.Nil, false
		}
		p.pos++
		p.skipSpace()
		v, ok := p.parseValue()
		if !ok {
			return value.Nil, false
		}
		m.Set(p.th.Intern(key), v)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return value.Nil, false
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return mv, true
		default:
			return value.Nil, false
		}
	}
}

// writeJSON renders v compactly, map keys in insertion order.
// Values with no JSON form (functions) render as null.
func writeJSON(v value.Value) string {
	var sb strings.Builder
	writeJSONValue(&sb, v)
	return sb.String()
}

func writeJSONValue(sb *strings.Builder, v value.Value) {
	switch {
	case v.IsNil():
		sb.WriteString("null")
	case v.IsBool():
		if v.AsBool() {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case v.IsNumber():
		sb.WriteString(vm.FormatNumber(v.AsNumber()))
	default:
		switch o := v.AsObj().(type) {
		case *value.StringObj:
			writeJSONString(sb, o.Chars)
		case *value.ListObj:
			sb.WriteByte('[')
			for i, el := range o.Elems {
				if i > 0 {
					sb.WriteByte(',')
				}
				writeJSONValue(sb, el)
			}
			sb.WriteByte(']')
		case *value.MapObj:
			sb.WriteByte('{')
			for i, k := range o.Keys() {
				if i > 0 {
					sb.WriteByte(',')
				}
				writeJSONString(sb, k.Chars)
				sb.WriteByte(':')
				val, _ := o.Get(k)
				writeJSONValue(sb, val)
			}
			sb.WriteByte('}')
		default:
			sb.WriteString("null")
		}
	}
}

func writeJSONString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c < 0x20 {
				sb.WriteString("\\u")
				const hex = "0123456789abcdef"
				sb.WriteByte('0')
				sb.WriteByte('0')
				sb.WriteByte(hex[c>>4])
				sb.WriteByte(hex[c&0xf])
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
}
