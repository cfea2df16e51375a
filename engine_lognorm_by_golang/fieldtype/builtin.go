package fieldtype

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
)

func registerBuiltins(r *Registry) {
	r.Register("word", fixed(extractWord), 0)
	r.Register("alpha", fixed(extractAlpha), 0)
	r.Register("whitespace", fixed(extractWhitespace), 0)
	r.Register("number", fixed(extractNumber), 0)
	r.Register("integer", fixed(extractInteger), 0)
	r.Register("float", fixed(extractFloat), 0)
	r.Register("hexnumber", fixed(extractHexNumber), 0)
	r.Register("quoted-string", newQuotedString, 0)
	r.Register("ipv4", fixed(extractIPv4), 0)
	r.Register("ipv6", fixed(extractIPv6), 0)
	r.Register("mac48", fixed(extractMAC48), 0)
	r.Register("rest", fixed(extractRest), 0)
	r.Register("char-to", newCharTo, 0)
	r.Register("char-sep", newCharSep, 0)
	r.Register("string-to", newStringTo, 0)
	r.Register("date-rfc3164", fixed(extractDateRFC3164), 0)
	r.Register("date-iso", fixed(extractDateISO), 0)
	r.Register("time-24hr", fixed(extractTime24), 0)
	r.Register("json", fixed(extractJSON), 0)
	r.Register("regex", newRegex, ir.OptAllowRegex)
}

// fixed wraps a parameterless extractor; params are ignored.
func fixed(fn ExtractFn) FactoryFn {
	return func(string) (ExtractFn, error) { return fn, nil }
}

var noValue ir.Value

// -------- character classes --------

func isSpace(c byte) bool  { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool  { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isHex(c byte) bool    { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }
func isBlank(c byte) bool  { return c == ' ' || c == '\t' }
func isIPv6Ch(c byte) bool { return isHex(c) || c == ':' || c == '.' }

// span returns the length of the run of bytes satisfying pred starting at i.
func span(line string, i int, pred func(byte) bool) int {
	j := i
	for j < len(line) && pred(line[j]) {
		j++
	}
	return j - i
}

// -------- simple runs --------

func extractWord(line string, i int) (int, ir.Value, bool) {
	n := span(line, i, func(c byte) bool { return !isSpace(c) })
	if n == 0 {
		return 0, noValue, false
	}
	return n, ir.StringValue(line[i : i+n]), true
}

func extractAlpha(line string, i int) (int, ir.Value, bool) {
	n := span(line, i, isAlpha)
	if n == 0 {
		return 0, noValue, false
	}
	return n, ir.StringValue(line[i : i+n]), true
}

func extractWhitespace(line string, i int) (int, ir.Value, bool) {
	n := span(line, i, isBlank)
	if n == 0 {
		return 0, noValue, false
	}
	return n, ir.StringValue(line[i : i+n]), true
}

func extractRest(line string, i int) (int, ir.Value, bool) {
	return len(line) - i, ir.StringValue(line[i:]), true
}

// -------- numbers --------

// numberValue keeps the digits as text when they overflow int64.
func numberValue(raw string, base int) ir.Value {
	digits := raw
	if base == 16 {
		digits = raw[2:]
	}
	n, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return ir.StringValue(raw)
	}
	return ir.NumberValue(raw, n)
}

func extractNumber(line string, i int) (int, ir.Value, bool) {
	n := span(line, i, isDigit)
	if n == 0 {
		return 0, noValue, false
	}
	return n, numberValue(line[i:i+n], 10), true
}

func extractInteger(line string, i int) (int, ir.Value, bool) {
	j := i
	if j < len(line) && (line[j] == '-' || line[j] == '+') {
		j++
	}
	d := span(line, j, isDigit)
	if d == 0 {
		return 0, noValue, false
	}
	end := j + d
	return end - i, numberValue(line[i:end], 10), true
}

func extractFloat(line string, i int) (int, ir.Value, bool) {
	j := i
	if j < len(line) && (line[j] == '-' || line[j] == '+') {
		j++
	}
	d := span(line, j, isDigit)
	if d == 0 {
		return 0, noValue, false
	}
	j += d
	if j+1 < len(line) && line[j] == '.' && isDigit(line[j+1]) {
		j++
		j += span(line, j, isDigit)
	}
	raw := line[i:j]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, noValue, false
	}
	return j - i, ir.FloatValue(raw, f), true
}

func extractHexNumber(line string, i int) (int, ir.Value, bool) {
	if i+2 >= len(line) || line[i] != '0' || (line[i+1] != 'x' && line[i+1] != 'X') {
		return 0, noValue, false
	}
	d := span(line, i+2, isHex)
	if d == 0 {
		return 0, noValue, false
	}
	end := i + 2 + d
	return end - i, numberValue(line[i:end], 16), true
}

// -------- quoted-string --------

func newQuotedString(params string) (ExtractFn, error) {
	esc := byte('\\')
	switch len(params) {
	case 0:
	case 1:
		esc = params[0]
	default:
		return nil, fmt.Errorf("%w: quoted-string escape must be one character, got %q", ErrInvalidParams, params)
	}
	return func(line string, i int) (int, ir.Value, bool) {
		if i >= len(line) || line[i] != '"' {
			return 0, noValue, false
		}
		var b strings.Builder
		for j := i + 1; j < len(line); j++ {
			c := line[j]
			switch {
			case c == esc && esc != '"' && j+1 < len(line):
				j++
				b.WriteByte(line[j])
			case c == '"':
				if esc == '"' && j+1 < len(line) && line[j+1] == '"' {
					b.WriteByte('"')
					j++
					continue
				}
				return j + 1 - i, ir.StringValue(b.String()), true
			default:
				b.WriteByte(c)
			}
		}
		return 0, noValue, false
	}, nil
}

// -------- addresses --------

func octet(line string, i int) (n int, ok bool) {
	d := span(line, i, isDigit)
	if d == 0 {
		return 0, false
	}
	if d > 3 {
		d = 3
	}
	v, _ := strconv.Atoi(line[i : i+d])
	if v > 255 {
		return 0, false
	}
	return d, true
}

func extractIPv4(line string, i int) (int, ir.Value, bool) {
	j := i
	for k := 0; k < 4; k++ {
		if k > 0 {
			if j >= len(line) || line[j] != '.' {
				return 0, noValue, false
			}
			j++
		}
		n, ok := octet(line, j)
		if !ok {
			return 0, noValue, false
		}
		j += n
	}
	return j - i, ir.StringValue(line[i:j]), true
}

const maxIPv6Len = 45

func extractIPv6(line string, i int) (int, ir.Value, bool) {
	n := span(line, i, isIPv6Ch)
	if n > maxIPv6Len {
		n = maxIPv6Len
	}
	// longest prefix of the run that parses as an IPv6 address
	for ; n >= 2; n-- {
		cand := line[i : i+n]
		if strings.IndexByte(cand, ':') < 0 {
			break
		}
		if a, err := netip.ParseAddr(cand); err == nil && a.Is6() {
			return n, ir.StringValue(cand), true
		}
	}
	return 0, noValue, false
}

func extractMAC48(line string, i int) (int, ir.Value, bool) {
	const l = 17
	if i+l > len(line) {
		return 0, noValue, false
	}
	sep := line[i+2]
	if sep != ':' && sep != '-' {
		return 0, noValue, false
	}
	for k := 0; k < 6; k++ {
		p := i + k*3
		if !isHex(line[p]) || !isHex(line[p+1]) {
			return 0, noValue, false
		}
		if k < 5 && line[p+2] != sep {
			return 0, noValue, false
		}
	}
	return l, ir.StringValue(line[i : i+l]), true
}

// -------- delimited --------

func newCharTo(params string) (ExtractFn, error) {
	if params == "" {
		return nil, fmt.Errorf("%w: char-to needs a terminator character", ErrInvalidParams)
	}
	return func(line string, i int) (int, ir.Value, bool) {
		k := strings.IndexAny(line[i:], params)
		if k <= 0 {
			return 0, noValue, false
		}
		return k, ir.StringValue(line[i : i+k]), true
	}, nil
}

func newCharSep(params string) (ExtractFn, error) {
	if params == "" {
		return nil, fmt.Errorf("%w: char-sep needs a separator character", ErrInvalidParams)
	}
	return func(line string, i int) (int, ir.Value, bool) {
		k := strings.IndexAny(line[i:], params)
		if k < 0 {
			k = len(line) - i
		}
		return k, ir.StringValue(line[i : i+k]), true
	}, nil
}

func newStringTo(params string) (ExtractFn, error) {
	if params == "" {
		return nil, fmt.Errorf("%w: string-to needs a terminator string", ErrInvalidParams)
	}
	return func(line string, i int) (int, ir.Value, bool) {
		k := strings.Index(line[i:], params)
		if k <= 0 {
			return 0, noValue, false
		}
		return k, ir.StringValue(line[i : i+k]), true
	}, nil
}

// -------- dates and times --------

var months = [...]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// twoDigits parses exactly two digits at i and checks the upper bound.
func twoDigits(line string, i, max int) bool {
	if i+2 > len(line) || !isDigit(line[i]) || !isDigit(line[i+1]) {
		return false
	}
	return int(line[i]-'0')*10+int(line[i+1]-'0') <= max
}

// hhmmss matches HH:MM:SS at i and returns the index after it.
func hhmmss(line string, i int) (int, bool) {
	if !twoDigits(line, i, 23) || i+8 > len(line) || line[i+2] != ':' ||
		!twoDigits(line, i+3, 59) || line[i+5] != ':' || !twoDigits(line, i+6, 59) {
		return 0, false
	}
	return i + 8, true
}

func extractTime24(line string, i int) (int, ir.Value, bool) {
	end, ok := hhmmss(line, i)
	if !ok {
		return 0, noValue, false
	}
	return end - i, ir.StringValue(line[i:end]), true
}

// extractDateRFC3164 matches "Mmm dd hh:mm:ss"; the day may be space padded or a single digit.
func extractDateRFC3164(line string, i int) (int, ir.Value, bool) {
	if i+3 > len(line) {
		return 0, noValue, false
	}
	mon := strings.ToLower(line[i : i+3])
	found := false
	for _, m := range months {
		if m == mon {
			found = true
			break
		}
	}
	if !found {
		return 0, noValue, false
	}
	j := i + 3
	if j >= len(line) || line[j] != ' ' {
		return 0, noValue, false
	}
	j++
	if j < len(line) && line[j] == ' ' {
		j++
	}
	d := span(line, j, isDigit)
	if d == 0 || d > 2 {
		return 0, noValue, false
	}
	day, _ := strconv.Atoi(line[j : j+d])
	if day < 1 || day > 31 {
		return 0, noValue, false
	}
	j += d
	if j >= len(line) || line[j] != ' ' {
		return 0, noValue, false
	}
	end, ok := hhmmss(line, j+1)
	if !ok {
		return 0, noValue, false
	}
	return end - i, ir.StringValue(line[i:end]), true
}

// extractDateISO matches YYYY-MM-DD.
func extractDateISO(line string, i int) (int, ir.Value, bool) {
	if i+10 > len(line) || span(line, i, isDigit) < 4 || line[i+4] != '-' || line[i+7] != '-' {
		return 0, noValue, false
	}
	if !twoDigits(line, i+5, 12) || !twoDigits(line, i+8, 31) {
		return 0, noValue, false
	}
	if line[i+5:i+7] == "00" || line[i+8:i+10] == "00" {
		return 0, noValue, false
	}
	return 10, ir.StringValue(line[i : i+10]), true
}

// -------- structured --------

func extractJSON(line string, i int) (int, ir.Value, bool) {
	if i >= len(line) || (line[i] != '{' && line[i] != '[') {
		return 0, noValue, false
	}
	dec := json.NewDecoder(strings.NewReader(line[i:]))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, noValue, false
	}
	n := int(dec.InputOffset())
	return n, ir.JSONValue(line[i:i+n], v), true
}

func newRegex(params string) (ExtractFn, error) {
	if params == "" {
		return nil, fmt.Errorf("%w: regex needs a pattern", ErrInvalidParams)
	}
	re, err := regexp.Compile(`^(?:` + params + `)`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return func(line string, i int) (int, ir.Value, bool) {
		loc := re.FindStringIndex(line[i:])
		if loc == nil {
			return 0, noValue, false
		}
		return loc[1], ir.StringValue(line[i : i+loc[1]]), true
	}, nil
}
