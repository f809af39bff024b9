package agent

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type extractState int

const (
	exPre        extractState = iota // before the top-level object
	exKey                            // expecting a key, ',' or '}'
	exKeyString                      // inside a key
	exColon                          // expecting ':'
	exValue                          // expecting a value
	exAnswer                         // inside the answer string
	exSkipString                     // inside another string value
	exSkipNested                     // inside a nested object or array value
	exSkipScalar                     // inside a number, bool or null
	exDone
)

// answerExtractor decodes the "answer" string of a streamed JSON reply as it
// arrives. Text outside the top-level object, other fields and nested values
// are ignored. A leading array (streamed tool calls) disables extraction.
type answerExtractor struct {
	state    extractState
	key      strings.Builder
	escaped  bool
	hex      []byte // pending \u digits
	high     rune   // pending high surrogate
	partial  []byte // incomplete UTF-8 sequence split across chunks
	nest     int
	inString bool
	answered bool
}

func (x *answerExtractor) Reset() {
	*x = answerExtractor{}
}

// Feed consumes chunk and returns the answer text it completes.
func (x *answerExtractor) Feed(chunk []byte) string {
	var out strings.Builder

	for _, c := range chunk {
		switch x.state {
		case exPre:
			switch c {
			case '{':
				x.state = exKey
			case '[':
				x.state = exDone
			}

		case exKey:
			switch c {
			case '"':
				x.key.Reset()
				x.escaped = false
				x.state = exKeyString
			case '}':
				x.state = exDone
			}

		case exKeyString:
			switch {
			case x.escaped:
				x.key.WriteByte(c)
				x.escaped = false
			case c == '\\':
				x.escaped = true
			case c == '"':
				x.state = exColon
			default:
				x.key.WriteByte(c)
			}

		case exColon:
			if c == ':' {
				x.state = exValue
			}

		case exValue:
			switch {
			case isSpace(c):
			case c == '"':
				x.escaped = false
				if x.key.String() == "answer" && !x.answered {
					x.state = exAnswer
				} else {
					x.state = exSkipString
				}
			case c == '{' || c == '[':
				x.nest = 1
				x.inString = false
				x.escaped = false
				x.state = exSkipNested
			default:
				x.state = exSkipScalar
			}

		case exAnswer:
			x.feedAnswer(c, &out)

		case exSkipString:
			switch {
			case x.escaped:
				x.escaped = false
			case c == '\\':
				x.escaped = true
			case c == '"':
				x.state = exKey
			}

		case exSkipNested:
			switch {
			case x.inString && x.escaped:
				x.escaped = false
			case x.inString && c == '\\':
				x.escaped = true
			case c == '"':
				x.inString = !x.inString
			case x.inString:
			case c == '{' || c == '[':
				x.nest++
			case c == '}' || c == ']':
				x.nest--
				if x.nest == 0 {
					x.state = exKey
				}
			}

		case exSkipScalar:
			switch c {
			case ',':
				x.state = exKey
			case '}':
				x.state = exDone
			}

		case exDone:
		}
	}

	return out.String()
}

func (x *answerExtractor) feedAnswer(c byte, out *strings.Builder) {
	if x.hex != nil {
		x.hex = append(x.hex, c)
		if len(x.hex) == 4 {
			n, err := strconv.ParseUint(string(x.hex), 16, 16)
			x.hex = nil
			if err == nil {
				x.writeRune(rune(n), out)
			}
		}
		return
	}

	if x.escaped {
		x.escaped = false
		switch c {
		case 'n':
			x.writeRune('\n', out)
		case 't':
			x.writeRune('\t', out)
		case 'r':
			x.writeRune('\r', out)
		case 'b':
			x.writeRune('\b', out)
		case 'f':
			x.writeRune('\f', out)
		case 'u':
			x.hex = make([]byte, 0, 4)
		default: // '"', '\\', '/'
			x.writeRune(rune(c), out)
		}
		return
	}

	switch c {
	case '\\':
		x.escaped = true
	case '"':
		x.flushHigh(out)
		x.answered = true
		x.state = exKey
	default:
		x.writeByte(c, out)
	}
}

func (x *answerExtractor) writeRune(r rune, out *strings.Builder) {
	if utf16.IsSurrogate(r) {
		if x.high != 0 {
			out.WriteRune(utf16.DecodeRune(x.high, r))
			x.high = 0
			return
		}
		x.high = r
		return
	}
	x.flushHigh(out)
	out.WriteRune(r)
}

func (x *answerExtractor) flushHigh(out *strings.Builder) {
	if x.high != 0 {
		out.WriteRune(utf8.RuneError)
		x.high = 0
	}
}

// writeByte passes raw UTF-8 through, holding back sequences split across chunks.
func (x *answerExtractor) writeByte(c byte, out *strings.Builder) {
	x.flushHigh(out)
	if x.partial == nil && c < utf8.RuneSelf {
		out.WriteByte(c)
		return
	}
	x.partial = append(x.partial, c)
	if utf8.FullRune(x.partial) {
		out.Write(x.partial)
		x.partial = nil
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
