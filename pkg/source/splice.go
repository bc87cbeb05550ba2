package source

import "bytes"

// trigraphs maps the third character of a ??x sequence to its replacement.
var trigraphs = [256]byte{
	'=':  '#',
	'(':  '[',
	'/':  '\\',
	')':  ']',
	'\'': '^',
	'<':  '{',
	'!':  '|',
	'>':  '}',
	'-':  '~',
}

// replaceTrigraphs rewrites every ??x trigraph in src. It returns src itself
// when there is nothing to replace.
func replaceTrigraphs(src []byte) []byte {
	if !bytes.Contains(src, []byte("??")) {
		return src
	}
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		if i+2 < len(src) && src[i] == '?' && src[i+1] == '?' && trigraphs[src[i+2]] != 0 {
			out = append(out, trigraphs[src[i+2]])
			i += 2
			continue
		}
		out = append(out, src[i])
	}
	return out
}

// splitLines splits src into physical lines and joins continuation lines
// into logical lines.
func splitLines(src []byte, lenient bool) []LogicalLine {
	var (
		lines   []LogicalLine
		pending *LogicalLine
		phys    int
	)
	for len(src) > 0 {
		phys++

		var raw []byte
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			raw, src = src[:i], src[i+1:]
		} else {
			raw, src = src, nil
		}
		raw = bytes.TrimSuffix(raw, []byte{'\r'})

		body, cont := continuation(raw, lenient)
		if pending == nil {
			pending = &LogicalLine{Physical: phys}
		} else {
			pending.Spliced = true
			pending.Splices = append(pending.Splices, len(pending.Text))
		}
		pending.Text = append(pending.Text, body...)

		if cont && len(src) > 0 {
			continue
		}
		pending.Unterminated = cont
		pending.Number = len(lines) + 1
		pending.Directive = isDirective(pending.Text)
		lines = append(lines, *pending)
		pending = nil
	}
	return lines
}

// continuation strips a trailing continuation backslash from a physical
// line and reports whether one was there.
func continuation(raw []byte, lenient bool) ([]byte, bool) {
	end := len(raw)
	if lenient {
		end = len(bytes.TrimRight(raw, " \t"))
	}
	if end > 0 && raw[end-1] == '\\' {
		return raw[:end-1], true
	}
	return raw, false
}

func isDirective(text []byte) bool {
	for _, c := range text {
		switch c {
		case ' ', '\t', '\v', '\f', '\r':
			continue
		case '#':
			return true
		}
		return false
	}
	return false
}
