package engine

import "strings"

// kwPrefix marks keyword strings produced by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites track-script source before it reaches zygomys:
//
//  1. :keyword -> "__kw_keyword", so keywords never collide with user
//     variables of the same name.
//  2. kebab-case identifiers -> underscores (select-segment ->
//     select_segment); zygomys reads a hyphen as subtraction.
//  3. ; line comments -> // comments.
//
// String literals pass through untouched.
func preprocessSource(src string) string {
	var out strings.Builder
	out.Grow(len(src) + len(src)/4)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"':
			j := skipQuoted(src, i)
			out.WriteString(src[i:j])
			i = j
		case c == '`':
			j := len(src)
			if k := strings.IndexByte(src[i+1:], '`'); k >= 0 {
				j = i + k + 2
			}
			out.WriteString(src[i:j])
			i = j
		case c == ';':
			for i < len(src) && src[i] == ';' {
				i++
			}
			end := len(src)
			if k := strings.IndexByte(src[i:], '\n'); k >= 0 {
				end = i + k
			}
			out.WriteString("//")
			out.WriteString(src[i:end])
			i = end
		case c == ':' && i+1 < len(src) && isLetter(src[i+1]):
			j := i + 1
			for j < len(src) && isKWChar(src[j]) {
				j++
			}
			out.WriteString(`"` + kwPrefix + src[i+1:j] + `"`)
			i = j
		case c == '-' && i > 0 && i+1 < len(src) && isIdentChar(src[i-1]) && isLetter(src[i+1]):
			out.WriteByte('_')
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// skipQuoted returns the index just past the double-quoted literal that
// starts at i.
func skipQuoted(src string, i int) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(src)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
