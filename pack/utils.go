package pack

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

func startsWith(s string, prefixs ...string) bool {
	for _, prefix := range prefixs {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func endsWith(s string, suffixs ...string) bool {
	for _, suffix := range suffixs {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func existsFile(filename string) bool {
	fi, err := os.Lstat(filename)
	return err == nil && !fi.IsDir()
}

func existsDir(dirname string) bool {
	fi, err := os.Lstat(dirname)
	return err == nil && fi.IsDir()
}

func ensureDir(dir string) (err error) {
	_, err = os.Stat(dir)
	if err != nil && os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0755)
	}
	return
}

// TrimQuotes removes one matching pair of surrounding double quotes, single
// quotes, or parentheses, or a leading `=`, from the directive argument.
func TrimQuotes(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		switch {
		case v[0] == '"' && v[len(v)-1] == '"',
			v[0] == '\'' && v[len(v)-1] == '\'':
			return v[1 : len(v)-1]
		case v[0] == '(' && v[len(v)-1] == ')':
			return strings.TrimSpace(v[1 : len(v)-1])
		}
	}
	if len(v) > 0 && v[0] == '=' {
		return strings.TrimSpace(v[1:])
	}
	return v
}

// DecodeString decodes a JavaScript string literal. The surrounding quotes
// are optional.
func DecodeString(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = v[1 : len(v)-1]
	}
	if !strings.ContainsRune(v, '\\') {
		return v
	}
	sb := strings.Builder{}
	sb.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\\' || i == len(v)-1 {
			sb.WriteByte(c)
			continue
		}
		i++
		switch v[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'x':
			if i+2 < len(v) {
				if n, err := strconv.ParseUint(v[i+1:i+3], 16, 8); err == nil {
					sb.WriteByte(byte(n))
					i += 2
					continue
				}
			}
			sb.WriteByte('x')
		case 'u':
			if i+4 < len(v) {
				if n, err := strconv.ParseUint(v[i+1:i+5], 16, 32); err == nil {
					sb.WriteRune(rune(n))
					i += 4
					continue
				}
			}
			sb.WriteByte('u')
		default:
			sb.WriteByte(v[i])
		}
	}
	return sb.String()
}

// EncodeString encodes the string as a JavaScript string literal using the
// given quote char (`"` or `'`).
func EncodeString(v string, quote byte) string {
	sb := strings.Builder{}
	sb.Grow(len(v) + 2)
	sb.WriteByte(quote)
	for i := 0; i < len(v); i++ {
		switch c := v[i]; c {
		case quote:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}

// decodeAttr decodes an HTML attribute value, dropping the surrounding
// quotes and resolving character entities.
func decodeAttr(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = v[1 : len(v)-1]
	}
	if !strings.ContainsRune(v, '&') {
		return v
	}
	return html.UnescapeString(v)
}

// encodeAttr encodes an HTML attribute value with the given quote char.
func encodeAttr(v string, quote byte) string {
	escaped := html.EscapeString(v)
	if quote == 0 {
		return escaped
	}
	return string(quote) + escaped + string(quote)
}
