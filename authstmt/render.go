package authstmt

import (
	"errors"
	"sort"
	"strings"
)

// Document is the in-memory representation for producing canonical
// statement bytes. Rendered bytes are always canonical (section order, key
// order, spacing, and blank lines).
type Document struct {
	Statement map[string]string
	Scope     map[string]string
	Crypto    map[string]string
}

// Render produces canonical statement bytes from a Document.
func Render(doc Document) ([]byte, error) {
	sections := []struct {
		name  string
		pairs map[string]string
	}{
		{name: "STATEMENT", pairs: doc.Statement},
		{name: "SCOPE", pairs: doc.Scope},
		{name: "CRYPTO", pairs: doc.Crypto},
	}

	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	for i, sec := range sections {
		sb.WriteString(sec.name)
		sb.WriteString("\n")

		keys := make([]string, 0, len(sec.pairs))
		for k := range sec.pairs {
			if k == "" {
				return nil, errors.New("empty key")
			}
			if !isASCII(k) {
				return nil, errors.New("non-ASCII key")
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := sec.pairs[k]
			if v == "" {
				return nil, errors.New("empty value")
			}
			if strings.HasPrefix(v, " ") {
				return nil, errors.New("value must not start with a space")
			}
			if strings.Contains(v, "\n") || strings.Contains(v, "\r") {
				return nil, errors.New("value must not contain newlines")
			}
			if strings.HasSuffix(v, " ") || strings.HasSuffix(v, "\t") {
				return nil, errors.New("trailing whitespace forbidden")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}

		if i != len(sections)-1 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString(Postamble)
	return []byte(sb.String()), nil
}
