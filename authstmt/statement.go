// Package authstmt implements the canonical authorization statement the
// decryption handshake presents to the reveal service. A statement is a
// framed, domain-separated text document binding the target ciphertext
// handles, the resource identity, the caller, an ephemeral response key,
// and a validity window. Canonicalization is strict: Parse rejects any
// bytes that do not re-render to themselves.
package authstmt

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"xdao.co/keygate/keys"
)

// Domain separates statement signatures from every other signed artifact.
// A signature over a statement can never be replayed against a different
// statement shape or resource.
const Domain = "keygate-authorization-v1"

// DefaultValidityWindow bounds how long a statement stays presentable.
const DefaultValidityWindow = 10 * 24 * time.Hour

// SectionOrder defines the canonical order of statement sections.
var SectionOrder = []string{"STATEMENT", "SCOPE", "CRYPTO"}

const (
	Preamble  = "-----BEGIN KEYGATE AUTHORIZATION-----"
	Postamble = "-----END KEYGATE AUTHORIZATION-----"
)

// Statement is a parsed authorization statement.
type Statement struct {
	Sections map[string]Section
	Raw      []byte // Canonical bytes
	Signed   []byte // Bytes covered by the signature (BEGIN..end of SCOPE, inclusive)
}

type Section struct {
	Name  string
	Pairs map[string]string // Key-value pairs, sorted lexicographically
}

// Parse parses a statement and enforces the canonical serialization rules.
// Non-canonical inputs are rejected.
func Parse(data []byte) (*Statement, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("statement must be valid UTF-8")
	}
	if len(data) > 0 && data[len(data)-1] == '\n' {
		return nil, errors.New("trailing newline not allowed")
	}
	if !bytes.HasPrefix(data, []byte(Preamble)) {
		return nil, errors.New("missing statement preamble")
	}
	if !bytes.HasSuffix(data, []byte(Postamble)) {
		return nil, errors.New("missing statement postamble")
	}
	// Enforce UTF-8, LF, no BOM, no trailing whitespace.
	if bytes.Contains(data, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}
	if !bytes.HasPrefix(data, []byte(Preamble+"\n")) && string(data) != Preamble {
		return nil, errors.New("statement preamble must be on its own line")
	}

	sections := make(map[string]Section)
	reader := bufio.NewReader(bytes.NewReader(data))
	readLine := func() (string, error) {
		l, err := reader.ReadString('\n')
		if err == io.EOF {
			return strings.TrimRight(l, "\n"), io.EOF
		}
		if err != nil {
			return "", err
		}
		return strings.TrimRight(l, "\n"), nil
	}

	first, err := readLine()
	if err != nil && err != io.EOF {
		return nil, err
	}
	if first != Preamble {
		return nil, errors.New("statement preamble must be exact")
	}

	sectionIndex := -1
	var currSection string
	var currPairs map[string]string
	var currKeyOrder []string
	seenSection := map[string]bool{}
	seenAnySection := false
	afterSeparator := false

	flushSection := func() error {
		if currSection == "" {
			return nil
		}
		sorted := append([]string(nil), currKeyOrder...)
		sort.Strings(sorted)
		if len(sorted) != len(currKeyOrder) {
			return errors.New("duplicate keys in section")
		}
		for i := range sorted {
			if sorted[i] != currKeyOrder[i] {
				return errors.New("keys not sorted lexicographically")
			}
		}
		sections[currSection] = Section{Name: currSection, Pairs: currPairs}
		currSection = ""
		currPairs = nil
		currKeyOrder = nil
		return nil
	}

	for {
		line, rerr := readLine()
		if rerr != nil && rerr != io.EOF {
			return nil, rerr
		}

		if line == Postamble {
			if afterSeparator {
				return nil, errors.New("unexpected blank line before postamble")
			}
			if err := flushSection(); err != nil {
				return nil, err
			}
			break
		}

		if isSectionHeader(line) {
			seenAnySection = true
			if currSection != "" {
				return nil, errors.New("missing blank line between sections")
			}
			if seenSection[line] {
				return nil, errors.New("duplicate section")
			}
			if err := flushSection(); err != nil {
				return nil, err
			}
			sectionIndex++
			if sectionIndex >= len(SectionOrder) || SectionOrder[sectionIndex] != line {
				return nil, errors.New("sections missing or out of order")
			}
			if sectionIndex == 0 {
				if afterSeparator {
					return nil, errors.New("blank line before first section not allowed")
				}
			} else {
				if !afterSeparator {
					return nil, errors.New("missing blank line between sections")
				}
			}
			afterSeparator = false
			seenSection[line] = true
			currSection = line
			currPairs = make(map[string]string)
			continue
		}

		if !seenAnySection {
			return nil, errors.New("unexpected content before first section")
		}

		if line == "" {
			// Exactly one blank line between sections.
			if currSection == "" {
				return nil, errors.New("blank line outside section not allowed")
			}
			if currSection == "CRYPTO" {
				return nil, errors.New("blank line after CRYPTO section not allowed")
			}
			if afterSeparator {
				return nil, errors.New("multiple blank lines between sections not allowed")
			}
			if err := flushSection(); err != nil {
				return nil, err
			}
			afterSeparator = true
			continue
		}

		if currSection == "" {
			return nil, errors.New("content outside section")
		}
		if afterSeparator {
			return nil, errors.New("expected section header after blank line")
		}
		if !strings.Contains(line, ": ") {
			return nil, errors.New("invalid key-value formatting")
		}
		kv := strings.SplitN(line, ": ", 2)
		key, val := kv[0], kv[1]
		if key == "" {
			return nil, errors.New("empty key")
		}
		if !isASCII(key) {
			return nil, errors.New("non-ASCII key")
		}
		if strings.HasPrefix(val, " ") {
			return nil, errors.New("value must not start with a space")
		}
		if _, exists := currPairs[key]; exists {
			return nil, errors.New("duplicate key in section")
		}
		currPairs[key] = val
		currKeyOrder = append(currKeyOrder, key)

		if rerr == io.EOF {
			return nil, errors.New("missing statement postamble")
		}
	}

	for _, s := range SectionOrder {
		if !seenSection[s] {
			return nil, errors.New("sections missing or out of order")
		}
	}

	// Enforce full canonical byte identity by re-rendering and comparing.
	// This makes Parse() strictly reject any non-canonical inputs.
	doc := Document{
		Statement: sections["STATEMENT"].Pairs,
		Scope:     sections["SCOPE"].Pairs,
		Crypto:    sections["CRYPTO"].Pairs,
	}
	canonical, rerr := Render(doc)
	if rerr != nil {
		return nil, rerr
	}
	if !bytes.Equal(data, canonical) {
		return nil, errors.New("non-canonical statement")
	}

	// Signed bytes: BEGIN line through end of SCOPE section, inclusive.
	// Canonical Render() emits exactly one blank line between SCOPE and CRYPTO.
	marker := []byte("\nCRYPTO\n")
	idx := bytes.Index(canonical, marker)
	if idx < 0 {
		return nil, errors.New("cannot determine signature scope")
	}
	signed := canonical[:idx+1]
	return &Statement{Sections: sections, Raw: canonical, Signed: signed}, nil
}

func (s *Statement) pair(section, key string) string {
	if sec, ok := s.Sections[section]; ok {
		return sec.Pairs[key]
	}
	return ""
}

func (s *Statement) Domain() string       { return s.pair("STATEMENT", "Domain") }
func (s *Statement) IssuedAt() string     { return s.pair("STATEMENT", "Issued-At") }
func (s *Statement) NotAfter() string     { return s.pair("STATEMENT", "Not-After") }
func (s *Statement) Resource() string     { return s.pair("SCOPE", "Resource") }
func (s *Statement) Caller() string       { return s.pair("SCOPE", "Caller") }
func (s *Statement) EphemeralKey() string { return s.pair("SCOPE", "Ephemeral-Key") }
func (s *Statement) CallerKey() string    { return s.pair("CRYPTO", "Caller-Key") }
func (s *Statement) HashAlg() string      { return s.pair("CRYPTO", "Hash-Alg") }
func (s *Statement) SignatureAlg() string { return s.pair("CRYPTO", "Signature-Alg") }
func (s *Statement) Signature() string    { return s.pair("CRYPTO", "Signature") }

// Handles returns the space-separated ciphertext handles in scope.
func (s *Statement) Handles() []string {
	raw := s.pair("SCOPE", "Handles")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, " ")
}

// CallerIdentity parses the signed Caller field.
func (s *Statement) CallerIdentity() (keys.Identity, error) {
	return keys.ParseIdentity(s.Caller())
}

func isSectionHeader(line string) bool {
	for _, s := range SectionOrder {
		if line == s {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
