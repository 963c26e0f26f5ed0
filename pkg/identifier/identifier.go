// Package identifier produces human readable item and QR identifiers and
// recovers them from scanned label payloads.
package identifier

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
)

const (
	tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	tokenLength   = 4
	suffixWidth   = 4
)

var rawPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Generator builds identifiers of the form PREFIX-TOKEN-NNNN. The suffix is
// zero padded to four digits and grows past 9999 rather than wrapping. Uniqueness is
// best effort; the store's unique constraint is the final arbiter.
type Generator struct {
	defaultPrefix string
	seq           atomic.Uint64
	token         func() string
}

// NewGenerator returns a generator falling back to defaultPrefix when callers pass none.
func NewGenerator(defaultPrefix string) *Generator {
	prefix := normalisePrefix(defaultPrefix)
	if prefix == "" {
		prefix = "ITEM"
	}
	return &Generator{defaultPrefix: prefix, token: randomToken}
}

// Generate returns a single identifier.
func (g *Generator) Generate(prefix string) string {
	n := g.seq.Add(1)
	return format(g.prefix(prefix), g.token(), n)
}

// Batch returns n identifiers sharing one prefix and token with suffixes 1..n.
func (g *Generator) Batch(prefix string, n int) []string {
	if n <= 0 {
		return nil
	}
	p := g.prefix(prefix)
	token := g.token()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = format(p, token, uint64(i+1))
	}
	return ids
}

func (g *Generator) prefix(prefix string) string {
	if p := normalisePrefix(prefix); p != "" {
		return p
	}
	return g.defaultPrefix
}

func format(prefix, token string, n uint64) string {
	return fmt.Sprintf("%s-%s-%0*d", prefix, token, suffixWidth, n)
}

func normalisePrefix(prefix string) string {
	return strings.Trim(strings.ToUpper(strings.TrimSpace(prefix)), "-")
}

func randomToken() string {
	var b strings.Builder
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < tokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteByte(tokenAlphabet[i])
			continue
		}
		b.WriteByte(tokenAlphabet[n.Int64()])
	}
	return b.String()
}

// Extract recovers an identifier from a scanned payload. It tries an "id"
// URL query parameter, then a JSON "id"/"itemId" field, then the raw string.
func Extract(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", false
	}
	if id, ok := fromURL(payload); ok {
		return id, true
	}
	if id, ok := fromJSON(payload); ok {
		return id, true
	}
	if rawPattern.MatchString(payload) {
		return payload, true
	}
	return "", false
}

func fromURL(payload string) (string, bool) {
	u, err := url.Parse(payload)
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(u.Query().Get("id"))
	return id, id != ""
}

func fromJSON(payload string) (string, bool) {
	if !strings.HasPrefix(payload, "{") {
		return "", false
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return "", false
	}
	for _, key := range []string{"id", "itemId"} {
		switch v := doc[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case float64:
			return fmt.Sprintf("%.0f", v), true
		}
	}
	return "", false
}

// IsValid is a deliberately weak check: any non-blank code passes.
func IsValid(code string) bool {
	return strings.TrimSpace(code) != ""
}
