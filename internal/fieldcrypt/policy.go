package fieldcrypt

import (
	"fmt"

	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/model"
)

// Policy applies the cipher to the sensitive fields of each record kind.
type Policy struct {
	cipher    *Cipher
	sensitive map[kind.Kind][]string
}

func NewPolicy(c *Cipher) *Policy {
	p := &Policy{cipher: c, sensitive: make(map[kind.Kind][]string)}
	for _, k := range kind.All() {
		d, _ := kind.Describe(k)
		p.sensitive[k] = d.SensitiveFields()
	}
	return p
}

// SensitiveFields returns the fields of k stored encrypted.
func (p *Policy) SensitiveFields(k kind.Kind) []string {
	return p.sensitive[k]
}

// EncryptRecord returns a copy of rec with its sensitive fields encrypted.
// Unknown kinds and nil records are returned as given.
func (p *Policy) EncryptRecord(k kind.Kind, rec model.Fields) (model.Fields, error) {
	fields, ok := p.sensitive[k]
	if !ok || rec == nil {
		return rec, nil
	}
	out := rec.Clone()
	for _, name := range fields {
		s, ok := out[name].(string)
		if !ok || s == "" {
			continue
		}
		enc, err := p.cipher.Encrypt(s)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s.%s: %w", k, name, err)
		}
		out[name] = enc
	}
	return out, nil
}

// DecryptRecord returns a copy of rec with its sensitive fields decrypted.
func (p *Policy) DecryptRecord(k kind.Kind, rec model.Fields) model.Fields {
	fields, ok := p.sensitive[k]
	if !ok || rec == nil {
		return rec
	}
	out := rec.Clone()
	for _, name := range fields {
		if s, ok := out[name].(string); ok && s != "" {
			out[name] = p.cipher.Decrypt(s)
		}
	}
	return out
}
