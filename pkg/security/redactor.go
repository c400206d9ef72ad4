package security

import (
	"os"
	"sort"
	"strings"
)

const mask = "********"

type Redactor struct {
	Secrets []string
}

// LookupFunc resolves a secret name to its value, like os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// NewRedactor collects the values of the named secrets. Names that do not
// resolve, or resolve to an empty string, are skipped.
func NewRedactor(names []string, lookup LookupFunc) *Redactor {
	var secretValues []string
	for _, name := range names {
		if val, ok := lookup(name); ok && val != "" {
			secretValues = append(secretValues, val)
		}
	}
	return &Redactor{
		Secrets: secretValues,
	}
}

// NewEnvRedactor resolves secret names from the process environment.
func NewEnvRedactor(names []string) *Redactor {
	return NewRedactor(names, os.LookupEnv)
}

func (r *Redactor) Redact(s string) string {
	if r == nil || len(r.Secrets) == 0 {
		return s
	}

	// Longer secrets first so a secret containing another is masked whole.
	secrets := make([]string, len(r.Secrets))
	copy(secrets, r.Secrets)
	sort.Slice(secrets, func(i, j int) bool {
		return len(secrets[i]) > len(secrets[j])
	})

	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, mask)
	}
	return s
}
