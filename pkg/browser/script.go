package browser

import (
	"fmt"
	"regexp"
)

// DefaultNamespace is the namespace whose test.run entry point is invoked
// when none is configured.
const DefaultNamespace = "hasch"

var namespaceRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// ValidateNamespace accepts dotted JavaScript identifier paths such as
// "hasch" or "my.app".
func ValidateNamespace(ns string) error {
	if !namespaceRe.MatchString(ns) {
		return fmt.Errorf("%w: %q is not a dotted identifier path", ErrInvalidNamespace, ns)
	}
	return nil
}

// EntryPointScript returns the function evaluated once the page has loaded.
// It calls <ns>.test.run() and discards the result.
func EntryPointScript(ns string) (string, error) {
	if err := ValidateNamespace(ns); err != nil {
		return "", err
	}
	return fmt.Sprintf("function () { %s.test.run(); }", ns), nil
}

// AsExpression turns a function source into an immediately-invoked
// expression for engines that evaluate expressions rather than functions.
func AsExpression(fnSource string) string {
	return "(" + fnSource + ")()"
}
