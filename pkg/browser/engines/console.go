package engines

import (
	"encoding/json"
	"strings"
)

// renderConsoleArg prints one console argument the way a browser console
// does: strings verbatim, primitives as their JSON text, special numbers by
// name, and objects by their description.
func renderConsoleArg(typ, subtype string, raw []byte, unserializable, description string) string {
	switch {
	case typ == "undefined":
		return "undefined"
	case subtype == "null":
		return "null"
	case unserializable != "":
		return unserializable
	case len(raw) > 0:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	case description != "":
		return description
	default:
		return typ
	}
}

func joinConsoleArgs(parts []string) string {
	return strings.Join(parts, " ")
}

// splitFlag turns "--name=value", "name=value" or "--name" into its parts.
func splitFlag(raw string) (name, value string, hasValue bool) {
	return strings.Cut(strings.TrimLeft(raw, "-"), "=")
}
