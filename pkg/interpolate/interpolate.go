package interpolate

import (
	"fmt"
	"regexp"

	"go-fundadmin/pkg/condition"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_.]+)\}`)

// Config substitutes {path} tokens in string-valued entries of an action
// config against the event payload. Dot-paths resolve the same way condition
// fields do. Unresolved tokens are left verbatim; non-string values pass
// through untouched.
func Config(config map[string]interface{}, data map[string]interface{}) map[string]interface{} {
	if config == nil {
		return nil
	}
	out := make(map[string]interface{}, len(config))
	for key, value := range config {
		if s, ok := value.(string); ok {
			out[key] = String(s, data)
		} else {
			out[key] = value
		}
	}
	return out
}

// String replaces every {path} token in template with the resolved value.
func String(template string, data map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		path := token[1 : len(token)-1]
		val, ok := condition.Resolve(data, path)
		if !ok {
			return token
		}
		return fmt.Sprintf("%v", val)
	})
}
