// Package template resolves {{variable}} placeholders in step fields against
// the run's execution context.
package template

import (
	"regexp"
	"strings"

	"github.com/voxhq/automata/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Resolve substitutes every {{name}} placeholder with the context's value for
// name in a single left-to-right pass. Undefined names degrade to the empty
// string, matching the editor's "no previous output" fallback, and substituted
// values are never re-scanned for further placeholders.
func Resolve(input string, executionCtx *models.ExecutionContext) string {
	if executionCtx == nil || !strings.Contains(input, "{{") {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		value, _ := executionCtx.Get(name)

		return value
	})
}

// ResolveArgs resolves every value of a templated argument map.
func ResolveArgs(args map[string]string, executionCtx *models.ExecutionContext) map[string]string {
	if args == nil {
		return nil
	}

	resolved := make(map[string]string, len(args))
	for key, value := range args {
		resolved[key] = Resolve(value, executionCtx)
	}

	return resolved
}

// HasPlaceholders reports whether input contains anything to resolve.
func HasPlaceholders(input string) bool {
	return placeholderPattern.MatchString(input)
}
