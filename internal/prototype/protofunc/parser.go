package protofunc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// objRefPattern matches either an already-wrapped $obj(#N) call or a bare #N
// token. Matching the wrapped form first stands in for a negative lookbehind:
// wrapped references are left alone so rewriting stays idempotent.
var objRefPattern = regexp.MustCompile(`\$` + ObjFunc + `\(#[0-9]+|#[0-9]+`)

// RewriteObjRefs rewrites every bare #N object reference in s into an
// explicit $obj(#N) call.
func RewriteObjRefs(s string) string {
	return objRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "$") {
			return match
		}
		return "$" + ObjFunc + "(" + match + ")"
	})
}

// Parse scans value for protofunction calls and returns the structurally
// decoded replacement. Non-string values pass through unchanged. Evaluation
// failures and literal-decode misses keep the raw text; use ParseForTest to
// see the diagnostics.
func (r *Registry) Parse(call CallContext, value any) any {
	result, _ := r.parse(call, value)
	return result
}

// ParseForTest parses value and returns the result together with the first
// diagnostic recorded during the run ("" when the parse was clean).
func (r *Registry) ParseForTest(call CallContext, value any) (any, string) {
	call.Testing = true
	return r.parse(call, value)
}

func (r *Registry) parse(call CallContext, value any) (any, string) {
	s, ok := value.(string)
	if !ok {
		return value, ""
	}
	run := &parseRun{registry: r, call: call}
	result := run.evalString(RewriteObjRefs(s))
	if text, isString := result.(string); isString {
		result = run.decodeLiteral(text)
	}
	return result, run.diagnostic()
}

type parseRun struct {
	registry    *Registry
	call        CallContext
	diagnostics []string
}

func (run *parseRun) recordf(format string, args ...any) {
	run.diagnostics = append(run.diagnostics, fmt.Sprintf(format, args...))
}

func (run *parseRun) diagnostic() string {
	if len(run.diagnostics) == 0 {
		return ""
	}
	return strings.Join(run.diagnostics, "; ")
}

// evalString evaluates every known $name(...) call in s left-to-right,
// nested calls first. The result is the single native value when the whole
// string was one call, otherwise the string with call results interpolated.
func (run *parseRun) evalString(s string) any {
	var parts []any
	var sb strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) && s[i+1] == '$' {
			sb.WriteByte('$')
			i += 2
			continue
		}
		if c == '$' {
			name, argsStart := scanIdent(s, i+1)
			if name != "" && argsStart < len(s) && s[argsStart] == '(' {
				if end, balanced := matchParen(s, argsStart); balanced {
					if value, handled := run.evalCall(name, s[argsStart+1:end]); handled {
						if sb.Len() > 0 {
							parts = append(parts, sb.String())
							sb.Reset()
						}
						parts = append(parts, value)
					} else {
						// unknown function or failed call: keep verbatim
						sb.WriteString(s[i : end+1])
					}
					i = end + 1
					continue
				}
			}
		}
		sb.WriteByte(c)
		i++
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	var out strings.Builder
	for _, part := range parts {
		out.WriteString(stringify(part))
	}
	return out.String()
}

// evalCall runs one protofunction. The second return is false when the name
// is unregistered or the call failed, in which case the caller keeps the
// original text.
func (run *parseRun) evalCall(name, rawArgs string) (any, bool) {
	fn, known := run.registry.Lookup(name)
	if !known {
		return nil, false
	}
	var args []string
	for _, raw := range splitArgs(rawArgs) {
		args = append(args, stringify(run.evalString(strings.TrimSpace(raw))))
	}
	value, err := fn(run.call, args...)
	if err != nil {
		run.recordf("$%s: %v", name, err)
		return nil, false
	}
	return value, true
}

// decodeLiteral interprets a string as the native data it denotes. Strings
// that do not look like literals, and strings that fail to decode, are kept
// as-is; decode failures are recorded as diagnostics either way.
func (run *parseRun) decodeLiteral(s string) any {
	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "None", "null", "~":
		return nil
	case "True", "true":
		return true
	case "False", "false":
		return false
	}
	if !looksLikeLiteral(trimmed) {
		return s
	}
	var decoded any
	if err := yaml.Unmarshal([]byte(trimmed), &decoded); err != nil {
		run.recordf("literal decode of %q: %v", trimmed, err)
		return s
	}
	if unquoted, stillString := decoded.(string); stillString {
		// quoted text decodes to its contents; anything else stays raw
		if trimmed[0] == '"' || trimmed[0] == '\'' {
			return unquoted
		}
		return s
	}
	return normalizeNumbers(decoded)
}

func looksLikeLiteral(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '[', '{', '"', '\'':
		return true
	case '-', '+', '.':
		return len(s) > 1 && isDigit(s[1])
	default:
		return isDigit(s[0])
	}
}

// normalizeNumbers folds the decoder's sized integer types into plain int so
// downstream comparisons and spawn values see one integer shape.
func normalizeNumbers(value any) any {
	switch v := value.(type) {
	case uint64:
		return int(v)
	case int64:
		return int(v)
	case []any:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeNumbers(item)
		}
		return v
	case map[any]any:
		out := make(map[any]any, len(v))
		for key, item := range v {
			out[normalizeNumbers(key)] = normalizeNumbers(item)
		}
		return out
	default:
		return v
	}
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

// scanIdent reads a function identifier starting at position start and
// returns it with the position just past it.
func scanIdent(s string, start int) (string, int) {
	i := start
	for i < len(s) {
		c := s[i]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > start && isDigit(c) {
			i++
			continue
		}
		break
	}
	return s[start:i], i
}

// matchParen finds the closing parenthesis matching the opener at open,
// honoring nesting and backslash escapes.
func matchParen(s string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// splitArgs splits a call's argument text on top-level commas.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, s[start:])
	return args
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
