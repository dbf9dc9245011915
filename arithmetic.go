package formulagraph

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var thousandsPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// parseNumber reads text the way a cell does: plain numbers, numbers with
// thousands separators and percentages.
func parseNumber(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s, scale = strings.TrimSpace(s[:len(s)-1]), 0.01
	}
	if strings.Contains(s, ",") {
		if !thousandsPattern.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	// reject Inf, NaN and hex floats which ParseFloat would accept
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return 0, false
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n * scale, true
}

// arithmetic holds the comparison and matching rules of one engine.
type arithmetic struct {
	eps           float64
	caseSensitive bool
	wildcards     bool
	regex         bool
	fold          cases.Caser
}

func newArithmetic(opts *Options) *arithmetic {
	return &arithmetic{
		eps:           opts.PrecisionEpsilon,
		caseSensitive: opts.CaseSensitive,
		wildcards:     opts.useWildcards(),
		regex:         opts.UseRegularExpressions,
		fold:          cases.Fold(),
	}
}

// normalize folds text when comparisons ignore case.
func (a *arithmetic) normalize(s string) string {
	if a.caseSensitive {
		return s
	}
	return a.fold.String(s)
}

// floatCmp compares two numbers treating relative differences below eps as
// equality.
func (a *arithmetic) floatCmp(left, right float64) int {
	mod := 1 + a.eps
	switch {
	case right >= 0 && left*mod >= right && left <= right*mod:
		return 0
	case right <= 0 && left*mod <= right && left >= right*mod:
		return 0
	case left > right:
		return 1
	}
	return -1
}

// addWithEpsilon adds two numbers and snaps results lost in rounding noise
// to zero.
func (a *arithmetic) addWithEpsilon(left, right float64) float64 {
	ret := left + right
	if math.Abs(ret) < a.eps*math.Abs(left) {
		return 0
	}
	return ret
}

// typeRank orders values of different kinds: numbers, then text, then
// logicals.
func typeRank(v Value) int {
	switch v.Type {
	case ValueNumber:
		return 1
	case ValueString:
		return 2
	case ValueBoolean:
		return 3
	}
	return 0
}

func emptyAs(other Value) Value {
	switch other.Type {
	case ValueNumber:
		return NumberValue(0)
	case ValueString:
		return StringValue("")
	case ValueBoolean:
		return BoolValue(false)
	}
	return EmptyValue()
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// compare orders two scalar values the way comparison operators do. Empty
// takes the type of the other side.
func (a *arithmetic) compare(left, right Value) int {
	if left.IsEmpty() {
		left = emptyAs(right)
	} else if right.IsEmpty() {
		right = emptyAs(left)
	}
	switch {
	case left.Type == ValueNumber && right.Type == ValueNumber:
		return a.floatCmp(left.Number, right.Number)
	case left.Type == ValueString && right.Type == ValueString:
		return strings.Compare(a.normalize(left.String), a.normalize(right.String))
	case left.Type == ValueBoolean && right.Type == ValueBoolean:
		return a.floatCmp(boolNumber(left.Boolean), boolNumber(right.Boolean))
	}
	lr, rr := typeRank(left), typeRank(right)
	switch {
	case lr < rr:
		return -1
	case lr > rr:
		return 1
	}
	return 0
}

// buildMatcher compiles a string pattern into a whole-cell matcher honoring
// the wildcard, regular expression and case settings.
func (a *arithmetic) buildMatcher(pattern string) *regexp.Regexp {
	var expr string
	switch {
	case a.regex && isValidRegexp(pattern):
		expr = pattern
	case a.wildcards:
		expr = wildcardToRegexp(pattern)
	default:
		expr = regexp.QuoteMeta(pattern)
	}
	prefix := ""
	if !a.caseSensitive {
		prefix = "(?i)"
	}
	return regexp.MustCompile(prefix + "^(?:" + expr + ")$")
}

func isValidRegexp(pattern string) bool {
	_, err := regexp.Compile(pattern)
	return err == nil
}

// wildcardToRegexp translates * and ? with ~ as the escape character.
func wildcardToRegexp(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '~' && i+1 < len(pattern) && (pattern[i+1] == '*' || pattern[i+1] == '?' || pattern[i+1] == '~'):
			i++
			b.WriteString(regexp.QuoteMeta(string(pattern[i])))
		case c == '*':
			b.WriteString(".*")
		case c == '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}

// toNumber coerces a scalar to a number: empty is 0, logicals are 0 and 1
// and numeric text is parsed.
func toNumber(v Value) (float64, Value, bool) {
	switch v.Type {
	case ValueNumber:
		return v.Number, Value{}, true
	case ValueEmpty:
		return 0, Value{}, true
	case ValueBoolean:
		return boolNumber(v.Boolean), Value{}, true
	case ValueString:
		if n, ok := parseNumber(v.String); ok {
			return n, Value{}, true
		}
		return 0, CellError(ErrorValue, "text is not a number"), false
	case ValueError:
		return 0, v, false
	}
	return 0, v, false
}

// toText coerces a scalar to text.
func toText(v Value) (string, Value, bool) {
	if v.IsError() || v.IsPending() {
		return "", v, false
	}
	return v.Text(), Value{}, true
}

// toBool coerces a scalar to a logical.
func toBool(v Value) (bool, Value, bool) {
	switch v.Type {
	case ValueBoolean:
		return v.Boolean, Value{}, true
	case ValueNumber:
		return v.Number != 0, Value{}, true
	case ValueEmpty:
		return false, Value{}, true
	case ValueString:
		switch strings.ToUpper(strings.TrimSpace(v.String)) {
		case "TRUE":
			return true, Value{}, true
		case "FALSE":
			return false, Value{}, true
		}
		return false, CellError(ErrorValue, "text is not a logical value"), false
	}
	return false, v, false
}
