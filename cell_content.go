package formulagraph

import (
	"fmt"
	"math"
	"strings"
)

type contentKind uint8

const (
	contentEmpty contentKind = iota
	contentValue
	contentFormula
)

// cellContent is raw cell input classified as empty, a literal or a
// formula.
type cellContent struct {
	kind  contentKind
	raw   string
	value Value
}

// parseCellContent classifies raw input. Strings starting with "=" are
// formulas; other strings are tried as a number, a logical and an error
// literal before falling back to text. A leading apostrophe forces text.
func parseCellContent(raw any) (cellContent, error) {
	switch x := raw.(type) {
	case nil:
		return cellContent{}, nil
	case string:
		return parseRawString(x), nil
	case Value:
		if x.IsEmpty() {
			return cellContent{}, nil
		}
		if x.IsPending() {
			return cellContent{}, fmt.Errorf("%w: pending value", ErrUnsupportedContent)
		}
		return cellContent{kind: contentValue, raw: x.Text(), value: x}, nil
	case bool:
		return literal(BoolValue(x)), nil
	case float64:
		return numberContent(x), nil
	case float32:
		return numberContent(float64(x)), nil
	case int:
		return numberContent(float64(x)), nil
	case int8:
		return numberContent(float64(x)), nil
	case int16:
		return numberContent(float64(x)), nil
	case int32:
		return numberContent(float64(x)), nil
	case int64:
		return numberContent(float64(x)), nil
	case uint:
		return numberContent(float64(x)), nil
	case uint8:
		return numberContent(float64(x)), nil
	case uint16:
		return numberContent(float64(x)), nil
	case uint32:
		return numberContent(float64(x)), nil
	case uint64:
		return numberContent(float64(x)), nil
	}
	return cellContent{}, fmt.Errorf("%w: %T", ErrUnsupportedContent, raw)
}

func literal(v Value) cellContent {
	return cellContent{kind: contentValue, raw: v.Text(), value: v}
}

func numberContent(n float64) cellContent {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return literal(CellError(ErrorNum, "number is not finite"))
	}
	return literal(NumberValue(n))
}

func parseRawString(s string) cellContent {
	trimmed := strings.TrimSpace(s)
	switch {
	case trimmed == "":
		return cellContent{}
	case strings.HasPrefix(s, "="):
		return cellContent{kind: contentFormula, raw: s}
	case strings.HasPrefix(s, "'"):
		return cellContent{kind: contentValue, raw: s, value: StringValue(s[1:])}
	}
	if n, ok := parseNumber(trimmed); ok {
		return cellContent{kind: contentValue, raw: s, value: NumberValue(n)}
	}
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return cellContent{kind: contentValue, raw: s, value: BoolValue(true)}
	case "FALSE":
		return cellContent{kind: contentValue, raw: s, value: BoolValue(false)}
	}
	if t, ok := parseErrorLiteral(trimmed); ok {
		return cellContent{kind: contentValue, raw: s, value: CellError(t)}
	}
	return cellContent{kind: contentValue, raw: s, value: StringValue(s)}
}
