// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package formulagraph

import (
	"math"
	"strconv"
	"strings"
)

// ErrorType is the kind of a formula error value.
type ErrorType uint8

// Formula error kinds.
const (
	ErrorNone ErrorType = iota
	ErrorDivByZero
	ErrorNA
	ErrorName
	ErrorNum
	ErrorRef
	ErrorValue
	ErrorNull
	ErrorCycle
	ErrorTimeout
	ErrorError
)

var errorTypeLiterals = map[ErrorType]string{
	ErrorDivByZero: "#DIV/0!",
	ErrorNA:        "#N/A",
	ErrorName:      "#NAME?",
	ErrorNum:       "#NUM!",
	ErrorRef:       "#REF!",
	ErrorValue:     "#VALUE!",
	ErrorNull:      "#NULL!",
	ErrorCycle:     "#CYCLE!",
	ErrorTimeout:   "#TIMEOUT!",
	ErrorError:     "#ERROR!",
}

var errorLiteralTypes = func() map[string]ErrorType {
	m := make(map[string]ErrorType, len(errorTypeLiterals))
	for t, s := range errorTypeLiterals {
		m[s] = t
	}
	return m
}()

// String returns the spreadsheet literal of the error kind, e.g. "#REF!".
func (t ErrorType) String() string {
	if s, ok := errorTypeLiterals[t]; ok {
		return s
	}
	return ""
}

// parseErrorLiteral maps an error literal such as "#N/A" to its kind.
func parseErrorLiteral(text string) (ErrorType, bool) {
	t, ok := errorLiteralTypes[strings.ToUpper(strings.TrimSpace(text))]
	return t, ok
}

// ValueType is the discriminator of Value.
type ValueType uint8

// Value kinds.
const (
	ValueEmpty ValueType = iota
	ValueNumber
	ValueString
	ValueBoolean
	ValueError
	ValuePending
)

// Value is a scalar cell value. The zero value is the empty value. Values are
// comparable with ==, which makes them usable as map keys once the error
// message is dropped.
type Value struct {
	Type    ValueType
	Number  float64
	String  string
	Boolean bool
	Error   ErrorType
	Message string
}

// EmptyValue returns the value of a cell without content.
func EmptyValue() Value { return Value{} }

// NumberValue wraps a number, normalizing negative zero.
func NumberValue(n float64) Value {
	if n == 0 {
		n = 0
	}
	return Value{Type: ValueNumber, Number: n}
}

// StringValue wraps a text value.
func StringValue(s string) Value { return Value{Type: ValueString, String: s} }

// BoolValue wraps a logical value.
func BoolValue(b bool) Value { return Value{Type: ValueBoolean, Boolean: b} }

// CellError builds a formula error value with an optional message.
func CellError(t ErrorType, msg ...string) Value {
	v := Value{Type: ValueError, Error: t}
	if len(msg) > 0 {
		v.Message = msg[0]
	}
	return v
}

// PendingValue is the placeholder held by a formula waiting for an async
// function.
func PendingValue() Value { return Value{Type: ValuePending} }

// IsError reports whether the value is a formula error.
func (v Value) IsError() bool { return v.Type == ValueError }

// IsEmpty reports whether the value is empty.
func (v Value) IsEmpty() bool { return v.Type == ValueEmpty }

// IsPending reports whether the value waits for an async resolution.
func (v Value) IsPending() bool { return v.Type == ValuePending }

// Text renders the value the way a cell displays it.
func (v Value) Text() string {
	switch v.Type {
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueString:
		return v.String
	case ValueBoolean:
		if v.Boolean {
			return "TRUE"
		}
		return "FALSE"
	case ValueError:
		return v.Error.String()
	case ValuePending:
		return "#PENDING"
	}
	return ""
}

// key strips the fields which do not take part in identity.
func (v Value) key() Value {
	v.Message = ""
	return v
}

// sameValue reports whether two values are identical for change detection.
func sameValue(a, b Value) bool {
	if a.Type == ValueNumber && b.Type == ValueNumber {
		return a.Number == b.Number || (math.IsNaN(a.Number) && math.IsNaN(b.Number))
	}
	return a == b
}

// ArrayValue is a rectangular block of values in row-major order.
type ArrayValue struct {
	Width, Height int
	Data          [][]Value
}

func newArrayValue(width, height int) *ArrayValue {
	data := make([][]Value, height)
	for r := range data {
		data[r] = make([]Value, width)
	}
	return &ArrayValue{Width: width, Height: height, Data: data}
}

// At returns the value at the given offset, or empty when out of bounds.
func (a *ArrayValue) At(col, row int) Value {
	if a == nil || row < 0 || row >= a.Height || col < 0 || col >= a.Width {
		return EmptyValue()
	}
	return a.Data[row][col]
}
