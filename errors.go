// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package formulagraph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress defined the error message on receiving an address
	// with negative or out of range coordinates.
	ErrInvalidAddress = errors.New("invalid cell address")
	// ErrSourceEmpty defined the error message on moving a cell which has no
	// vertex.
	ErrSourceEmpty = errors.New("source cell is empty")
	// ErrTargetOccupied defined the error message on moving a cell onto an
	// address which already holds a vertex.
	ErrTargetOccupied = errors.New("target cell is occupied")
	// ErrArrayInRange defined the error message on an operation which would
	// cut through an array formula.
	ErrArrayInRange = errors.New("target range contains part of an array formula")
	// ErrSheetSizeLimit defined the error message on an operation which would
	// grow a sheet beyond the configured maximum rows or columns.
	ErrSheetSizeLimit = errors.New("sheet size limit exceeded")
	// ErrSheetNameEmpty defined the error message on adding or renaming a
	// sheet with an empty name.
	ErrSheetNameEmpty = errors.New("sheet name can not be empty")
	// ErrLastSheet defined the error message on removing the only sheet.
	ErrLastSheet = errors.New("can not remove the last sheet")
	// ErrNoSuchVertex defined the error message on reading a vertex id which
	// is not allocated in the graph.
	ErrNoSuchVertex = errors.New("vertex does not exist")
	// ErrEngineClosed defined the error message on using an engine after
	// Close.
	ErrEngineClosed = errors.New("engine is closed")
	// ErrFunctionName defined the error message on registering a function
	// with an invalid name.
	ErrFunctionName = errors.New("invalid function name")
	// ErrInvalidCount defined the error message on a row or column count
	// which is not positive.
	ErrInvalidCount = errors.New("count must be positive")
	// ErrUnsupportedContent defined the error message on setting a cell to a
	// Go value of a type the engine can not store.
	ErrUnsupportedContent = errors.New("unsupported cell content type")
	// ErrNamedExpressionName defined the error message on defining a named
	// expression whose name is not an identifier or reads as a cell
	// reference or a logical.
	ErrNamedExpressionName = errors.New("invalid named expression name")
	// ErrRelativeNamedReference defined the error message on a named
	// expression holding a relative reference or one without a sheet.
	ErrRelativeNamedReference = errors.New("named expression references must be absolute and sheet qualified")
)

// ErrNoSuchSheet defined an error of sheet that does not exist.
type ErrNoSuchSheet struct {
	SheetID   int
	SheetName string
}

func (err ErrNoSuchSheet) Error() string {
	if err.SheetName != "" {
		return fmt.Sprintf("sheet %s does not exist", err.SheetName)
	}
	return fmt.Sprintf("sheet with id %d does not exist", err.SheetID)
}

// ErrSheetNameTaken defined an error of adding or renaming a sheet to a name
// which is already in use, compared case-insensitively.
type ErrSheetNameTaken struct {
	Name string
}

func (err ErrSheetNameTaken) Error() string {
	return fmt.Sprintf("sheet name %s is already taken", err.Name)
}

// ErrOption defined an error of an invalid engine option.
type ErrOption struct {
	Field  string
	Reason string
}

func (err ErrOption) Error() string {
	return fmt.Sprintf("invalid option %s: %s", err.Field, err.Reason)
}

// ErrNamedExpressionExists defined an error of adding a named expression
// under a name which is already defined, compared case-insensitively.
type ErrNamedExpressionExists struct {
	Name string
}

func (err ErrNamedExpressionExists) Error() string {
	return fmt.Sprintf("named expression %s already exists", err.Name)
}

// ErrNoSuchNamedExpression defined an error of named expression that does
// not exist.
type ErrNoSuchNamedExpression struct {
	Name string
}

func (err ErrNoSuchNamedExpression) Error() string {
	return fmt.Sprintf("named expression %s does not exist", err.Name)
}
