// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package formulagraph

import (
	"fmt"
	"log"
	"time"

	"github.com/tiendc/go-deepcopy"
)

// Default option values.
const (
	DefaultVLookupThreshold     = 20
	DefaultIterationLimit       = 100
	DefaultConvergenceTolerance = 0.001
	DefaultAsyncFunctionTimeout = 5 * time.Second
	DefaultPrecisionEpsilon     = 1e-13
	DefaultMaxRows              = 40000
	DefaultMaxColumns           = 18278
	DefaultTokenCacheSize       = 1024
	DefaultDenseThreshold       = 0.8
	DefaultMatrixThreshold      = 100
)

// Options define the options for building an engine. Zero values of numeric
// fields select the defaults.
//
// AddressMappingPolicy chooses dense or sparse storage per sheet. The default
// is DenseSparseChooseBasedOnThreshold with a threshold of 0.8.
//
// UseColumnIndex answers lookups from a value index kept per column instead
// of searching the range on every call.
//
// VLookupThreshold is the range height below which sorted lookups scan
// linearly.
//
// AllowCircularReferences iterates cycles up to IterationLimit times until
// the largest change is within ConvergenceTolerance. Without it every cell
// of a cycle holds #CYCLE!.
//
// UseArrayArithmetic makes operators work elementwise on ranges everywhere,
// not only inside array functions.
//
// AsyncFunctionTimeout bounds every async function call.
//
// PrecisionEpsilon is the relative difference below which two numbers
// compare equal.
//
// CaseSensitive, UseWildcards and UseRegularExpressions control text
// matching in criteria and lookups. UseWildcards is on unless set to false
// or regular expressions are enabled.
//
// MaxRows and MaxColumns limit the size of every sheet.
//
// TokenCacheSize is the number of tokenized formulas the parser keeps.
//
// MatrixDetection stores every block of number literals of at least
// MatrixDetectionThreshold cells found while building from sheets as one
// vertex. A block is split back into cells when one of them is edited or a
// structural edit touches its sheet.
//
// Logger receives diagnostics; nil keeps the engine silent.
type Options struct {
	AddressMappingPolicy     AddressMappingPolicy
	UseColumnIndex           bool
	VLookupThreshold         int
	AllowCircularReferences  bool
	IterationLimit           int
	ConvergenceTolerance     float64
	UseArrayArithmetic       bool
	AsyncFunctionTimeout     time.Duration
	PrecisionEpsilon         float64
	CaseSensitive            bool
	UseWildcards             *bool
	UseRegularExpressions    bool
	MaxRows                  int
	MaxColumns               int
	TokenCacheSize           int
	MatrixDetection          bool
	MatrixDetectionThreshold int
	Logger                   *log.Logger `copy:"-"`
}

// Bool returns a pointer to b, for optional boolean options.
func Bool(b bool) *bool { return &b }

// getOptions provides a function to parse the optional settings for building
// an engine.
func getOptions(opts ...Options) (*Options, error) {
	options := &Options{}
	for _, opt := range opts {
		options = &opt
	}
	options.fillDefaults()
	if err := options.validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func (o *Options) fillDefaults() {
	if o.AddressMappingPolicy == nil {
		o.AddressMappingPolicy = DenseSparseChooseBasedOnThreshold{Threshold: DefaultDenseThreshold}
	}
	if o.VLookupThreshold == 0 {
		o.VLookupThreshold = DefaultVLookupThreshold
	}
	if o.IterationLimit == 0 {
		o.IterationLimit = DefaultIterationLimit
	}
	if o.ConvergenceTolerance == 0 {
		o.ConvergenceTolerance = DefaultConvergenceTolerance
	}
	if o.AsyncFunctionTimeout == 0 {
		o.AsyncFunctionTimeout = DefaultAsyncFunctionTimeout
	}
	if o.PrecisionEpsilon == 0 {
		o.PrecisionEpsilon = DefaultPrecisionEpsilon
	}
	if o.UseWildcards == nil {
		o.UseWildcards = Bool(!o.UseRegularExpressions)
	}
	if o.MaxRows == 0 {
		o.MaxRows = DefaultMaxRows
	}
	if o.MaxColumns == 0 {
		o.MaxColumns = DefaultMaxColumns
	}
	if o.TokenCacheSize == 0 {
		o.TokenCacheSize = DefaultTokenCacheSize
	}
	if o.MatrixDetectionThreshold == 0 {
		o.MatrixDetectionThreshold = DefaultMatrixThreshold
	}
}

// validate rejects option values the engine can not work with.
func (o *Options) validate() error {
	switch {
	case o.VLookupThreshold < 0:
		return ErrOption{Field: "VLookupThreshold", Reason: "must not be negative"}
	case o.IterationLimit < 0:
		return ErrOption{Field: "IterationLimit", Reason: "must not be negative"}
	case o.ConvergenceTolerance < 0:
		return ErrOption{Field: "ConvergenceTolerance", Reason: "must not be negative"}
	case o.AsyncFunctionTimeout < 0:
		return ErrOption{Field: "AsyncFunctionTimeout", Reason: "must not be negative"}
	case o.PrecisionEpsilon < 0 || o.PrecisionEpsilon >= 1:
		return ErrOption{Field: "PrecisionEpsilon", Reason: "must be in [0, 1)"}
	case o.MaxRows < 0:
		return ErrOption{Field: "MaxRows", Reason: "must not be negative"}
	case o.MaxColumns < 0:
		return ErrOption{Field: "MaxColumns", Reason: "must not be negative"}
	case o.TokenCacheSize < 0:
		return ErrOption{Field: "TokenCacheSize", Reason: "must not be negative"}
	case o.MatrixDetectionThreshold < 0:
		return ErrOption{Field: "MatrixDetectionThreshold", Reason: "must not be negative"}
	case o.UseWildcards != nil && *o.UseWildcards && o.UseRegularExpressions:
		return ErrOption{Field: "UseRegularExpressions", Reason: "can not be combined with UseWildcards"}
	}
	if p, ok := o.AddressMappingPolicy.(DenseSparseChooseBasedOnThreshold); ok && (p.Threshold < 0 || p.Threshold > 1) {
		return ErrOption{Field: "AddressMappingPolicy", Reason: fmt.Sprintf("threshold %g is outside [0, 1]", p.Threshold)}
	}
	return nil
}

// useWildcards reports the effective wildcard setting.
func (o *Options) useWildcards() bool {
	return o.UseWildcards == nil || *o.UseWildcards
}

// Clone returns a deep copy of the options sharing the logger.
func (o *Options) Clone() (*Options, error) {
	var dst Options
	if err := deepcopy.Copy(&dst, *o); err != nil {
		return nil, fmt.Errorf("clone options: %w", err)
	}
	dst.Logger = o.Logger
	return &dst, nil
}
