// Package pfnextras provides a thin façade over the comparison machinery
// for validating that independently implemented training or evaluation
// backends produce numerically equivalent results. Most applications
// interact with this package by:
//  1. Creating a Comparer via NewComparer() (optionally from a YAML
//     options file)
//  2. Registering two or more engines (the first one is the reference)
//  3. Calling Compare() to run all engines in lockstep until completion
//     or the first divergence
//
// The façade delegates to the comparer package while keeping setup
// ergonomics concise; see the comparer, engine, trigger and tensor
// packages for the underlying building blocks.
package pfnextras

import (
	"github.com/linshokaku/pytorch-pfn-extras/comparer"
)

// Comparer is re-exported for convenience; see comparer.Comparer.
type Comparer = comparer.Comparer

// Options is re-exported for convenience; see comparer.Options.
type Options = comparer.Options

// NewComparer constructs a Comparer with optional overrides.
func NewComparer(optFns ...func(o *comparer.Options)) *comparer.Comparer {
	return comparer.New(optFns...)
}

// NewComparerFromConfig constructs a Comparer from a YAML options file,
// with optional programmatic overrides applied on top.
func NewComparerFromConfig(path string, optFns ...func(o *comparer.Options)) (*comparer.Comparer, error) {
	fileOpts, err := comparer.LoadOptionsFile(path)
	if err != nil {
		return nil, err
	}

	return comparer.New(append(fileOpts, optFns...)...), nil
}
