// Package validator guards the manifest contract between morty's file
// bundle loader and its emitter with an embedded CUE schema.
package validator

// =============================================================================
// VALIDATOR PHILOSOPHY: CRASH EARLY, CRASH LOUD
// =============================================================================
//
// A manifest (spec.md §6) is consumed on the way in (-f) and produced on
// the way out (--manifest). Both directions go through the same shape. If a
// field is renamed or a bundle is malformed, we want an immediate, precise
// error - "field 'include_dirs' not allowed" - not a pruner silently
// treating a typo'd bundle as empty.
//
// WHEN VALIDATION FAILS:
// 1. DON'T suppress the error or loosen the schema to make it pass.
// 2. DO trace back to whoever produced the manifest: a hand-written -f
//    file, or morty's own emitter.
// =============================================================================

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaFS embed.FS

// Validator validates a manifest against the embedded CUE schema contract.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a new Validator with the embedded CUE schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate checks that data (marshaled to JSON) conforms to #Manifest.
func (v *Validator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON validates raw JSON bytes directly against #Manifest.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}

	manifestDef := v.schema.LookupPath(cue.ParsePath("#Manifest"))
	if manifestDef.Err() != nil {
		return fmt.Errorf("looking up #Manifest definition: %w", manifestDef.Err())
	}

	unified := manifestDef.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("manifest schema validation failed: %w", err)
	}

	return nil
}

// ValidationErrors returns every schema mismatch instead of just the first.
func (v *Validator) ValidationErrors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return []string{fmt.Sprintf("compile error: %v", dataValue.Err())}
	}

	manifestDef := v.schema.LookupPath(cue.ParsePath("#Manifest"))
	if manifestDef.Err() != nil {
		return []string{fmt.Sprintf("schema lookup error: %v", manifestDef.Err())}
	}

	unified := manifestDef.Unify(dataValue)
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}
