package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadDir loads the CUE package in dir and returns its value.
func LoadDir(dir string) (cue.Value, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}

	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return value, nil
}

// CompileQueries compiles every field under the top-level "query" struct.
// With failFast set it stops at the first error; otherwise it returns the
// queries that compiled together with every error.
func CompileQueries(v cue.Value, failFast bool) ([]*Query, []error) {
	queriesVal := v.LookupPath(cue.ParsePath("query"))
	if !queriesVal.Exists() {
		return nil, nil
	}

	iter, err := queriesVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		queries []*Query
		errs    []error
	)
	for iter.Next() {
		q, err := CompileQuery(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("query.%s: %w", iter.Label(), err))
			if failFast {
				return queries, errs
			}
			continue
		}
		queries = append(queries, q)
	}
	return queries, errs
}
