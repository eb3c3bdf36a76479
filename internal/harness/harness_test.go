package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querify/internal/queryir"
)

func TestRun_Scenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(path, func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func mustParse(t *testing.T, doc string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestRun_Mismatch(t *testing.T) {
	s := mustParse(t, `
name: wrong
description: every expectation is wrong
filter: {owner: {null: true}}
expect:
  mysql: owner IS NOT NULL
  influx: "x"
errors:
  mongo: RENDER_UNSUPPORTED
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "influx: expected \"x\", got error")
	assert.Contains(t, result.Errors[1], "mysql: expected")
	assert.Contains(t, result.Errors[2], "mongo: expected error RENDER_UNSUPPORTED, got output")
}

func TestRun_BuildError(t *testing.T) {
	s := mustParse(t, `
name: bad
description: unrecognized operator
filter: {host: {between: 1}}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, string(queryir.ErrCodeInvalidQuery), result.BuildCode)
	assert.Empty(t, result.Outputs)

	s = mustParse(t, `
name: good
description: builds fine
filter: {host: a}
build_error: INVALID_QUERY
`)
	result, err = Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "got success")
}

func TestRun_SnapshotRendersAllTargets(t *testing.T) {
	s := mustParse(t, `
name: all
description: no expectations
filter: {up: true}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	require.Len(t, result.Outputs, len(queryir.Targets))

	mongo, ok := result.Output(queryir.TargetMongo)
	require.True(t, ok)
	assert.Equal(t, `{"up":{"$eq":true}}`, mongo.Text)
}

func TestRun_EmptyFilter(t *testing.T) {
	s := mustParse(t, `
name: empty
description: an empty filter renders as no condition
filter: {}
expect:
  mysql: ""
  mongo: "{}"
`)
	result, err := New(nil, nil).Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadStatement(t *testing.T) {
	s := mustParse(t, `
name: unknown_key
description: statement fails the schema
statement: {select: {tabel: cpu}}
`)
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_key")
}
