package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, opts *RootOptions, dir string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{dir})
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestValidateValidQueries(t *testing.T) {
	dir := writeQueries(t, validQueries)

	output, _, err := executeValidate(t, &RootOptions{Format: "text"}, dir)
	require.NoError(t, err)

	// tags is a show_tag_keys query, which only targets influx
	assert.Contains(t, output, "✓ All queries valid (2 query(s), 1 SQL checked)")
}

func TestValidateValidQueriesJSON(t *testing.T) {
	dir := writeQueries(t, validQueries)

	output, _, err := executeValidate(t, &RootOptions{Format: "json"}, dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Queries)
	assert.Equal(t, 1, resp.Data.Checked)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	output, _, err := executeValidate(t, &RootOptions{Format: "text"}, "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, output, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, _, err := executeValidate(t, &RootOptions{Format: "text"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}

func TestValidateInvalidQuery(t *testing.T) {
	dir := writeQueries(t, brokenQueries)

	output, _, err := executeValidate(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, ErrCodeInvalidStatement)
	assert.Contains(t, output, "query.broken")
}

func TestValidateInvalidQueryJSON(t *testing.T) {
	dir := writeQueries(t, brokenQueries)

	output, _, err := executeValidate(t, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidStatement, resp.Error.Code)
}

func TestValidateUnsupportedSQL(t *testing.T) {
	dir := writeQueries(t, `package queries

query: owners: select: {
	table: "events"
	where: owner: missing: true
}
`)

	output, _, err := executeValidate(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, output, ErrCodeRenderUnsupported)
	assert.Contains(t, output, "query.owners")
}

func TestValidateSkipsShowStatements(t *testing.T) {
	dir := writeQueries(t, `package queries

query: cols: show_columns: table: "events"
`)

	output, stderr, err := executeValidate(t, &RootOptions{Format: "text", Verbose: true}, dir)
	require.NoError(t, err)
	assert.Contains(t, output, "(1 query(s), 0 SQL checked)")
	assert.Contains(t, stderr, "sql check skipped")
}

func TestValidateVerboseOutput(t *testing.T) {
	dir := writeQueries(t, validQueries)

	_, stderr, err := executeValidate(t, &RootOptions{Format: "text", Verbose: true}, dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Found 1 CUE file(s)")
	assert.Contains(t, stderr, "Checking SQL for query: cpu")
}
