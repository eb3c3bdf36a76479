package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validQueries = `package queries

query: cpu: select: {
	table: "cpu"
	where: host: "web1"
}

query: tags: show_tag_keys: measurement: "cpu"
`

const brokenQueries = `package queries

query: cpu: select: table: "cpu"

query: broken: select: {
	table: "cpu"
	where: host: []
}
`

// writeQueries writes src as the only CUE file of a fresh directory.
func writeQueries(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queries.cue"), []byte(src), 0644))
	return dir
}

func executeCompile(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileValidQueries(t *testing.T) {
	dir := writeQueries(t, validQueries)

	output, err := executeCompile(t, "text", dir)
	require.NoError(t, err)

	assert.Contains(t, output, "✓ Compiled 2 query(s)")
	assert.Contains(t, output, "cpu (select):")
	assert.Contains(t, output, `influx: SELECT * FROM "cpu" WHERE "host" = 'web1'`)
	assert.Contains(t, output, "mysql: SELECT * FROM cpu WHERE host = 'web1'")
	assert.Contains(t, output, "tags (show_tag_keys):")
	assert.Contains(t, output, `influx: SHOW TAG KEYS FROM "cpu"`)
}

func TestCompileValidQueriesJSON(t *testing.T) {
	dir := writeQueries(t, validQueries)

	output, err := executeCompile(t, "json", dir)
	require.NoError(t, err)

	var resp struct {
		Status  string            `json:"status"`
		Data    CompilationResult `json:"data"`
		TraceID string            `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)

	require.Len(t, resp.Data.Queries, 2)
	cpu := resp.Data.Queries[0]
	assert.Equal(t, "cpu", cpu.Name)
	assert.Equal(t, "select", cpu.Statement)
	require.Len(t, cpu.Outputs, 3)
	assert.Equal(t, "influx", cpu.Outputs[0].Target)
	assert.Equal(t, "mysql", cpu.Outputs[1].Target)
	assert.Equal(t, "mongo", cpu.Outputs[2].Target)
	assert.Contains(t, cpu.Outputs[2].Text, `"filter":{"host":{"$eq":"web1"}}`)
}

func TestCompileOutputToFile(t *testing.T) {
	dir := writeQueries(t, validQueries)
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	output, err := executeCompile(t, "text", dir, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote compiled queries to")

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Queries, 2)
}

func TestCompileNonExistentDirectory(t *testing.T) {
	output, err := executeCompile(t, "text", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, output, "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileEmptyDirectory(t *testing.T) {
	output, err := executeCompile(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, output, "no CUE files found")
}

func TestCompileNoQueries(t *testing.T) {
	dir := writeQueries(t, "package queries\n\nother: 1\n")

	output, err := executeCompile(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, output, ErrCodeNoQueries)
}

func TestCompileInvalidQuery(t *testing.T) {
	dir := writeQueries(t, brokenQueries)

	output, err := executeCompile(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compilation failed with 1 error(s)")
	assert.Contains(t, output, "✗ Compilation failed")
	assert.Contains(t, output, ErrCodeInvalidStatement)
	assert.Contains(t, output, "query.broken")
}

func TestCompileInvalidQueryJSON(t *testing.T) {
	dir := writeQueries(t, brokenQueries)

	output, err := executeCompile(t, "json", dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidStatement, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "query.broken")
}

func TestCompileSchemaViolation(t *testing.T) {
	dir := writeQueries(t, `package queries

query: cpu: select: {
	table: "cpu"
	limit: 10
}
`)

	output, err := executeCompile(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, output, ErrCodeQuerySchema)
}

func TestCompileUnsupportedTarget(t *testing.T) {
	dir := writeQueries(t, `package queries

query: cpu: {
	targets: ["pandas"]
	select: table: "cpu"
}
`)

	output, err := executeCompile(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, output, ErrCodeRenderUnsupported)
	assert.Contains(t, output, "query.cpu: pandas")
}

func TestMapFieldToErrorCode(t *testing.T) {
	testCases := []struct {
		field string
		want  string
	}{
		{"cue", ErrCodeQuerySchema},
		{"schema", ErrCodeQuerySchema},
		{"query", ErrCodeQueryShape},
		{"targets", ErrCodeInvalidTarget},
		{"other", ErrCodeGeneric},
	}

	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			assert.Equal(t, tc.want, MapFieldToErrorCode(tc.field, nil))
		})
	}
}
