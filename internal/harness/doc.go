// Package harness runs conformance scenarios for the query compiler.
//
// A scenario builds one filter or statement and checks what each target
// renders it as.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: busy_hosts
//	description: "Hosts over the status threshold"
//	filter:
//	  host: web1
//	  status: {gt: 200}
//	expect:
//	  influx: "(\"host\" = 'web1') AND (\"status\" > 200)"
//	  mysql: "(host = 'web1') AND (status > 200)"
//	errors:
//	  pandas: RENDER_UNSUPPORTED
//	assertions:
//	  - type: identifiers
//	    names: [host, status]
//	  - type: sql_valid
//
// Instead of filter a scenario may carry a statement, shaped like a CUE
// query definition (select, show_tag_keys or show_columns). A scenario
// expected to fail while building names the code in build_error.
//
// Unquoted YAML timestamps decode as time.Time, so filters on time
// columns are written naturally:
//
//	filter:
//	  time: {gte: 2024-03-01T00:00:00Z}
//
// # Assertion Types
//
//   - identifiers: the distinct field names, in order of first appearance
//   - normalized: the normalized filter, compared as canonical JSON
//   - contains: a target's output contains a substring
//   - sql_valid: the MySQL rendering prepares against SQLite
//
// # Golden Files
//
// RunWithGolden stores every rendering of a scenario under
// testdata/golden. Scenarios without expect or errors render all targets,
// which makes them snapshot-only.
package harness
