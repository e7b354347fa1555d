// Package harness runs site scenarios: a site, a rules file and a series
// of compilations with edits between them, checked against expected
// outcomes and against a recorded trace of compiler events.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: dependency_chain
//	description: "An item embedding another recompiles when it changes"
//	rules: |
//	  compile: [{pattern: "/**/*", actions: [{filter: "template"}]}]
//	  route: [{pattern: "/**/*", path: "{{.WithoutExt}}.html"}]
//	site:
//	  items:
//	    /a.md: {content: '{{ compiledContent "/b.md" }} alpha'}
//	    /b.md: {content: beta}
//	runs:
//	  - name: initial
//	    expect:
//	      compiled: [rep:/a.md:default, rep:/b.md:default]
//	      outputs: {/a.html: beta alpha}
//	  - name: edit b
//	    changes:
//	      items: {/b.md: {content: BETA}}
//	    expect:
//	      outdated: {rep:/a.md:default: dependencies outdated}
//	    assertions:
//	      - type: event_order
//	        events: [compiled rep:/b.md:default, compiled rep:/a.md:default]
//
// rules_file may replace rules; it is resolved against the scenario file.
//
// # Assertion Types
//
//   - event_contains: an event line appears in the run's trace
//   - event_absent: an event line does not appear
//   - event_order: event lines appear in the given order
//   - event_count: exactly count lines start with prefix
//
// # Determinism
//
// Every scenario runs against an in-memory site with a fixed clock and
// sequential run IDs, and the compiler schedules reps in sorted order, so
// traces are identical across runs and can be compared with golden files.
package harness
