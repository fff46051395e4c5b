// Package harness provides conformance testing for discrete models.
//
// The harness loads a CUE model, enumerates every discrete path, persists
// the paths to an in-memory store and checks them against the scenario's
// expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: two_coins
//	description: "Two independent coins enumerate to four paths"
//	model: ../models/coins.cue
//	model_name: two_coins
//	order: lifo
//	expect:
//	  paths: 4
//	  weight_sum: 1.0
//	  contains:
//	    - assignment: { a: 1, b: 0 }
//	      weight: 0.12
//	  marginals:
//	    a: { "0": 0.7, "1": 0.3 }
//	  posteriors:
//	    rain: { "0": 0.640394, "1": 0.359606 }
//
// # Expectation Types
//
//   - paths: exact number of emitted paths
//   - weight_sum: sum of all scalar path weights
//   - contains: a path with the given assignment (and weight) is emitted
//   - marginals: weighted value table for a site; "<unreached>" holds the
//     mass of paths that never sampled it
//   - posteriors: marginals weighted by the observed likelihood, normalized
//   - error: enumeration fails with the given error code
//
// # Golden Files
//
// RunWithGolden snapshots the emitted paths to
// testdata/golden/{name}.golden as canonical JSON. Weights are written as
// fixed six-decimal strings. Regenerate with:
//
//	go test ./internal/harness -update
package harness
