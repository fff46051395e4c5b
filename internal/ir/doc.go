// Package ir provides the canonical intermediate representation for discrete.
//
// Two kinds of data live here:
//   - IRValue: the sealed value model for everything a sampling statement can
//     produce. Support values of enumerable distributions are always
//     float-free (IRString, IRInt, IRBool, IRArray, IRObject); only draws from
//     continuous distributions are carried as IRFloat.
//   - ModelSpec: the compiled form of a model definition, produced by the
//     compiler and interpreted by the model package.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Content-addressed identity (PathID, ModelHash) is computed from RFC 8785
//     canonical JSON, which rejects floats and null. Distribution parameters
//     enter hashes through their shortest decimal string.
//   - All JSON tags use snake_case.
package ir
