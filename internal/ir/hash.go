package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPath  = "discrete/path/v1"
	DomainModel = "discrete/model/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PathID computes the content-addressed ID of one enumerated path: the
// model it belongs to plus the value of every discrete choice on it.
// Two emissions with the same PathID are the same path.
func PathID(modelHash string, assignment IRObject) (string, error) {
	obj := IRObject{
		"model":      IRString(modelHash),
		"assignment": assignment,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("PathID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPath, canonical), nil
}

// MustPathID is like PathID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPathID(modelHash string, assignment IRObject) string {
	id, err := PathID(modelHash, assignment)
	if err != nil {
		panic(err)
	}
	return id
}

// ModelHash computes the content-addressed hash of a compiled model.
// Float parameters are hashed through their shortest round-trip decimal
// string, so the hash is stable across platforms.
func ModelHash(spec ModelSpec) (string, error) {
	sites := make([]any, len(spec.Sites))
	for i, s := range spec.Sites {
		site := map[string]any{
			"name":      s.Name,
			"enumerate": s.Enumerate,
		}
		if s.Dist != nil {
			site["dist"] = distEnvelope(*s.Dist)
		}
		if len(s.Given) > 0 {
			given := make([]any, len(s.Given))
			for j, g := range s.Given {
				given[j] = g
			}
			site["given"] = given
			table := make(map[string]any, len(s.Table))
			for k, d := range s.Table {
				table[k] = distEnvelope(d)
			}
			site["table"] = table
		}
		if s.Observed != nil {
			site["observed"] = valueEnvelope(s.Observed)
		}
		if s.When != nil {
			when := map[string]any{"site": s.When.Site}
			if s.When.Equals != nil {
				when["equals"] = valueEnvelope(s.When.Equals)
			}
			if len(s.When.In) > 0 {
				when["in"] = valueEnvelope(s.When.In)
			}
			site["when"] = when
		}
		sites[i] = site
	}

	canonical, err := MarshalCanonical(map[string]any{
		"name":  spec.Name,
		"sites": sites,
	})
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

func distEnvelope(d DistSpec) map[string]any {
	env := map[string]any{
		"kind":  d.Kind,
		"p":     formatFloat(d.P),
		"low":   d.Low,
		"high":  d.High,
		"rate":  formatFloat(d.Rate),
		"loc":   formatFloat(d.Loc),
		"scale": formatFloat(d.Scale),
	}
	if d.Values != nil {
		env["values"] = valueEnvelope(d.Values)
	}
	if d.Probs != nil {
		env["probs"] = floatList(d.Probs)
	}
	if d.BatchProbs != nil {
		rows := make([]any, len(d.BatchProbs))
		for i, row := range d.BatchProbs {
			rows[i] = floatList(row)
		}
		env["batch_probs"] = rows
	}
	return env
}

// valueEnvelope makes a possibly float-bearing value hashable by replacing
// floats with their decimal string under a tagged object.
func valueEnvelope(v IRValue) any {
	switch val := v.(type) {
	case IRFloat:
		return map[string]any{"float": formatFloat(float64(val))}
	case IRNull:
		return map[string]any{"null": true}
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = valueEnvelope(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = valueEnvelope(elem)
		}
		return out
	default:
		return v
	}
}

func floatList(fs []float64) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = formatFloat(f)
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
