package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/discrete/internal/ir"
)

// marshalAssignment converts a discrete assignment to canonical JSON TEXT.
// Assignments are float-free, so RFC 8785 canonical form always applies.
func marshalAssignment(a ir.IRObject) (string, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(a)
	if err != nil {
		return "", fmt.Errorf("marshal assignment: %w", err)
	}
	return string(data), nil
}

// unmarshalAssignment parses assignment TEXT. ir.IRObject.UnmarshalJSON uses
// json.Number so integers above 2^53 survive.
func unmarshalAssignment(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal assignment: %w", err)
	}
	return obj, nil
}

// marshalValue converts a site value to JSON TEXT. Site values may hold
// floats from continuous draws, so this is not canonical form.
func marshalValue(v ir.IRValue) (string, error) {
	if v == nil {
		v = ir.IRNull{}
	}
	data, err := ir.MarshalIRValue(v)
	if err != nil {
		return "", fmt.Errorf("marshal site value: %w", err)
	}
	return string(data), nil
}

func unmarshalValue(data string) (ir.IRValue, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal site value: %w", err)
	}
	return v, nil
}

// marshalBatch converts a batched weight to a JSON array.
func marshalBatch(ws []float64) (string, error) {
	arr := make(ir.IRArray, len(ws))
	for i, w := range ws {
		arr[i] = ir.IRFloat(w)
	}
	data, err := arr.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal batch weight: %w", err)
	}
	return string(data), nil
}

func unmarshalBatch(data string) ([]float64, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal batch weight: %w", err)
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("unmarshal batch weight: not an array")
	}
	out := make([]float64, len(arr))
	for i, elem := range arr {
		switch f := elem.(type) {
		case ir.IRFloat:
			out[i] = float64(f)
		case ir.IRInt:
			out[i] = float64(f)
		case ir.IRString:
			// non-finite values are encoded as strings
			parsed, err := strconv.ParseFloat(string(f), 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal batch weight: element %d: %w", i, err)
			}
			out[i] = parsed
		default:
			return nil, fmt.Errorf("unmarshal batch weight: element %d is %T", i, elem)
		}
	}
	return out, nil
}
