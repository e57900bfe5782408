package store

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

// marshalShape converts a result shape to JSON TEXT for storage.
func marshalShape(shape []int) (string, error) {
	data, err := json.Marshal(shape)
	if err != nil {
		return "", errors.Wrap(err, "marshal shape")
	}
	return string(data), nil
}

// unmarshalShape parses JSON TEXT back into a result shape.
func unmarshalShape(data string) ([]int, error) {
	var shape []int
	if err := json.Unmarshal([]byte(data), &shape); err != nil {
		return nil, errors.Wrap(err, "unmarshal shape")
	}
	return shape, nil
}

// marshalResult packs one result array into its storage columns: the
// shape as JSON, the samples as the wire codec's sample encoding.
func marshalResult(r exec.ResultArray) (string, []byte, error) {
	shape, err := marshalShape(r.Shape)
	if err != nil {
		return "", nil, err
	}
	return shape, wire.EncodeSamples(r.Data), nil
}

// unmarshalResult unpacks storage columns into a result array.
func unmarshalResult(shape string, data []byte) (exec.ResultArray, error) {
	out := exec.ResultArray{}
	var err error
	if out.Shape, err = unmarshalShape(shape); err != nil {
		return out, err
	}
	if out.Data, err = wire.DecodeSamples(data); err != nil {
		return out, errors.Wrap(err, "decode result samples")
	}
	return out, nil
}
