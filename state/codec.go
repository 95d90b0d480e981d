package state

import (
	"encoding/json"
	"fmt"
)

// Decode unmarshals blob into a fresh T and runs check on it. Any failure is
// reported wrapped in ErrCorruptState.
func Decode[T any](blob Blob, check func(*T) error) (*T, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrCorruptState)
	}
	var v T
	if err := json.Unmarshal(blob, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if check != nil {
		if err := check(&v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
	}
	return &v, nil
}

func Encode(v any) (Blob, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Blob(data), nil
}
