package model

import (
	"bytes"
	"encoding/json"
)

// Field records whether a JSON key was present and whether it was null,
// which a plain pointer cannot distinguish.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// Present reports a non-null value.
func (f Field[T]) Present() bool {
	return f.Set && !f.Null
}
