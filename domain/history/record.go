package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one persisted QR generation. Records are never modified after
// they are created; the store only inserts and removes whole records.
type Record struct {
	ID              string `json:"id,omitempty" yaml:"id,omitempty"`
	URL             string `json:"url" yaml:"url"`
	ImageRequestURL string `json:"qrUrl" yaml:"qrUrl"`
	Size            int    `json:"size" yaml:"size"`
	Timestamp       string `json:"timestamp" yaml:"timestamp"`
	DisplayDate     string `json:"dateString" yaml:"dateString"`
}

// UnmarshalJSON accepts size either as a number or as a numeric string,
// which is how the browser page wrote it.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	aux := struct {
		*alias
		Size json.RawMessage `json:"size"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	size, err := parseSize(aux.Size)
	if err != nil {
		return err
	}
	r.Size = size
	return nil
}

func parseSize(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("size %q is not numeric: %w", s, err)
		}
		return n, nil
	}

	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n, nil
}
