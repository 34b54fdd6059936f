package store

import (
	"encoding/json"
	"fmt"
)

// All values are stored as self-describing JSON blobs, so no schema is needed
// at the store layer and records survive across deploys of different versions.

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(data), nil
}

func decode(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}
