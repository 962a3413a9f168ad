package index

import (
	"encoding/json"
	"fmt"
)

// NewStore opens the store registered under kind at path.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "bolt", "":
		return OpenBolt(path)
	case "badger":
		return OpenBadger(path, false)
	default:
		return nil, fmt.Errorf("unknown index store %q", kind)
	}
}

// positionKey keeps docstore keys in insertion order under byte-wise sort.
func positionKey(pos int) []byte {
	return []byte(fmt.Sprintf("%020d", pos))
}

func marshalEntry(e Entry) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal entry %s failed: %w", e.Chunk.ID, err)
	}
	return b, nil
}

func unmarshalEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("unmarshal entry failed: %w", err)
	}
	return e, nil
}
