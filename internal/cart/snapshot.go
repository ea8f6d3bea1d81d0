package cart

import "encoding/json"

// Snapshot is the persisted shape of a cart. The stored form is assumed to
// always match the current Line shape; there is no version migration.
type Snapshot struct {
	Lines []Line `json:"lines"`
}

func (c *Cart) Snapshot() Snapshot {
	return Snapshot{Lines: c.Lines()}
}

func (c *Cart) Restore(s Snapshot) {
	lines := make([]Line, 0, len(s.Lines))
	for _, line := range s.Lines {
		if line.Quantity < 1 {
			continue
		}
		lines = append(lines, line)
	}
	c.lines = lines
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(data, &s)
	return s, err
}
