package stats

import (
	"errors"
	"fmt"
	"time"
)

// ErrRowShape means a row's length differs from the header count.
var ErrRowShape = errors.New("row length does not match column count")

// Row is [player, position, stat 1, ..., stat N].
type Row []string

// Player returns the row's player label.
func (r Row) Player() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// Snapshot is a header sequence and the rows read while the same variant
// was active.
type Snapshot struct {
	Variant    Variant   `json:"variant" yaml:"variant"`
	URL        string    `json:"url,omitempty" yaml:"url,omitempty"`
	Columns    []string  `json:"columns" yaml:"columns"`
	Rows       []Row     `json:"rows" yaml:"rows"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
}

// Validate checks that every row is as long as the header.
func (s *Snapshot) Validate() error {
	for i, r := range s.Rows {
		if len(r) != len(s.Columns) {
			return fmt.Errorf("%w: row %d (%s) has %d cells, want %d", ErrRowShape, i, r.Player(), len(r), len(s.Columns))
		}
	}
	return nil
}

// Records returns the header followed by the rows, ready for tabular writers.
func (s *Snapshot) Records() [][]string {
	out := make([][]string, 0, len(s.Rows)+1)
	out = append(out, s.Columns)
	for _, r := range s.Rows {
		out = append(out, []string(r))
	}
	return out
}
