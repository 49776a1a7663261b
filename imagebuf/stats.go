package imagebuf

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"fresnel/protocol"
)

// WriteStatsCSV writes one row per recorded stats interval: produced,
// killed, queued and progress, in the order samples were appended.
//
// No pack example wires in a CSV library, and the ecosystem's dominant
// choice (encoding/csv) is itself the standard library, so this stays on
// stdlib rather than reaching for a dependency with no precedent here.
func WriteStatsCSV(path string, samples []protocol.Stats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imagebuf: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"produced", "killed", "queued", "progress"}); err != nil {
		return fmt.Errorf("imagebuf: %w", err)
	}
	for _, s := range samples {
		row := []string{
			strconv.FormatUint(uint64(s.Produced), 10),
			strconv.FormatUint(uint64(s.Killed), 10),
			strconv.FormatUint(uint64(s.Queued), 10),
			strconv.FormatFloat(float64(s.Progress), 'f', 6, 32),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("imagebuf: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
