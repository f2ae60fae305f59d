package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

type ExportData struct {
	Run    RunMetadata   `json:"run"`
	Frames []FrameRecord `json:"frames"`
}

// Export writes a stored run's frame records to w as "csv" or "json".
func (s *Store) Export(w io.Writer, runID, format string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}

	switch format {
	case "csv", "":
		return gocsv.Marshal(&frames, w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ExportData{Run: *meta, Frames: frames})
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
