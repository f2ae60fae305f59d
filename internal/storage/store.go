package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	framesFile    = "frames.csv"
	positionsFile = "positions.csv"
)

// Store keeps one directory per headless run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	FrameDt   float64            `json:"frame_dt"`
	Frames    int                `json:"frames"`
	Particles int                `json:"particles"`
	Elapsed   time.Duration      `json:"elapsed_ns"`
	Engine    dynamo.Config      `json:"engine"`
	Metrics   map[string]float64 `json:"metrics"`
}

// FrameRecord is one row of frames.csv.
type FrameRecord struct {
	Frame       int     `csv:"frame"`
	Time        float64 `csv:"time"`
	Particles   int     `csv:"particles"`
	Corrections int     `csv:"corrections"`
	Degenerate  int     `csv:"degenerate"`
	Clamped     int     `csv:"clamped"`
	Kinetic     float64 `csv:"kinetic"`
	StepMicros  int64   `csv:"step_us"`
}

// PositionRecord is one row of positions.csv, the final snapshot.
type PositionRecord struct {
	ID int     `csv:"id"`
	X  float64 `csv:"x"`
	Y  float64 `csv:"y"`
}

func FrameRecords(samples []sim.Sample) []FrameRecord {
	out := make([]FrameRecord, len(samples))
	for i, s := range samples {
		out[i] = FrameRecord{
			Frame:       s.Frame,
			Time:        s.Time,
			Particles:   s.Particles,
			Corrections: s.Corrections,
			Degenerate:  s.Degenerate,
			Clamped:     s.Clamped,
			Kinetic:     s.Kinetic,
			StepMicros:  s.StepTime.Microseconds(),
		}
	}
	return out
}

func PositionRecords(positions []dynamo.Vec) []PositionRecord {
	out := make([]PositionRecord, len(positions))
	for i, p := range positions {
		out[i] = PositionRecord{ID: i, X: p.X, Y: p.Y}
	}
	return out
}

// Save writes a run record and returns its id. meta.ID and meta.Timestamp are
// filled in; the remaining fields are the caller's.
func (s *Store) Save(meta RunMetadata, result *sim.Result, positions []dynamo.Vec) (string, error) {
	now := time.Now()
	name := meta.Name
	if name == "" {
		name = "run"
	}
	meta.ID = fmt.Sprintf("%s_%s", name, now.Format("20060102-150405.000"))
	meta.Timestamp = now
	meta.Frames = result.FramesRun
	meta.Particles = len(positions)
	meta.Elapsed = result.Elapsed
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", fmt.Errorf("writing metadata: %w", err)
	}
	if err := writeCSV(filepath.Join(runDir, framesFile), FrameRecords(result.Samples)); err != nil {
		return "", fmt.Errorf("writing frames: %w", err)
	}
	if err := writeCSV(filepath.Join(runDir, positionsFile), PositionRecords(positions)); err != nil {
		return "", fmt.Errorf("writing positions: %w", err)
	}

	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV[T any](path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&records, f)
}

func readCSV[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records := []T{}
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return records, nil
		}
		return nil, err
	}
	return records, nil
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]FrameRecord, error) {
	return readCSV[FrameRecord](filepath.Join(s.baseDir, runID, framesFile))
}

func (s *Store) LoadPositions(runID string) ([]dynamo.Vec, error) {
	records, err := readCSV[PositionRecord](filepath.Join(s.baseDir, runID, positionsFile))
	if err != nil {
		return nil, err
	}
	out := make([]dynamo.Vec, len(records))
	for _, r := range records {
		if r.ID < 0 || r.ID >= len(out) {
			return nil, fmt.Errorf("position id %d out of range", r.ID)
		}
		out[r.ID] = dynamo.Vec{X: r.X, Y: r.Y}
	}
	return out, nil
}
