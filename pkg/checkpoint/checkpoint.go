// Package checkpoint persists per-run progress so an interrupted batch
// can resume without re-searching completed queries.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"serpgrab/pkg/logger"
)

// Checkpoint represents the state of a batch run over one input file
type Checkpoint struct {
	InputFile      string            `json:"input_file"`
	Completed      map[string]string `json:"completed"` // query -> written result
	TotalQueries   int               `json:"total_queries"`
	TotalCompleted int               `json:"total_completed"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Version        int               `json:"version"`
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a checkpoint manager for the given input file.
// The checkpoint filename is derived from the input path so different
// query lists never share state.
func NewManager(inputFile string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	checkpointsDir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	sum := sha256.Sum256([]byte(inputFile))
	name := fmt.Sprintf("%s-%s.checkpoint.json",
		sanitizeName(filepath.Base(inputFile)), hex.EncodeToString(sum[:6]))

	return &Manager{
		checkpointPath: filepath.Join(checkpointsDir, name),
		logger:         logger.GetLogger(),
	}, nil
}

// Create creates a new checkpoint for a run over total queries
func (m *Manager) Create(inputFile string, total int) (*Checkpoint, error) {
	cp := &Checkpoint{
		InputFile:    inputFile,
		Completed:    make(map[string]string),
		TotalQueries: total,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		Version:      1,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"input": inputFile,
		"path":  m.checkpointPath,
	})

	return cp, nil
}

// Load loads an existing checkpoint, returning nil when none exists
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Completed == nil {
		cp.Completed = make(map[string]string)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"input":      cp.InputFile,
		"completed":  cp.TotalCompleted,
		"updated_at": cp.UpdatedAt,
	})

	return &cp, nil
}

// MarkCompleted records a finished query and persists the checkpoint
func (m *Manager) MarkCompleted(cp *Checkpoint, query, result string) error {
	if _, seen := cp.Completed[query]; !seen {
		cp.TotalCompleted++
	}
	cp.Completed[query] = result
	return m.Save(cp)
}

// IsCompleted reports whether a query already has a written result
func (cp *Checkpoint) IsCompleted(query string) bool {
	_, ok := cp.Completed[query]
	return ok
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize checkpoint: %w", err)
	}

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	err := os.Remove(m.checkpointPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// sanitizeName strips path-hostile characters from a filename stem
func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// getDataDirectory returns the platform data directory for serpgrab
func getDataDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "serpgrab"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "serpgrab"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "serpgrab"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "serpgrab"), nil
		}
		return filepath.Join(home, ".local", "share", "serpgrab"), nil
	}
}
