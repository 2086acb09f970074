package ctd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
	"github.com/gilchrisn/connect-the-dots/pkg/ranking"
)

// OutputPaths resolves where the result record and the rank cache go.
// Without an explicit name the result is named after the experimental
// file, or the adjacency file when there is no experimental data.
func OutputPaths(in Inputs, outputName string) (resultPath, ranksPath string) {
	resultPath = outputName
	if resultPath == "" {
		source := in.Experimental
		if source == "" {
			source = in.Adjacency
		}
		base := filepath.Base(source)
		resultPath = strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
	}

	ranksPath = strings.TrimSuffix(resultPath, ".json") + "_ranks.json"
	return resultPath, ranksPath
}

// FileWriter writes run outputs as JSON files
type FileWriter struct {
	logger zerolog.Logger
}

// NewFileWriter creates a new file-based output writer
func NewFileWriter(logger zerolog.Logger) *FileWriter {
	return &FileWriter{logger: logger}
}

// WriteAll writes the result record and the rank cache.
func (fw *FileWriter) WriteAll(out *Output, resultPath, ranksPath string) error {
	if dir := filepath.Dir(resultPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := fw.WriteResult(out.Result, resultPath); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if err := ranking.SaveCache(ranksPath, out.Ranks); err != nil {
		return fmt.Errorf("failed to write ranks: %w", err)
	}

	fw.logger.Info().
		Str("result", resultPath).
		Str("ranks", ranksPath).
		Msg("Outputs written")
	return nil
}

// WriteResult writes the result record as indented JSON.
func (fw *FileWriter) WriteResult(result models.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadResult loads a result record written by WriteResult.
func ReadResult(path string) (*models.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	var result models.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result %s: %w", path, err)
	}
	return &result, nil
}
