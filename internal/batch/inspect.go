package batch

import (
	"os"
	"path/filepath"

	"github.com/budingricky/oneclick/internal/catalog"
	"github.com/budingricky/oneclick/internal/logging"
	"github.com/budingricky/oneclick/internal/repair"
	"github.com/budingricky/oneclick/internal/verify"
)

// ValidateExisting re-validates the on-disk files for the given records
// without downloading anything. Records whose file is missing report a
// not-ok outcome.
func ValidateExisting(validator *verify.Validator, log *logging.Logger, records []*catalog.Record, dir string) map[string]Outcome {
	results := make(map[string]Outcome, len(records))

	for _, rec := range records {
		filePath := filepath.Join(dir, repair.Filename(rec))

		if _, err := os.Stat(filePath); err != nil {
			results[rec.Name] = Outcome{Name: rec.Name, OK: false, Message: repair.ErrNotFound.Error()}
			continue
		}

		ok, message := validator.Validate(filePath, rec.Hash, rec.Size)
		if ok {
			if execOK, execMsg := validator.ValidateExecutable(filePath); !execOK {
				ok = false
				message = execMsg
			}
		}

		results[rec.Name] = Outcome{Name: rec.Name, OK: ok, Message: message}
		log.Info(logging.ChannelValidation, "validation result",
			"software", rec.Name, "valid", ok, "message", message)
	}

	return results
}

// FileInfo describes one cataloged file found on disk.
type FileInfo struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Valid    bool   `json:"valid"`
	Message  string `json:"message"`
}

// DirStats aggregates the validation state of a download directory.
type DirStats struct {
	TotalFiles   int        `json:"total_files"`
	ValidFiles   int        `json:"valid_files"`
	InvalidFiles int        `json:"invalid_files"`
	TotalBytes   int64      `json:"total_bytes"`
	Files        []FileInfo `json:"files"`
}

// Statistics reports how much of the catalog exists on disk and how much
// of it validates.
func Statistics(validator *verify.Validator, log *logging.Logger, records []*catalog.Record, dir string) DirStats {
	var stats DirStats

	if _, err := os.Stat(dir); err != nil {
		return stats
	}

	results := ValidateExisting(validator, log, records, dir)

	for _, rec := range records {
		outcome, ok := results[rec.Name]
		if !ok {
			continue
		}

		filename := repair.Filename(rec)
		filePath := filepath.Join(dir, filename)
		info, err := os.Stat(filePath)
		if err != nil {
			continue
		}

		stats.TotalFiles++
		stats.TotalBytes += info.Size()
		if outcome.OK {
			stats.ValidFiles++
		} else {
			stats.InvalidFiles++
		}

		stats.Files = append(stats.Files, FileInfo{
			Name:     rec.Name,
			Filename: filename,
			Size:     info.Size(),
			Valid:    outcome.OK,
			Message:  outcome.Message,
		})
	}

	return stats
}
