package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// PrepareDir makes sure the target directory exists and is writable.
// It creates the directory when missing and probes it with a temp write.
func PrepareDir(dir string) (bool, string) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Sprintf("creating directory: %v", err)
	}

	probe := filepath.Join(dir, ".oneclick-write-probe")
	if err := os.WriteFile(probe, []byte("probe"), 0644); err != nil {
		return false, fmt.Sprintf("directory not writable: %v", err)
	}
	os.Remove(probe)

	return true, "directory writable"
}

// CheckFreeSpace reports whether the filesystem holding dir has at least
// need bytes free. need <= 0 always passes (sizes unknown).
func CheckFreeSpace(dir string, need int64) (bool, string) {
	if need <= 0 {
		return true, "size unknown, skipping free space check"
	}

	usage, err := disk.Usage(dir)
	if err != nil {
		// Can't measure; don't block the download over it
		return true, fmt.Sprintf("free space unknown: %v", err)
	}

	if usage.Free < uint64(need) {
		return false, fmt.Sprintf("not enough free space: need %d bytes, have %d", need, usage.Free)
	}
	return true, fmt.Sprintf("%d bytes free", usage.Free)
}
