// Package sqlitepath locates the SQLite database that ssetap records to
// when no path is given explicitly.
package sqlitepath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/ssetap/pkg/dotdir"
)

// FileName is the database file created inside the .ssetap/ directory.
const FileName = "ssetap.sqlite"

// DefaultPath returns the database path inside the resolved .ssetap/
// directory. The file itself may not exist yet.
func DefaultPath(configDir string) (string, error) {
	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving ssetap directory: %w", err)
	}
	return filepath.Join(target, FileName), nil
}

// ResolveSQLitePath returns override when set, otherwise the first existing
// database among the known candidate locations.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	for _, candidate := range sqliteCandidates(configDir) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.New("could not find an ssetap SQLite database; pass --sqlite or record with \"ssetap listen --record\"")
}

func sqliteCandidates(configDir string) []string {
	var candidates []string

	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, FileName))
	}

	candidates = append(candidates,
		FileName,
		"ssetap.db",
		filepath.Join(".ssetap", FileName),
	)

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".ssetap", FileName))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "ssetap", FileName))
	}

	return candidates
}
