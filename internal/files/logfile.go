// Package files opens the JSONL log file named by --log-file.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrLinkedPath is returned when a log path passes through a symlink or a
// Windows reparse point.
var ErrLinkedPath = errors.New("log path goes through a link")

// OpenLogFile opens path for appending, creating it with owner-only
// permissions. Paths that resolve through a link are refused.
func OpenLogFile(path string) (*os.File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("log file path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve log file path: %w", err)
	}
	if err := checkLinks(abs); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// checkLinks inspects every existing component of abs, root first. The walk
// ends at the first component that does not exist yet.
func checkLinks(abs string) error {
	var chain []string
	for p := abs; ; {
		chain = append(chain, p)
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}

	for i := len(chain) - 1; i >= 0; i-- {
		p := chain[i]
		info, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to inspect log file path: %w", err)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%w: symlink at %s", ErrLinkedPath, p)
		}
		reparse, err := isReparsePoint(p)
		if err != nil {
			return fmt.Errorf("failed to inspect log file path: %w", err)
		}
		if reparse {
			return fmt.Errorf("%w: reparse point at %s", ErrLinkedPath, p)
		}
	}
	return nil
}
