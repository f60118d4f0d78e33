package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/logger"
)

// FileStore is a JSONL-backed ledger. Each append writes one line and
// fsyncs before returning, so a crash never loses an acknowledged row.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *logger.Logger
}

var _ contracts.LedgerStore = (*FileStore)(nil)

// NewFileStore opens (or creates) a JSONL ledger at path.
func NewFileStore(path string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileStore{path: path, logger: log}, nil
}

// Append writes one record as a JSON line.
func (s *FileStore) Append(ctx context.Context, rec contracts.LedgerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	return nil
}

// Records reads the full ledger in append order. A missing file is an
// empty ledger, not an error.
func (s *FileStore) Records(ctx context.Context) ([]contracts.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	var records []contracts.LedgerRecord
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec contracts.LedgerRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			// A torn trailing line from a crash mid-write is skipped
			s.logger.WithFields(map[string]interface{}{
				"line":  lineNo,
				"error": err.Error(),
			}).Warn("Skipping unreadable ledger line")
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return records, nil
}
