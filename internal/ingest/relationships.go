package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/logger"
)

// FileRelationshipSource loads the supply-chain table from a single JSON
// file mapping ticker to its relationship set. The table is read once
// and held in memory.
type FileRelationshipSource struct {
	path   string
	logger *logger.Logger

	once sync.Once
	sets map[string]contracts.RelationshipSet
	err  error
}

var _ contracts.RelationshipSource = (*FileRelationshipSource)(nil)

// NewFileRelationshipSource creates a file-backed relationship source.
func NewFileRelationshipSource(path string, log *logger.Logger) *FileRelationshipSource {
	return &FileRelationshipSource{path: path, logger: log}
}

// Relationships returns the ticker's edges. Unknown tickers get an empty
// set; a missing file means an empty table.
func (s *FileRelationshipSource) Relationships(ctx context.Context, ticker string) (contracts.RelationshipSet, error) {
	if err := ctx.Err(); err != nil {
		return contracts.RelationshipSet{}, err
	}

	s.once.Do(s.load)
	if s.err != nil {
		return contracts.RelationshipSet{}, s.err
	}
	return s.sets[ticker], nil
}

func (s *FileRelationshipSource) load() {
	s.sets = make(map[string]contracts.RelationshipSet)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.WithFields(map[string]interface{}{
				"path": s.path,
			}).Warn("Relationship table missing, propagation disabled")
			return
		}
		s.err = fmt.Errorf("failed to read relationship table: %w", err)
		return
	}

	if err := json.Unmarshal(data, &s.sets); err != nil {
		s.err = fmt.Errorf("failed to parse relationship table %s: %w", s.path, err)
	}
}
