package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator derives posted transaction ids from the run start date, a
// token taken from the run id, and the record's input offset. The same
// offset always yields the same id within a run, so replaying a chunk
// cannot mint a second id for a record.
type IDGenerator struct {
	prefix string
}

func NewIDGenerator(startedAt time.Time, runID uuid.UUID) *IDGenerator {
	token := strings.ToUpper(strings.ReplaceAll(runID.String(), "-", "")[:8])
	return &IDGenerator{prefix: startedAt.UTC().Format("20060102") + token}
}

func (g *IDGenerator) ForOffset(offset int64) string {
	return fmt.Sprintf("%s%09d", g.prefix, offset)
}
