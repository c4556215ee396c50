package app

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/domain"
)

// maxIngestLine bounds a single JSONL record during batch replay.
const maxIngestLine = 1 << 20

// IngestFile replays a JSONL capture through the normal message path, one
// envelope per line. It returns the number of non-empty lines read; lines
// that fail to parse still count but are otherwise skipped, and a failed
// store write aborts only that line.
func (o *Orchestrator) IngestFile(ctx context.Context, path string) (int, error) {
	if o == nil {
		return 0, fmt.Errorf("orchestrator is not configured")
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open ingest file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxIngestLine)

	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		count++

		envelope, err := domain.ParseEnvelope([]byte(line))
		if err != nil {
			continue
		}
		if err := o.Handle(ctx, envelope); err != nil {
			log.Printf("ingest line %d: %v", count, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read ingest file: %w", err)
	}
	return count, nil
}
