package feed

import (
	"context"
	"fmt"
	"os"

	"github.com/kilianp07/outagewatch/core/schedule"
)

// FileFeed reads the schedule document from disk on every fetch.
type FileFeed struct {
	Path   string
	Format Format
}

func NewFileFeed(path string) *FileFeed {
	return &FileFeed{Path: path, Format: FormatFromName(path)}
}

func (f *FileFeed) Fetch(ctx context.Context) (schedule.FeedData, error) {
	if err := ctx.Err(); err != nil {
		return schedule.FeedData{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return schedule.FeedData{}, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return Decode(data, f.Format)
}
