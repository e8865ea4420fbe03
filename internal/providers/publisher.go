package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"shortforge/internal/fileutil"
)

// DirectoryPublisher "publishes" by copying artifacts into a local directory,
// next to a JSON sidecar with the metadata. It stands in for a hosted platform.
type DirectoryPublisher struct {
	Dir string
	Now func() time.Time
}

// NewDirectoryPublisher constructs a publisher rooted at dir.
func NewDirectoryPublisher(dir string) *DirectoryPublisher {
	return &DirectoryPublisher{Dir: dir, Now: time.Now}
}

// Publish copies file into the publish directory under a fresh external id.
func (p *DirectoryPublisher) Publish(ctx context.Context, file string, meta PublishMetadata) (PublishRecord, error) {
	if strings.TrimSpace(p.Dir) == "" {
		return PublishRecord{}, errors.New("publish: directory not configured")
	}
	if err := ctx.Err(); err != nil {
		return PublishRecord{}, err
	}
	if _, err := os.Stat(file); err != nil {
		return PublishRecord{}, fmt.Errorf("publish: %w", err)
	}
	id := uuid.NewString()
	dest := filepath.Join(p.Dir, channelDir(meta.ChannelID), id+filepath.Ext(file))
	if err := fileutil.CopyFileVerified(file, dest); err != nil {
		return PublishRecord{}, fmt.Errorf("publish: %w", err)
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	record := PublishRecord{
		Platform:    "directory",
		URL:         "file://" + dest,
		ExternalID:  id,
		PublishedAt: now().UTC(),
	}
	sidecar, err := json.MarshalIndent(struct {
		PublishMetadata
		PublishRecord
	}{meta, record}, "", "  ")
	if err != nil {
		return PublishRecord{}, fmt.Errorf("publish: encode metadata: %w", err)
	}
	if err := fileutil.WriteFile(strings.TrimSuffix(dest, filepath.Ext(dest))+".json", sidecar); err != nil {
		return PublishRecord{}, fmt.Errorf("publish: %w", err)
	}
	return record, nil
}

func channelDir(channelID string) string {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return "default"
	}
	return filepath.Base(channelID)
}
