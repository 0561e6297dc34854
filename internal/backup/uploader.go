package backup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"xbagent/internal/storage"
)

// RemoteStore is the durable tier as the backup lifecycle sees it. Keys are
// artifact file names; the store maps them to full object keys.
type RemoteStore interface {
	CheckRoot(ctx context.Context) error
	Transfer(ctx context.Context, localPath, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) (names []string, truncated bool, err error)
	Delete(ctx context.Context, name string) error
}

// Uploader transfers a completed local artifact to the remote store and
// verifies its presence there. A transfer call that reports success is not
// trusted without the follow-up existence check.
type Uploader struct {
	Store RemoteStore
	Local *storage.Local

	log zerolog.Logger
}

func NewUploader(store RemoteStore, local *storage.Local, logger zerolog.Logger) *Uploader {
	return &Uploader{Store: store, Local: local, log: logger}
}

func (u *Uploader) Upload(ctx context.Context, art Artifact) error {
	if err := u.Store.CheckRoot(ctx); err != nil {
		return fmt.Errorf("remote store is not readable: %w", err)
	}

	localPath := u.Local.Path(art.Name)
	u.log.Info().Str("artifact", art.Name).Msg("uploading backup")

	if err := u.Store.Transfer(ctx, localPath, art.Name); err != nil {
		return err
	}

	exists, err := u.Store.Exists(ctx, art.Name)
	if err != nil {
		return fmt.Errorf("failed to verify upload of %s: %w", art.Name, err)
	}
	if !exists {
		return fmt.Errorf("uploaded artifact %s not found in remote store", art.Name)
	}

	u.log.Info().Str("artifact", art.Name).Msg("upload verified")
	return nil
}
