package backup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"xbagent/internal/storage"
)

// Cleaner applies the retention windows to both tiers. Individual deletion
// failures are logged and skipped; only an unreadable tier aborts the cycle.
type Cleaner struct {
	Local        *storage.Local
	Remote       RemoteStore
	LocalWindow  time.Duration
	RemoteWindow time.Duration

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time

	log zerolog.Logger
}

func NewCleaner(local *storage.Local, remote RemoteStore, localWindow, remoteWindow time.Duration, logger zerolog.Logger) *Cleaner {
	return &Cleaner{
		Local:        local,
		Remote:       remote,
		LocalWindow:  localWindow,
		RemoteWindow: remoteWindow,
		log:          logger,
	}
}

func (c *Cleaner) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// CleanLocal removes stale artifacts from the staging tier. Logs past the
// local window go unconditionally. A primary artifact past the local window
// goes only once confirmed present remotely; one absent remotely is kept
// until it also exceeds the remote window, at which point it is treated as
// abandoned and removed anyway.
func (c *Cleaner) CleanLocal(ctx context.Context) error {
	names, err := c.Local.List()
	if err != nil {
		return err
	}

	now := c.now()
	for _, name := range names {
		stamp, kind, ok := ParseName(name)
		if !ok {
			continue
		}
		age := now.Sub(stamp)
		if age <= c.LocalWindow {
			continue
		}

		if kind == KindLog {
			c.removeLocal(name)
			continue
		}

		exists, err := c.Remote.Exists(ctx, name)
		if err != nil {
			c.log.Error().Err(err).Str("artifact", name).Msg("could not check remote copy, keeping local artifact")
			continue
		}
		if exists {
			c.removeLocal(name)
			continue
		}

		if age > c.RemoteWindow {
			// Never confirmed remotely and already past the remote window:
			// treated as abandoned rather than retried forever. This can lose
			// a backup whose upload silently never happened.
			c.log.Warn().Str("artifact", name).Msg("stale artifact absent from remote store, past remote window, removing anyway")
			c.removeLocal(name)
			continue
		}

		c.log.Warn().Str("path", c.Local.Path(name)).Msg("stale artifact not yet in remote store, skipping")
	}
	return nil
}

func (c *Cleaner) removeLocal(name string) {
	if err := c.Local.Remove(name); err != nil {
		c.log.Error().Err(err).Str("artifact", name).Msg("failed to remove local artifact")
		return
	}
	c.log.Info().Str("artifact", name).Msg("removed local artifact")
}

// CleanRemote removes remote artifacts past the remote window. When the
// provider reports the listing truncated, the whole phase is skipped this
// cycle rather than acting on a partial view.
func (c *Cleaner) CleanRemote(ctx context.Context) error {
	names, truncated, err := c.Remote.List(ctx)
	if err != nil {
		return err
	}
	if truncated {
		c.log.Warn().Msg("remote listing truncated, skipping remote cleanup this cycle")
		return nil
	}

	now := c.now()
	for _, name := range names {
		if !Eligible(name, c.RemoteWindow, now) {
			continue
		}
		if err := c.Remote.Delete(ctx, name); err != nil {
			c.log.Error().Err(err).Str("artifact", name).Msg("failed to remove remote artifact")
			continue
		}
		c.log.Info().Str("artifact", name).Msg("removed remote artifact")
	}
	return nil
}
