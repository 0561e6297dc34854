package backup

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbagent/internal/storage"
)

// fakeRemote is an in-memory RemoteStore.
type fakeRemote struct {
	objects       map[string]bool
	truncated     bool
	rootErr       error
	transferErr   error
	dropTransfers bool
	deleteErr     map[string]error

	transfers []string
	deleted   []string
}

func newFakeRemote(names ...string) *fakeRemote {
	f := &fakeRemote{objects: map[string]bool{}, deleteErr: map[string]error{}}
	for _, name := range names {
		f.objects[name] = true
	}
	return f
}

func (f *fakeRemote) CheckRoot(ctx context.Context) error { return f.rootErr }

func (f *fakeRemote) Transfer(ctx context.Context, localPath, name string) error {
	if f.transferErr != nil {
		return f.transferErr
	}
	f.transfers = append(f.transfers, name)
	if !f.dropTransfers {
		f.objects[name] = true
	}
	return nil
}

func (f *fakeRemote) Exists(ctx context.Context, name string) (bool, error) {
	return f.objects[name], nil
}

func (f *fakeRemote) List(ctx context.Context) ([]string, bool, error) {
	names := make([]string, 0, len(f.objects))
	for name := range f.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, f.truncated, nil
}

func (f *fakeRemote) Delete(ctx context.Context, name string) error {
	if err := f.deleteErr[name]; err != nil {
		return err
	}
	delete(f.objects, name)
	f.deleted = append(f.deleted, name)
	return nil
}

var cleanupNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestCleaner(t *testing.T, remote *fakeRemote) (*Cleaner, *storage.Local) {
	t.Helper()
	local := storage.NewLocal(t.TempDir())
	require.NoError(t, local.Ensure())
	c := NewCleaner(local, remote, 24*time.Hour, 30*24*time.Hour, zerolog.Nop())
	c.Now = func() time.Time { return cleanupNow }
	return c, local
}

func stage(t *testing.T, local *storage.Local, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(local.Path(name), []byte("x"), 0o640))
	}
}

func token(age time.Duration) string {
	return cleanupNow.Add(-age).Format(TokenLayout)
}

func TestCleanLocalYoungArtifactKept(t *testing.T) {
	remote := newFakeRemote()
	c, local := newTestCleaner(t, remote)
	name := token(5*time.Minute) + StreamSuffix
	stage(t, local, name)

	require.NoError(t, c.CleanLocal(context.Background()))
	assert.FileExists(t, local.Path(name))
}

func TestCleanLocalOldLogDeleted(t *testing.T) {
	remote := newFakeRemote()
	c, local := newTestCleaner(t, remote)
	fresh := token(5*time.Minute) + StreamSuffix
	staleLog := token(48*time.Hour) + LogSuffix
	stage(t, local, fresh, staleLog)

	require.NoError(t, c.CleanLocal(context.Background()))
	assert.FileExists(t, local.Path(fresh))
	assert.NoFileExists(t, local.Path(staleLog))
}

func TestCleanLocalUploadedArtifactDeleted(t *testing.T) {
	name := token(48*time.Hour) + StreamSuffix
	remote := newFakeRemote(name)
	c, local := newTestCleaner(t, remote)
	stage(t, local, name)

	require.NoError(t, c.CleanLocal(context.Background()))
	assert.NoFileExists(t, local.Path(name))
}

func TestCleanLocalUnconfirmedArtifactSkipped(t *testing.T) {
	// Past the local window, absent remotely, still within the remote
	// window: kept, with a warning.
	remote := newFakeRemote()
	c, local := newTestCleaner(t, remote)
	name := token(48*time.Hour) + StreamSuffix
	stage(t, local, name)

	require.NoError(t, c.CleanLocal(context.Background()))
	assert.FileExists(t, local.Path(name))
}

func TestCleanLocalAbandonedArtifactDeleted(t *testing.T) {
	// Past both windows and absent remotely: treated as abandoned.
	remote := newFakeRemote()
	c, local := newTestCleaner(t, remote)
	name := token(31*24*time.Hour) + StreamSuffix
	stage(t, local, name)

	require.NoError(t, c.CleanLocal(context.Background()))
	assert.NoFileExists(t, local.Path(name))
}

func TestCleanLocalUnrecognizedNamesUntouched(t *testing.T) {
	remote := newFakeRemote()
	c, local := newTestCleaner(t, remote)
	stage(t, local, "README.txt", "2024_99_99_00_00_00.xbstream")

	require.NoError(t, c.CleanLocal(context.Background()))
	assert.FileExists(t, local.Path("README.txt"))
	assert.FileExists(t, local.Path("2024_99_99_00_00_00.xbstream"))
}

func TestCleanRemoteDeletesExpired(t *testing.T) {
	fresh := token(24*time.Hour) + StreamSuffix
	expired := token(31*24*time.Hour) + StreamSuffix
	remote := newFakeRemote(fresh, expired)
	c, _ := newTestCleaner(t, remote)

	require.NoError(t, c.CleanRemote(context.Background()))
	assert.Equal(t, []string{expired}, remote.deleted)
	assert.True(t, remote.objects[fresh])
}

func TestCleanRemoteSkipsTruncatedListing(t *testing.T) {
	expired := token(31*24*time.Hour) + StreamSuffix
	remote := newFakeRemote(expired)
	remote.truncated = true
	c, _ := newTestCleaner(t, remote)

	require.NoError(t, c.CleanRemote(context.Background()))
	assert.Empty(t, remote.deleted)
}

func TestCleanRemoteContinuesPastDeleteFailure(t *testing.T) {
	first := token(40*24*time.Hour) + StreamSuffix
	second := token(35*24*time.Hour) + StreamSuffix
	remote := newFakeRemote(first, second)
	remote.deleteErr[first] = assert.AnError
	c, _ := newTestCleaner(t, remote)

	require.NoError(t, c.CleanRemote(context.Background()))
	assert.Equal(t, []string{second}, remote.deleted)
}
