package backup

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"xbagent/internal/runner"
	"xbagent/internal/storage"
)

// successMarker is the text xtrabackup prints as the last log line of a
// successful backup. Nothing else is trusted as a success signal.
const successMarker = "completed OK!"

// Executor invokes xtrabackup against a resolved replica and writes one
// artifact into the staging tier per cycle.
type Executor struct {
	Runner   runner.Runner
	Local    *storage.Local
	Database string
	Procs    int

	log zerolog.Logger
}

func NewExecutor(r runner.Runner, local *storage.Local, database string, procs int, logger zerolog.Logger) *Executor {
	return &Executor{
		Runner:   r,
		Local:    local,
		Database: database,
		Procs:    procs,
		log:      logger,
	}
}

// Backup streams one full backup of the target into the artifact's primary
// file, with the tool's log captured next to it. The backup counts as
// successful only when the log's last line carries the completion marker; on
// success the log file is removed.
func (e *Executor) Backup(ctx context.Context, target Target, art Artifact) error {
	if err := e.Local.Ensure(); err != nil {
		return err
	}

	streamPath := e.Local.Path(art.Name)
	logPath := e.Local.Path(art.LogName)

	stream, err := os.Create(streamPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", streamPath, err)
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		stream.Close()
		return fmt.Errorf("failed to create %s: %w", logPath, err)
	}

	args := []string{
		"--backup",
		"--stream=xbstream",
		"--host=" + target.Host,
		"--port=" + target.Port,
		"--user=" + target.User,
		"--password=" + target.Password,
		"--compress=zstd",
		fmt.Sprintf("--compress-threads=%d", e.Procs/2),
		fmt.Sprintf("--parallel=%d", e.Procs),
		"--safe-slave-backup",
		"--safe-slave-backup-timeout=300",
		"--history=" + e.Database + "_" + art.Token,
	}

	e.log.Info().Str("artifact", art.Name).Str("host", target.Host).Int("parallel", e.Procs).Msg("starting xtrabackup")

	runErr := e.Runner.Run(ctx, stream, logFile, "xtrabackup", args...)
	stream.Close()
	logFile.Close()

	last, err := lastLine(logPath)
	if err != nil {
		return fmt.Errorf("failed to read backup log %s: %w", logPath, err)
	}

	if runErr != nil {
		return fmt.Errorf("xtrabackup failed: %w (log tail: %s)", runErr, last)
	}
	if !strings.Contains(last, successMarker) {
		return fmt.Errorf("xtrabackup did not complete cleanly (log tail: %s)", last)
	}

	// The log is transient; a leftover one would later look like a stale
	// artifact, so a failed delete is not tolerated.
	if err := e.Local.Remove(art.LogName); err != nil {
		return fmt.Errorf("failed to remove backup log: %w", err)
	}

	e.log.Info().Str("artifact", art.Name).Msg("backup completed")
	return nil
}

// lastLine returns the last non-empty line of a file.
func lastLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\n")
	return strings.TrimRight(lines[len(lines)-1], "\r"), nil
}
