package backup

import (
	"strings"
	"time"
)

// TokenLayout is the timestamp token embedded in every artifact name. The
// token is the artifact's sole identity and sole source of age information.
const TokenLayout = "2006_01_02_15_04_05"

const (
	// StreamSuffix marks a backup's primary compressed stream file.
	StreamSuffix = ".xbstream"
	// LogSuffix marks the transient xtrabackup log written alongside it.
	LogSuffix = ".xbstream.log"
)

// Kind distinguishes the two artifact files a cycle produces.
type Kind int

const (
	KindStream Kind = iota
	KindLog
)

// Artifact is one cycle's backup: a primary stream file plus a transient log
// file, both named from the same timestamp token assigned at cycle start.
type Artifact struct {
	Token   string
	Name    string
	LogName string
}

// NewArtifact assigns a timestamp token and derives the file names from it.
func NewArtifact(now time.Time) Artifact {
	token := now.Format(TokenLayout)
	return Artifact{
		Token:   token,
		Name:    token + StreamSuffix,
		LogName: token + LogSuffix,
	}
}

// ParseName extracts the timestamp and kind from an artifact file name.
// Names without a recognized suffix, or whose token does not parse, report
// ok=false and are never acted on.
func ParseName(name string) (stamp time.Time, kind Kind, ok bool) {
	var token string
	switch {
	case strings.HasSuffix(name, LogSuffix):
		token = strings.TrimSuffix(name, LogSuffix)
		kind = KindLog
	case strings.HasSuffix(name, StreamSuffix):
		token = strings.TrimSuffix(name, StreamSuffix)
		kind = KindStream
	default:
		return time.Time{}, 0, false
	}

	stamp, err := time.Parse(TokenLayout, token)
	if err != nil {
		return time.Time{}, 0, false
	}
	return stamp, kind, true
}

// Eligible reports whether a named artifact is older than the threshold.
// Unrecognized names are never eligible.
func Eligible(name string, threshold time.Duration, now time.Time) bool {
	stamp, _, ok := ParseName(name)
	if !ok {
		return false
	}
	return now.Sub(stamp) > threshold
}
