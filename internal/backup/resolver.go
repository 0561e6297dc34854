package backup

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

// Target is a resolved replica connection descriptor. Immutable once
// resolved; it lives for the process lifetime.
type Target struct {
	Name     string
	Host     string
	Port     string
	User     string
	Password string
	DSN      string
}

// PingFunc validates a connection against a replica DSN.
type PingFunc func(ctx context.Context, dsn string) error

// Resolver maps a database name to its replica descriptor and performs
// bounded-retry connection acquisition.
type Resolver struct {
	Attempts int
	Backoff  time.Duration
	Ping     PingFunc

	replicas map[string]string
	log      zerolog.Logger
}

func NewResolver(replicas map[string]string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		Attempts: 10,
		Backoff:  5 * time.Second,
		Ping:     sqlPing,
		replicas: replicas,
		log:      logger,
	}
}

// Resolve looks up the replica DSN for a database name. Matching is exact;
// a missing entry is a configuration failure.
func (r *Resolver) Resolve(name string) (Target, error) {
	dsn, ok := r.replicas[name]
	if !ok {
		return Target{}, fmt.Errorf("no replica configured for database %q", name)
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return Target{}, fmt.Errorf("invalid replica DSN for database %q: %w", name, err)
	}

	host, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		host, port = cfg.Addr, "3306"
	}

	return Target{
		Name:     name,
		Host:     host,
		Port:     port,
		User:     cfg.User,
		Password: cfg.Passwd,
		DSN:      dsn,
	}, nil
}

// Acquire validates the connection up to Attempts times, sleeping a fixed
// Backoff between failures. Exhausting the attempts escalates to a fatal
// error; there is no resumption beyond this retry.
func (r *Resolver) Acquire(ctx context.Context, target Target) error {
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		err := r.Ping(ctx, target.DSN)
		if err == nil {
			r.log.Info().Str("database", target.Name).Str("host", target.Host).Msg("connected to replica")
			return nil
		}
		r.log.Warn().Err(err).Str("database", target.Name).Int("attempt", attempt).Msg("connection attempt failed")

		if attempt == r.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Backoff):
		}
	}
	return fmt.Errorf("could not connect to replica for database %q after %d attempts", target.Name, r.Attempts)
}

func sqlPing(ctx context.Context, dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}
