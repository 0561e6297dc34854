package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	content := []byte(`
database: appdb
replicas:
  appdb: "backup:secret@tcp(replica1:3306)/"
staging_dir: /var/lib/xbagent/staging
interval: 2h
retention:
  local: 24h
  remote: 720h
runner:
  container: percona-xtrabackup
s3:
  region: eu-west-1
  bucket: db-backups
  prefix: mysql
  access_key_id: key
  secret_access_key: secret
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(configFile, content, 0o640))

	cfg, err := New(configFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "appdb", cfg.Database)
	assert.Equal(t, "backup:secret@tcp(replica1:3306)/", cfg.Replicas["appdb"])
	assert.Equal(t, 2*time.Hour, cfg.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Retention.Local)
	assert.Equal(t, 720*time.Hour, cfg.Retention.Remote)
	assert.Equal(t, "percona-xtrabackup", cfg.Runner.Container)
	assert.Equal(t, "db-backups", cfg.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Defaults for keys the file leaves out
	assert.Equal(t, "stdout", cfg.Log.Path)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:   "appdb",
			Replicas:   map[string]string{"appdb": "u:p@tcp(h:3306)/"},
			StagingDir: "/tmp/staging",
			Interval:   time.Hour,
			Retention:  RetentionConfig{Local: 24 * time.Hour, Remote: 720 * time.Hour},
			S3:         S3Config{Bucket: "b", Region: "r"},
		}
	}

	assert.NoError(t, valid().Validate())

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database", func(c *Config) { c.Database = "" }},
		{"no replicas", func(c *Config) { c.Replicas = nil }},
		{"missing staging dir", func(c *Config) { c.StagingDir = "" }},
		{"zero interval", func(c *Config) { c.Interval = 0 }},
		{"zero local retention", func(c *Config) { c.Retention.Local = 0 }},
		{"zero remote retention", func(c *Config) { c.Retention.Remote = 0 }},
		{"missing bucket", func(c *Config) { c.S3.Bucket = "" }},
		{"missing region", func(c *Config) { c.S3.Region = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
