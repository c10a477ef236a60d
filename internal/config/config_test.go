package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesUploadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: ":9000"
upload:
  storage_root: /tmp/prok-uploads
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPPort)
	assert.Equal(t, "/tmp/prok-uploads", cfg.Upload.StorageRoot)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxContentLength)
	assert.Equal(t, Size{Width: 400, Height: 400}, cfg.Upload.PrimarySize)
	assert.Equal(t, Size{Width: 150, Height: 150}, cfg.Upload.ThumbnailSize)
	assert.Equal(t, 85, cfg.Upload.CompressionQuality)
	assert.Equal(t, "img_", cfg.Upload.SecureFilenamePrefix)
	assert.Equal(t, []string{"profile"}, cfg.Upload.PublicSubfolders)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
upload:
  storage_root: ./data
  max_content_length: 1024
  compression_quality: 70
  secure_filename_prefix: pic_
  primary_size:
    width: 800
    height: 600
  public_subfolders: [profile, posts]
kafka:
  enabled: true
  brokers: ["localhost:9092"]
  topic: media
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(1024), cfg.Upload.MaxContentLength)
	assert.Equal(t, 70, cfg.Upload.CompressionQuality)
	assert.Equal(t, "pic_", cfg.Upload.SecureFilenamePrefix)
	assert.Equal(t, Size{Width: 800, Height: 600}, cfg.Upload.PrimarySize)
	assert.Equal(t, []string{"profile", "posts"}, cfg.Upload.PublicSubfolders)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsInvalidUpload(t *testing.T) {
	path := writeConfig(t, `
upload:
  compression_quality: 140
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compression_quality")
}

func TestUploadValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(u *Upload)
		wantErr bool
	}{
		{name: "defaults", mutate: func(u *Upload) {}},
		{name: "empty root", mutate: func(u *Upload) { u.StorageRoot = "" }, wantErr: true},
		{name: "no extensions", mutate: func(u *Upload) { u.AllowedExtensions = nil }, wantErr: true},
		{name: "zero ceiling", mutate: func(u *Upload) { u.MaxContentLength = 0 }, wantErr: true},
		{name: "zero thumbnail", mutate: func(u *Upload) { u.ThumbnailSize = Size{} }, wantErr: true},
		{name: "prefix with slash", mutate: func(u *Upload) { u.SecureFilenamePrefix = "a/b" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := DefaultUpload()
			tt.mutate(&u)
			err := u.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	n := DatabaseNode{Host: "db", Port: "5432", User: "u", Pass: "p", Name: "prok", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/prok?sslmode=disable", n.DSN())
}
