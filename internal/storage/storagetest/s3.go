package storagetest

import (
	"net/http/httptest"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// NewS3Server runs an in-memory S3-compatible endpoint and returns its URL.
// Buckets are created by the client under test.
func NewS3Server(t testing.TB) string {
	t.Helper()
	faker := gofakes3.New(s3mem.New())
	server := httptest.NewServer(faker.Server())
	t.Cleanup(server.Close)
	return server.URL
}
