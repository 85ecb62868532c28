package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStorageKey(t *testing.T) {
	now := time.Date(2025, time.March, 7, 10, 0, 0, 0, time.UTC)
	key := BuildStorageKey("user-42", MimePDF, now)
	assert.Regexp(t, regexp.MustCompile(`^invoices/user-42/2025/03/[0-9a-f\-]{36}\.pdf$`), key)

	key = BuildStorageKey("../../etc", MimePNG, now)
	assert.Regexp(t, regexp.MustCompile(`^invoices/______etc/2025/03/[0-9a-f\-]{36}\.png$`), key)
}

func TestLocalStorageService_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorageService(t.TempDir(), "http://localhost:3000/files/")
	require.NoError(t, s.EnsureUploadDir())

	url, err := s.Save(ctx, "invoices/u1/2025/03/a.pdf", []byte("%PDF-1.4"), MimePDF)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/files/invoices/u1/2025/03/a.pdf", url)

	data, err := s.Open(ctx, "invoices/u1/2025/03/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)

	require.NoError(t, s.Delete(ctx, "invoices/u1/2025/03/a.pdf"))
	_, err = s.Open(ctx, "invoices/u1/2025/03/a.pdf")
	require.Error(t, err)

	// Deleting a missing file is not an error.
	require.NoError(t, s.Delete(ctx, "invoices/u1/2025/03/a.pdf"))
}

func TestLocalStorageService_RejectsEscapingKeys(t *testing.T) {
	s := NewLocalStorageService(t.TempDir(), "http://x")
	_, err := s.Save(context.Background(), "../outside.pdf", []byte("x"), MimePDF)
	require.Error(t, err)
}
