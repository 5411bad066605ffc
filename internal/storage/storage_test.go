package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/membersync/internal/config"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		suffix string
	}{
		{"plain", "members.csv", "-members.csv"},
		{"path is stripped", "../../etc/passwd", "-passwd"},
		{"windows path", `C:\Users\ana\Feb 2026.xlsx`, "-Feb_2026.xlsx"},
		{"nothing usable", "...", "-upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objectName(tt.input)
			assert.True(t, strings.HasSuffix(got, tt.suffix), "objectName(%q) = %q", tt.input, got)
			assert.NotContains(t, got, "/")
		})
	}

	assert.NotEqual(t, objectName("a.csv"), objectName("a.csv"))
}

func TestLocal_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(filepath.Join(dir, "imports"))
	require.NoError(t, err)

	path, err := l.Save(context.Background(), "members.csv", []byte("memberNumber\n1\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "memberNumber\n1\n", string(data))

	require.NoError(t, l.Delete(context.Background(), path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine.
	assert.NoError(t, l.Delete(context.Background(), path))
}

func TestLocal_DeleteOutsideDir(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	assert.Error(t, l.Delete(context.Background(), outside))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestLocal_SaveHonoursCancelledContext(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Save(ctx, "a.csv", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeS3 struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_SaveAndDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	s := newS3(fake, "club-uploads", "imports")

	path, err := s.Save(context.Background(), "feb.xlsx", []byte("PK"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "s3://club-uploads/imports/"), path)
	assert.Len(t, fake.objects, 1)

	require.NoError(t, s.Delete(context.Background(), path))
	assert.Empty(t, fake.objects)

	assert.Error(t, s.Delete(context.Background(), "s3://other-bucket/imports/x"))
}

func TestS3_SaveError(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, putErr: errors.New("access denied")}
	s := newS3(fake, "club-uploads", "")

	_, err := s.Save(context.Background(), "feb.csv", []byte("x"))
	assert.ErrorContains(t, err, "access denied")
}

func TestNew_SelectsBackend(t *testing.T) {
	fs, err := New(context.Background(), config.StorageConfig{Backend: "local", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, fs)

	_, err = New(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}
