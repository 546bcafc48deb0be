package output

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Tags  map[string]int `json:"tags"`
}

func TestEncode(t *testing.T) {
	v := doc{Name: "a", Count: 1, Tags: map[string]int{"z": 1, "b": 2}}

	compact, err := Encode(v, true)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a","count":1,"tags":{"b":2,"z":1}}`, string(compact))

	indented, err := Encode(v, false)
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  \"name\": \"a\"")
}

func TestWriteJSONSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, false)
	require.NoError(t, err)
	defer w.Close()

	f, err := w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	assert.True(t, f.Changed)

	path := filepath.Join(dir, "stats.json")
	before, err := os.Stat(path)
	require.NoError(t, err)

	f, err = w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	assert.False(t, f.Changed, "identical content is not rewritten")
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())

	f, err = w.WriteJSON("stats.json", doc{Name: "b"}, false)
	require.NoError(t, err)
	assert.True(t, f.Changed)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"b"`)

	_, err = os.Stat(path + ArchiveExt)
	assert.True(t, os.IsNotExist(err), "no archive without compression")
}

func TestWriteJSONCompressed(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, true)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.WriteJSON("nested/matchups.json", doc{Name: "x", Count: 7}, true)
	require.NoError(t, err)

	plain, err := os.ReadFile(filepath.Join(dir, "nested", "matchups.json"))
	require.NoError(t, err)

	packed, err := os.ReadFile(filepath.Join(dir, "nested", "matchups.json"+ArchiveExt))
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	unpacked, err := dec.DecodeAll(packed, nil)
	require.NoError(t, err)
	assert.Equal(t, plain, unpacked)
}

func TestWriteJSONSkipsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, false)
	require.NoError(t, err)
	f, err := w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	assert.True(t, f.Changed)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(dir, ManifestName))
	require.NoError(t, err)

	w, err = NewWriter(dir, false)
	require.NoError(t, err)
	f, err = w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	assert.False(t, f.Changed)
	require.NoError(t, w.Close())
}

func TestWriteJSONAddsMissingArchive(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, false)
	require.NoError(t, err)
	_, err = w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = NewWriter(dir, true)
	require.NoError(t, err)
	defer w.Close()
	f, err := w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	assert.True(t, f.Changed, "archive was missing")
	_, err = os.Stat(filepath.Join(dir, "stats.json"+ArchiveExt))
	require.NoError(t, err)

	f, err = w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	assert.False(t, f.Changed)
}

func TestWriteJSONRewritesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, false)
	require.NoError(t, err)
	defer w.Close()
	_, err = w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "stats.json")))

	f, err := w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	assert.True(t, f.Changed)
}

func TestWriteJSONCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("{not json"), 0o644))
	w, err := NewWriter(dir, false)
	require.NoError(t, err)
	defer w.Close()
	f, err := w.WriteJSON("stats.json", doc{Name: "a"}, false)
	require.NoError(t, err)
	assert.True(t, f.Changed)
}

func TestWriteJSONEncodeError(t *testing.T) {
	w, err := NewWriter(t.TempDir(), false)
	require.NoError(t, err)
	_, err = w.WriteJSON("bad.json", make(chan int), false)
	assert.Error(t, err)
}

// ---- S3 publisher tests ----

type fakeS3 struct {
	existing map[string]bool
	headErr  error
	puts     map[string]string
	types    map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{existing: map[string]bool{}, puts: map[string]string{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.puts[key] = string(b)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if f.existing[aws.ToString(in.Key)] {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("{}"), 0o644))
	}
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.json", "a.json"+ArchiveExt, "b.json", "c.json")

	client := newFakeS3()
	client.existing["data/b.json"] = true
	p := NewS3Publisher(client, "bucket", "data/")

	n, err := p.Publish(context.Background(), dir, []File{
		{Name: "a.json", Changed: true},
		{Name: "b.json"},
		{Name: "c.json"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Contains(t, client.puts, "data/a.json")
	assert.Contains(t, client.puts, "data/a.json"+ArchiveExt)
	assert.NotContains(t, client.puts, "data/b.json", "unchanged and already remote")
	assert.Contains(t, client.puts, "data/c.json", "unchanged but missing remotely")
	assert.Equal(t, "application/json", client.types["data/a.json"])
	assert.Equal(t, "application/zstd", client.types["data/a.json"+ArchiveExt])
}

func TestPublishHeadError(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.json")

	client := newFakeS3()
	client.headErr = &smithy.GenericAPIError{Code: "AccessDenied"}
	p := NewS3Publisher(client, "bucket", "")

	_, err := p.Publish(context.Background(), dir, []File{{Name: "a.json"}})
	require.Error(t, err)
	assert.Empty(t, client.puts)
}

func TestPublishMissingFile(t *testing.T) {
	p := NewS3Publisher(newFakeS3(), "bucket", "")
	_, err := p.Publish(context.Background(), t.TempDir(), []File{{Name: "gone.json", Changed: true}})
	assert.Error(t, err)
}
