package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/logicossoftware/go-hssp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>Hello, world!</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "guide.md"), bytes.Repeat([]byte("# guide\n"), 50), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("h"), 0o444))
	mod := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "index.html"), mod, mod))
	return root
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || p == root {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		if info.IsDir() {
			out[filepath.ToSlash(rel)+"/"] = ""
			return nil
		}
		b, err := os.ReadFile(p)
		out[filepath.ToSlash(rel)] = string(b)
		return err
	}))
	return out
}

func TestCollectTree(t *testing.T) {
	root := writeSampleTree(t)
	files, err := collectTree(root)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{".hidden", "docs", "docs/guide.md", "docs/img", "index.html"}, paths)
	assert.True(t, files[0].Attributes.IsHidden)
	assert.True(t, files[0].Attributes.IsReadOnly)
	assert.True(t, files[1].Attributes.IsDirectory)
	assert.Equal(t, uint16(0o600), files[2].Attributes.Permissions)
	assert.Equal(t, 2020, files[4].Attributes.Modified.Year())
}

func TestWriteTree_RejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"../evil", "/abs/path", "a/../../b"} {
		_, err := writeTree(dir, []hssp.File{hssp.NewFile(p, []byte("x"))})
		require.Error(t, err, p)
	}
}

func TestPackUnpack(t *testing.T) {
	src := writeSampleTree(t)
	work := t.TempDir()
	archive := filepath.Join(work, "site.hssp")

	out, err := run(t, "pack", src, "-o", archive, "--compression", "zstd", "--password", "pw", "--comment", "site", "--main", "index.html")
	require.NoError(t, err)
	assert.Contains(t, out, "Packed 5 entries")

	_, err = run(t, "unpack", archive, "-o", filepath.Join(work, "nopw"))
	require.ErrorIs(t, err, hssp.ErrMissingPassword)

	dst := filepath.Join(work, "out")
	out, err = run(t, "unpack", archive, "-o", dst, "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Extracted 3 files")
	assert.Equal(t, readTree(t, src), readTree(t, dst))

	info, err := os.Stat(filepath.Join(dst, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, 2020, info.ModTime().Year())

	buf, err := os.ReadFile(archive)
	require.NoError(t, err)
	arc, err := hssp.Parse(buf, hssp.WithReadPassword("pw"))
	require.NoError(t, err)
	assert.Equal(t, "site", arc.Report.Comment)
	assert.Equal(t, "zstd", arc.Report.Compression)
	for _, f := range arc.Files {
		assert.Equal(t, f.Path == "index.html", f.Attributes.IsMainFile, f.Path)
	}
}

func TestPack_LegacyVersion(t *testing.T) {
	src := writeSampleTree(t)
	archive := filepath.Join(t.TempDir(), "old.hssp")
	_, err := run(t, "pack", src, "-o", archive, "--version", "1")
	require.NoError(t, err)

	buf, err := os.ReadFile(archive)
	require.NoError(t, err)
	v, err := hssp.DetectVersion(buf)
	require.NoError(t, err)
	assert.Equal(t, hssp.VersionV1, v)

	_, err = run(t, "pack", src, "-o", archive, "--version", "2", "--compression", "gzip")
	require.ErrorIs(t, err, hssp.ErrValidation)

	_, err = run(t, "pack", src, "-o", archive, "--main", "missing.txt")
	require.Error(t, err)
}

func TestPackSplitJoin(t *testing.T) {
	src := writeSampleTree(t)
	work := t.TempDir()
	prefix := filepath.Join(work, "set.hssp")

	out, err := run(t, "pack", src, "-o", prefix, "--split", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "3 volumes")

	vols := []string{prefix + ".001", prefix + ".002", prefix + ".003"}
	for _, v := range vols {
		require.FileExists(t, v)
	}

	dst := filepath.Join(work, "joined")
	_, err = run(t, append([]string{"join", "-o", dst}, vols...)...)
	require.NoError(t, err)
	assert.Equal(t, readTree(t, src), readTree(t, dst))

	_, err = run(t, "join", "-o", dst, vols[0], vols[2])
	require.ErrorIs(t, err, hssp.ErrBrokenChain)
}

func TestPackSplitSingleVolume(t *testing.T) {
	src := writeSampleTree(t)
	work := t.TempDir()
	prefix := filepath.Join(work, "one.hssp")

	out, err := run(t, "pack", src, "-o", prefix, "--split", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 volumes")
	require.FileExists(t, prefix+".001")
	require.NoFileExists(t, prefix)

	raw, err := os.ReadFile(prefix + ".001")
	require.NoError(t, err)
	rep, err := hssp.Metadata(raw)
	require.NoError(t, err)
	assert.True(t, rep.Split.Split)
	assert.True(t, rep.Split.IsFirst)
	assert.True(t, rep.Split.IsLast)

	dst := filepath.Join(work, "joined")
	_, err = run(t, "join", "-o", dst, prefix+".001")
	require.NoError(t, err)
	assert.Equal(t, readTree(t, src), readTree(t, dst))

	_, err = run(t, "pack", src, "-o", prefix, "--split", "-2")
	require.ErrorIs(t, err, hssp.ErrInvalidFileCount)
}

func TestInspect(t *testing.T) {
	src := writeSampleTree(t)
	archive := filepath.Join(t.TempDir(), "a.hssp")
	_, err := run(t, "pack", src, "-o", archive, "--compression", "lz4", "--password", "pw")
	require.NoError(t, err)

	out, err := run(t, "inspect", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "Version:      v5 (flgd)")
	assert.Contains(t, out, "Encrypted:    yes")
	assert.Contains(t, out, "Compression:  lz4 (LZ4F)")
	assert.Contains(t, out, "Index:        unreadable")

	out, err = run(t, "inspect", archive, "--password", "pw", "--output", "json")
	require.NoError(t, err)
	var rep hssp.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.Password.Correct)
	assert.Len(t, rep.Entries, 5)
}

func TestVerify(t *testing.T) {
	src := writeSampleTree(t)
	archive := filepath.Join(t.TempDir(), "a.hssp")
	_, err := run(t, "pack", src, "-o", archive)
	require.NoError(t, err)

	out, err := run(t, "verify", archive)
	require.NoError(t, err)
	var res VerifyResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Valid)
	require.Len(t, res.Files, 5)
	assert.Len(t, res.Files[4].SHA256, 64)

	buf, err := os.ReadFile(archive)
	require.NoError(t, err)
	buf[len(buf)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(archive, buf, 0o644))

	out, err = run(t, "verify", archive)
	require.ErrorIs(t, err, errInvalidArchive)
	res = VerifyResult{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "invalid checksum")
	require.NotNil(t, res.Report)
	assert.False(t, res.Report.Checksum.Valid)
}

func TestConfigSources(t *testing.T) {
	src := writeSampleTree(t)
	work := t.TempDir()
	cfg := filepath.Join(work, "hssp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("compression: brotli\nlevel: 9\ncomment: from-config\n"), 0o644))
	t.Setenv("HSSP_PASSWORD", "env-secret")

	archive := filepath.Join(work, "a.hssp")
	_, err := run(t, "pack", src, "-o", archive, "--config", cfg)
	require.NoError(t, err)

	buf, err := os.ReadFile(archive)
	require.NoError(t, err)
	arc, err := hssp.Parse(buf, hssp.WithReadPassword("env-secret"))
	require.NoError(t, err)
	assert.Equal(t, "brotli", arc.Report.Compression)
	assert.Equal(t, "from-config", arc.Report.Comment)

	// Flags win over the config file.
	_, err = run(t, "pack", src, "-o", archive, "--config", cfg, "--compression", "gzip")
	require.NoError(t, err)
	buf, err = os.ReadFile(archive)
	require.NoError(t, err)
	rep, err := hssp.Metadata(buf)
	require.NoError(t, err)
	assert.Equal(t, "gzip", rep.Compression)

	_, err = run(t, "inspect", archive, "--config", filepath.Join(work, "missing.yaml"))
	require.Error(t, err)
}
