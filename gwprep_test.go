package gwprep

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const payload = "# strain\n1.5e-21\n-2.0e-21\n"

func TestDetectCompression(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	w.Write([]byte(payload))
	w.Close()

	var zl bytes.Buffer
	zw := zlib.NewWriter(&zl)
	zw.Write([]byte(payload))
	zw.Close()

	for _, v := range []struct {
		Input    []byte
		Expected Compression
	}{
		{gz.Bytes(), CompressionGzip},
		{zl.Bytes(), CompressionZ},
		{[]byte(payload), CompressionNone},
		{[]byte("1"), CompressionNone},
		{[]byte{0x42, 0x5a, 0x68, 0x39}, CompressionBZip2},
	} {
		got, err := DetectCompression(bufio.NewReader(bytes.NewReader(v.Input)))
		if err != nil {
			t.Fatal(err)
		}
		if got != v.Expected {
			t.Fatalf("\nGot %v\nExpected %v\n", got, v.Expected)
		}
	}
}

func TestMaybeDecompress(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	w.Write([]byte(payload))
	w.Close()

	for _, input := range [][]byte{gz.Bytes(), []byte(payload)} {
		rc, _, err := MaybeDecompress(bytes.NewReader(input))
		if err != nil {
			t.Fatal(err)
		}
		got, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		rc.Close()

		if string(got) != payload {
			t.Fatalf("\nGot %q\nExpected %q\n", got, payload)
		}
	}
}

func TestOpenDecompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strain.txt.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := gzip.NewWriter(f)
	w.Write([]byte(payload))
	w.Close()
	f.Close()

	rc, err := OpenDecompressed(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != payload {
		t.Fatalf("\nGot %q\nExpected %q\n", got, payload)
	}

	if _, err := OpenDecompressed(context.Background(), "gs://bucket/strain.txt", nil); err == nil {
		t.Fatalf("Expected an error opening gs:// without a client")
	}
}

func TestSplitGoogleStoragePath(t *testing.T) {
	bucket, object, err := SplitGoogleStoragePath("gs://gwosc/O3a/H1/strain.txt.gz")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "gwosc" || object != "O3a/H1/strain.txt.gz" {
		t.Fatalf("Unexpected split %q %q", bucket, object)
	}

	for _, bad := range []string{"gs://gwosc", "gs:///x", "gs://gwosc/"} {
		if _, _, err := SplitGoogleStoragePath(bad); err == nil {
			t.Fatalf("Expected an error for %q", bad)
		}
	}
}

func TestDetermineDelimiter(t *testing.T) {
	for _, v := range []struct {
		Input    string
		Expected rune
	}{
		{"time,h_plus,h_cross\n0,1,2\n1,2,3\n", ','},
		{"time\th_plus\th_cross\n0\t1\t2\n1\t2\t3\n", '\t'},
		{"time h_plus h_cross\n0 1 2\n1 2 3\n", Whitespace},
	} {
		br := bufio.NewReader(strings.NewReader(v.Input))
		if got := DetermineDelimiter(br); got != v.Expected {
			t.Fatalf("\nInput %q\nGot %q\nExpected %q\n", v.Input, got, v.Expected)
		}

		// The reader must not have been consumed.
		rest, _ := io.ReadAll(br)
		if string(rest) != v.Input {
			t.Fatalf("DetermineDelimiter consumed input")
		}
	}
}

func TestExpandHome(t *testing.T) {
	if got := ExpandHome("/data/strain.txt"); got != "/data/strain.txt" {
		t.Fatalf("Absolute path changed to %q", got)
	}
	if got := ExpandHome("~/strain.txt"); strings.HasPrefix(got, "~") {
		t.Fatalf("Home directory not expanded: %q", got)
	}
}

func TestStorageClientForLocalPaths(t *testing.T) {
	client, err := StorageClientFor(context.Background(), "/tmp/a.txt", "~/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if client != nil {
		t.Errorf("Expected no client for local paths")
	}
}
