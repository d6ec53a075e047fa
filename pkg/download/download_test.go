package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/instaprobe/pkg/httpcache"
)

func TestPath(t *testing.T) {
	tests := []struct {
		username, shortcode string
		index               int
		want                string
	}{
		{"ada", "ABC", 1, filepath.Join("imgs", "ada_ABC.jpg")},
		{"ada", "", 3, filepath.Join("imgs", "ada_3.jpg")},
		{"a.b", "x/../y", 1, filepath.Join("imgs", "a.b_x_.._y.jpg")},
	}
	for _, tt := range tests {
		if got := Path("imgs", tt.username, tt.shortcode, tt.index); got != tt.want {
			t.Errorf("Path(%q, %q, %d) = %q, want %q", tt.username, tt.shortcode, tt.index, got, tt.want)
		}
	}
}

func TestImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("\xff\xd8jpeg"))
	}))
	defer srv.Close()

	client := httpcache.NewClient(httpcache.WithBaseDelay(time.Millisecond))
	dir := filepath.Join(t.TempDir(), "nested", "images")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}

	dest := Path(dir, "ada", "S1", 1)
	data, err := Image(context.Background(), client, srv.URL+"/ok.jpg", dest)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	onDisk, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(onDisk) != "\xff\xd8jpeg" || string(data) != string(onDisk) {
		t.Errorf("saved %q, returned %q", onDisk, data)
	}

	missing := Path(dir, "ada", "S2", 2)
	if _, err := Image(context.Background(), client, srv.URL+"/missing.jpg", missing); err == nil {
		t.Fatal("Image succeeded for 404")
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Errorf("failed download left a file: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the saved image", len(entries))
	}
}
