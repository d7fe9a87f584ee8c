package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	tenants []string
}

func (r *recorder) reindex(ctx context.Context, tenant string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants = append(r.tenants, tenant)
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tenants...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_DebouncesPerTenant(t *testing.T) {
	root := t.TempDir()
	diseases := filepath.Join(root, "demo_hospital", "diseases")
	if err := os.MkdirAll(diseases, 0755); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := NewWatcher(root, []string{".txt"}, rec.reindex, WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(diseases, "asthma.txt"), []byte("Asthma basics."), 0644); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return len(rec.snapshot()) >= 1 })
	time.Sleep(300 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "demo_hospital" {
		t.Errorf("reindexed tenants = %v, want [demo_hospital]", got)
	}
}

func TestWatcher_IgnoresUnmatchedExtensions(t *testing.T) {
	root := t.TempDir()
	tenantDir := filepath.Join(root, "clinic")
	if err := os.MkdirAll(tenantDir, 0755); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := NewWatcher(root, []string{".txt"}, rec.reindex, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(tenantDir, "notes.xyz"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("unexpected reindex: %v", got)
	}
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	w := NewWatcher(root, []string{".md"}, rec.reindex, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	wellness := filepath.Join(root, "new_clinic", "wellness")
	if err := os.MkdirAll(wellness, 0755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.snapshot()) >= 1 })

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(wellness, "sleep.md"), []byte("Sleep well."), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.snapshot()) >= 2 })
	for _, tenant := range rec.snapshot() {
		if tenant != "new_clinic" {
			t.Errorf("unexpected tenant %q", tenant)
		}
	}
}

func TestWatcher_StopCancelsPending(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "clinic"), 0755); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := NewWatcher(root, nil, rec.reindex, WithDebounce(time.Hour))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "clinic", "disclaimers.txt"), []byte("Review."), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return w.Pending() == 1 })
	w.Stop()
	if w.Pending() != 0 {
		t.Errorf("pending after stop = %d", w.Pending())
	}
	w.Stop()
}

func TestTenantOf(t *testing.T) {
	w := NewWatcher("/kb", nil, nil)
	tests := []struct {
		path   string
		tenant string
		ok     bool
	}{
		{"/kb/demo_hospital/diseases/flu.txt", "demo_hospital", true},
		{"/kb/demo_hospital/disclaimers.txt", "demo_hospital", true},
		{"/kb/readme.txt", "", false},
		{"/kb", "", false},
		{"/elsewhere/a/b.txt", "", false},
		{"/kb/.git/config", "", false},
	}
	for _, tt := range tests {
		tenant, ok := w.tenantOf(tt.path)
		if tenant != tt.tenant || ok != tt.ok {
			t.Errorf("tenantOf(%q) = (%q, %v), want (%q, %v)", tt.path, tenant, ok, tt.tenant, tt.ok)
		}
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{"txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}
