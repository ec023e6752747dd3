package main

import (
	"testing"
	"time"
)

func TestParseManifest(t *testing.T) {
	clips, err := parseManifest([]byte(`
- storage_path: videos/a.mp4
  title: A
  duration: 45s
- storage_path: videos/b.mp4
`))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("ожидали 2 ролика, получили %d", len(clips))
	}
	if clips[0].Duration != 45*time.Second || clips[0].Title != "A" {
		t.Fatalf("неожиданный первый ролик: %+v", clips[0])
	}
	if clips[1].Duration != 0 {
		t.Fatalf("длительность без значения должна остаться нулевой: %v", clips[1].Duration)
	}

	if _, err := parseManifest([]byte("- title: no path\n")); err == nil {
		t.Fatal("ожидали ошибку без storage_path")
	}
	if _, err := parseManifest([]byte("- storage_path: x\n  duration: soon\n")); err == nil {
		t.Fatal("ожидали ошибку разбора длительности")
	}
}

func TestDefaultClips(t *testing.T) {
	clips := defaultClips()
	if len(clips) != 2 {
		t.Fatalf("ожидали 2 встроенных ролика, получили %d", len(clips))
	}
	for _, c := range clips {
		if c.StoragePath == "" || c.Duration != 30*time.Second {
			t.Fatalf("неожиданный ролик: %+v", c)
		}
	}
}
