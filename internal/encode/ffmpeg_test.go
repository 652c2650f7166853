// SPDX-License-Identifier: MIT
package encode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"slices"
	"strings"
	"testing"

	"specviz/internal/config"
)

func TestArgs(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Encode.Output = "out.mp4"
	o := OptionsFromConfig(cfg, "song.flac")

	got := strings.Join(Args(o), " ")
	want := "-hide_banner -loglevel error -f rawvideo -pix_fmt rgba -s 1600x900 -r 60 -i - " +
		"-i song.flac -c:v libx264 -pix_fmt yuv420p -crf 18 -c:a aac -shortest -y out.mp4"
	if got != want {
		t.Errorf("Args =\n%s\nwant\n%s", got, want)
	}
}

func TestArgsSilentVideo(t *testing.T) {
	args := Args(Options{Width: 2, Height: 2, FPS: 30, Output: "x.mkv", ExtraArgs: []string{"-preset", "fast"}})
	if slices.Contains(args, "-shortest") || slices.Contains(args, "-c:a") || slices.Contains(args, "-crf") {
		t.Errorf("unexpected audio or crf flags: %v", args)
	}
	n := len(args)
	if args[n-4] != "-preset" || args[n-2] != "-y" || args[n-1] != "x.mkv" {
		t.Errorf("extra args should precede the output: %v", args)
	}
}

func TestNewVideoSinkErrors(t *testing.T) {
	orig := lookPath
	defer func() { lookPath = orig }()
	lookPath = func(string) (string, error) { return "", errors.New("missing") }

	ctx := context.Background()
	if _, err := NewVideoSink(ctx, Options{Width: 2, Height: 2, FPS: 1, Output: "a.mp4"}); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("expected ErrFFmpegNotFound, got %v", err)
	}
	if _, err := NewVideoSink(ctx, Options{Width: 0, Height: 2, FPS: 1, Output: "a.mp4"}); err == nil {
		t.Error("expected geometry error")
	}
	if _, err := NewVideoSink(ctx, Options{Width: 2, Height: 2, FPS: 1}); err == nil {
		t.Error("expected missing output error")
	}
}

func TestWriteRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}

	var buf bytes.Buffer
	if err := writeRGBA(&buf, img); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), img.Pix) {
		t.Error("contiguous frame not written verbatim")
	}

	// A sub-image has a wider stride than its width.
	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)
	buf.Reset()
	if err := writeRGBA(&buf, sub); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 2*2*4 {
		t.Fatalf("wrote %d bytes, want 16", buf.Len())
	}
	if buf.Bytes()[0] != img.Pix[img.PixOffset(1, 1)] || buf.Bytes()[8] != img.Pix[img.PixOffset(1, 2)] {
		t.Error("sub-image rows written from the wrong offsets")
	}
}
