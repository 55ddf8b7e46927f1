package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"
	"time"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func seedImage(t *testing.T, repo *fakeRepo, blobs *fakeBlobs, width, height int) Object {
	t.Helper()
	data := pngBytes(t, width, height)
	original := repo.seed(t, Object{
		Filename:    "photo.png",
		ContentType: "image/png",
		SizeBytes:   int64(len(data)),
	})
	blobs.put(original.Filename, data)
	return original
}

func TestDeriveImageCreatesLinkedPreview(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobs()
	deriver := NewDeriver(repo, blobs, "ffmpeg")

	original := seedImage(t, repo, blobs, 600, 400)

	preview, err := deriver.Derive(context.Background(), original)
	if err != nil {
		t.Fatalf("Derive returned error: %v", err)
	}

	if !preview.IsPreview {
		t.Fatalf("expected preview object")
	}
	if preview.OriginalID == nil || *preview.OriginalID != original.ID {
		t.Fatalf("expected preview linked to original")
	}
	if preview.ContentType != "image/jpeg" {
		t.Fatalf("expected jpeg preview, got %s", preview.ContentType)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(blobs.bytes(preview.Filename)))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if w := decoded.Bounds().Dx(); w != imagePreviewWidth {
		t.Fatalf("expected preview width %d, got %d", imagePreviewWidth, w)
	}

	updated, err := repo.Get(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("Get original: %v", err)
	}
	if updated.PreviewState != PreviewReady {
		t.Fatalf("expected preview state %q, got %q", PreviewReady, updated.PreviewState)
	}
}

func TestDeriveDoesNotUpscaleSmallImages(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobs()
	deriver := NewDeriver(repo, blobs, "ffmpeg")

	original := seedImage(t, repo, blobs, 120, 80)

	preview, err := deriver.Derive(context.Background(), original)
	if err != nil {
		t.Fatalf("Derive returned error: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(blobs.bytes(preview.Filename)))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if w := decoded.Bounds().Dx(); w != 120 {
		t.Fatalf("expected width preserved at 120, got %d", w)
	}
}

func TestDeriveSkipsUnsupportedContentTypes(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobs()
	deriver := NewDeriver(repo, blobs, "ffmpeg")

	original := repo.seed(t, Object{Filename: "notes.txt", ContentType: "text/plain"})
	blobs.put(original.Filename, []byte("just text"))

	if _, err := deriver.Derive(context.Background(), original); err != ErrNotDerivable {
		t.Fatalf("expected ErrNotDerivable, got %v", err)
	}

	if repo.previewCount(original.ID) != 0 {
		t.Fatalf("expected no preview for unsupported type")
	}

	updated, _ := repo.Get(context.Background(), original.ID)
	if updated.PreviewState != PreviewSkipped {
		t.Fatalf("expected preview state %q, got %q", PreviewSkipped, updated.PreviewState)
	}
}

func TestDeriveReusesExistingPreview(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobs()
	deriver := NewDeriver(repo, blobs, "ffmpeg")

	original := seedImage(t, repo, blobs, 600, 400)

	first, err := deriver.Derive(context.Background(), original)
	if err != nil {
		t.Fatalf("first Derive returned error: %v", err)
	}

	second, err := deriver.Derive(context.Background(), original)
	if err != nil {
		t.Fatalf("second Derive returned error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected the stored preview to be reused")
	}
	if n := repo.previewCount(original.ID); n != 1 {
		t.Fatalf("expected exactly one preview, got %d", n)
	}
}

func TestConcurrentDeriveProducesExactlyOnePreview(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobs()
	deriver := NewDeriver(repo, blobs, "ffmpeg")

	original := seedImage(t, repo, blobs, 600, 400)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = deriver.Derive(context.Background(), original)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d returned error: %v", i, err)
		}
	}
	if n := repo.previewCount(original.ID); n != 1 {
		t.Fatalf("expected exactly one preview under concurrency, got %d", n)
	}
}

func TestDeriveAbortsWhenOriginalDeletedMidway(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobs()
	deriver := NewDeriver(repo, blobs, "ffmpeg")

	original := seedImage(t, repo, blobs, 600, 400)

	// simulate the admin deleting the original while derivation runs: the
	// record disappears after the claim but before the final write
	repo.mu.Lock()
	claimed := original
	claimed.PreviewState = PreviewProcessing
	repo.records[original.ID] = claimed
	repo.mu.Unlock()

	if _, err := repo.Delete(context.Background(), original.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := deriver.generate(context.Background(), original); err != ErrMediaNotFound {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}

	if got := blobs.bytes(original.Filename + "_thumb.jpg"); got != nil {
		t.Fatalf("expected orphaned preview blob to be removed")
	}
}

func TestWorkerIsolatesPerObjectFailures(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobs()
	deriver := NewDeriver(repo, blobs, "ffmpeg")
	worker := NewWorker(deriver, repo)

	good1 := seedImage(t, repo, blobs, 400, 300)
	bad := repo.seed(t, Object{Filename: "broken.png", ContentType: "image/png"})
	blobs.put(bad.Filename, []byte("not an image"))
	good2 := seedImage(t, repo, blobs, 500, 300)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	worker.Enqueue(good1.ID)
	worker.Enqueue(bad.ID)
	worker.Enqueue(good2.ID)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if repo.previewCount(good1.ID) == 1 && repo.previewCount(good2.ID) == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if repo.previewCount(good1.ID) != 1 || repo.previewCount(good2.ID) != 1 {
		t.Fatalf("expected previews for both good objects")
	}
	if repo.previewCount(bad.ID) != 0 {
		t.Fatalf("expected no preview for the corrupt object")
	}

	updated, _ := repo.Get(context.Background(), bad.ID)
	if updated.PreviewState != PreviewFailed {
		t.Fatalf("expected failed state for corrupt object, got %q", updated.PreviewState)
	}

	worker.Stop()
}
