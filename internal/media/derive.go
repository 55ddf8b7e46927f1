package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"os"
	"os/exec"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/ansard/weddingbook/internal/metrics"
)

const (
	imagePreviewWidth  = 300
	videoPreviewWidth  = 320
	previewJPEGQuality = 75

	// frame extraction point; ffmpeg clamps shorter clips to their last frame
	videoFrameSeek = "00:00:01.000"

	// how long a losing claimant waits for the winner's preview
	previewWaitAttempts = 10
	previewWaitInterval = 200 * time.Millisecond
)

// Deriver produces reduced-size preview objects from originals.
type Deriver struct {
	repo       metadataStore
	blobs      blobStore
	ffmpegPath string
}

// NewDeriver constructs a derivation engine.
func NewDeriver(repo metadataStore, blobs blobStore, ffmpegPath string) *Deriver {
	return &Deriver{repo: repo, blobs: blobs, ffmpegPath: ffmpegPath}
}

// Derive returns the preview for an original, producing and storing it when
// missing. Unsupported content types yield ErrNotDerivable and are marked
// skipped so they are never attempted again. Concurrent calls for the same
// original are serialized through a compare-and-set claim: exactly one caller
// generates, the rest wait for its result.
func (d *Deriver) Derive(ctx context.Context, original Object) (Object, error) {
	if !original.Derivable() {
		if !original.IsPreview {
			_ = d.repo.SetPreviewState(ctx, original.ID, PreviewSkipped)
		}
		return Object{}, ErrNotDerivable
	}

	if preview, err := d.repo.PreviewFor(ctx, original.ID); err == nil {
		return preview, nil
	}

	claimed, err := d.repo.ClaimPreview(ctx, original.ID)
	if err != nil {
		return Object{}, err
	}
	if !claimed {
		return d.awaitPreview(ctx, original.ID)
	}

	preview, err := d.generate(ctx, original)
	if err != nil {
		metrics.DerivationsTotal.WithLabelValues("failed").Inc()
		_ = d.repo.SetPreviewState(ctx, original.ID, PreviewFailed)
		return Object{}, err
	}

	metrics.DerivationsTotal.WithLabelValues("ok").Inc()
	_ = d.repo.SetPreviewState(ctx, original.ID, PreviewReady)
	return preview, nil
}

// awaitPreview polls for the preview produced by the claim holder.
func (d *Deriver) awaitPreview(ctx context.Context, originalID uuid.UUID) (Object, error) {
	for i := 0; i < previewWaitAttempts; i++ {
		select {
		case <-ctx.Done():
			return Object{}, ctx.Err()
		case <-time.After(previewWaitInterval):
		}
		if preview, err := d.repo.PreviewFor(ctx, originalID); err == nil {
			return preview, nil
		}
	}
	return Object{}, fmt.Errorf("preview for %s not produced in time", originalID)
}

func (d *Deriver) generate(ctx context.Context, original Object) (Object, error) {
	var frame []byte
	var err error
	if original.IsImage() {
		frame, err = d.imageFrame(ctx, original)
	} else {
		frame, err = d.videoFrame(ctx, original)
	}
	if err != nil {
		return Object{}, err
	}

	filename := original.Filename + "_thumb.jpg"
	if err := d.blobs.Put(ctx, filename, bytes.NewReader(frame), int64(len(frame)), "image/jpeg"); err != nil {
		return Object{}, fmt.Errorf("store preview blob: %w", err)
	}

	// the original may have been deleted while we were transcoding; do not
	// record a preview for an object that is gone
	exists, err := d.repo.Exists(ctx, original.ID)
	if err != nil || !exists {
		_ = d.blobs.Remove(ctx, filename)
		if err != nil {
			return Object{}, err
		}
		return Object{}, ErrMediaNotFound
	}

	originalID := original.ID
	stored, err := d.repo.Create(ctx, Object{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFilename: original.OriginalFilename,
		ContentType:      "image/jpeg",
		SizeBytes:        int64(len(frame)),
		Uploader:         original.Uploader,
		IsPreview:        true,
		OriginalID:       &originalID,
		PreviewState:     PreviewSkipped,
	})
	if err != nil {
		_ = d.blobs.Remove(ctx, filename)
		return Object{}, err
	}
	return stored, nil
}

// imageFrame decodes the original and re-encodes it as a width-capped JPEG.
func (d *Deriver) imageFrame(ctx context.Context, original Object) ([]byte, error) {
	reader, err := d.blobs.Get(ctx, original.Filename)
	if err != nil {
		return nil, fmt.Errorf("fetch original blob: %w", err)
	}
	defer reader.Close()

	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if img.Bounds().Dx() > imagePreviewWidth {
		img = resize.Resize(imagePreviewWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: previewJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// videoFrame copies the original to scratch storage and extracts one frame
// near the one-second mark via ffmpeg. Scratch files are removed
// unconditionally.
func (d *Deriver) videoFrame(ctx context.Context, original Object) ([]byte, error) {
	input, err := os.CreateTemp("", original.ID.String()+"-*.bin")
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	inputPath := input.Name()
	outputPath := inputPath + "_thumb.jpg"
	defer func() {
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			log.Printf("media: remove scratch %s: %v", inputPath, err)
		}
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			log.Printf("media: remove scratch %s: %v", outputPath, err)
		}
	}()

	reader, err := d.blobs.Get(ctx, original.Filename)
	if err != nil {
		input.Close()
		return nil, fmt.Errorf("fetch original blob: %w", err)
	}
	_, copyErr := io.Copy(input, reader)
	reader.Close()
	if closeErr := input.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return nil, fmt.Errorf("spool video to scratch: %w", copyErr)
	}

	if err := d.extractFrame(ctx, inputPath, outputPath, videoFrameSeek); err != nil {
		// clips shorter than the seek point produce no frame; retry at the start
		if err := d.extractFrame(ctx, inputPath, outputPath, "00:00:00.000"); err != nil {
			return nil, err
		}
	}

	frame, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("extracted frame is empty")
	}
	return frame, nil
}

func (d *Deriver) extractFrame(ctx context.Context, inputPath, outputPath, seek string) error {
	// -2 keeps the scaled height divisible by two, which jpeg/yuv needs
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-y",
		"-ss", seek,
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", videoPreviewWidth),
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}
	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no frame at %s", seek)
	}
	return nil
}

func lastLine(s string) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(s)), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
