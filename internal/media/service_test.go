package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUploadStartsUnapproved(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobs()
	service := NewService(repo, blobs, 0)

	fileHeader := buildFileHeader(t, "files", "beach.jpg", "image/jpeg", []byte("jpeg-bytes"))

	stored, err := service.Upload(context.Background(), fileHeader, "Alice")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	if stored.Approved {
		t.Fatalf("expected freshly uploaded object to be unapproved")
	}
	if stored.IsPreview {
		t.Fatalf("expected original, got preview")
	}
	if stored.Uploader != "Alice" {
		t.Fatalf("unexpected uploader: %s", stored.Uploader)
	}
	if !strings.HasSuffix(stored.Filename, ".jpg") {
		t.Fatalf("expected stored filename to keep extension, got %s", stored.Filename)
	}
	if stored.Filename == "beach.jpg" {
		t.Fatalf("stored filename must not be the user-supplied name")
	}
	if got := blobs.bytes(stored.Filename); !bytes.Equal(got, []byte("jpeg-bytes")) {
		t.Fatalf("blob payload mismatch: %q", got)
	}
}

func TestUploadDefaultsUploaderToAnonymous(t *testing.T) {
	service := NewService(newFakeRepo(), newFakeBlobs(), 0)

	fileHeader := buildFileHeader(t, "files", "clip.mp4", "video/mp4", []byte("mp4"))
	stored, err := service.Upload(context.Background(), fileHeader, "  ")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if stored.Uploader != DefaultUploader {
		t.Fatalf("expected uploader %q, got %q", DefaultUploader, stored.Uploader)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	service := NewService(newFakeRepo(), newFakeBlobs(), 4)

	fileHeader := buildFileHeader(t, "files", "big.bin", "application/octet-stream", []byte("too large"))
	if _, err := service.Upload(context.Background(), fileHeader, ""); err != ErrFileTooLarge {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, newFakeBlobs(), 0)

	original := repo.seed(t, Object{ContentType: "image/jpeg"})

	first, err := service.Approve(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("first approve returned error: %v", err)
	}
	if !first.Approved {
		t.Fatalf("expected approved after first call")
	}

	second, err := service.Approve(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("second approve returned error: %v", err)
	}
	if !second.Approved {
		t.Fatalf("expected approved to stay true")
	}
}

func TestApproveUnknownIDIsNotFound(t *testing.T) {
	service := NewService(newFakeRepo(), newFakeBlobs(), 0)
	if _, err := service.Approve(context.Background(), uuid.New()); err != ErrMediaNotFound {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
}

func TestDeleteCascadesToPreview(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobs()
	service := NewService(repo, blobs, 0)

	original := repo.seed(t, Object{ContentType: "image/jpeg", Filename: "orig.jpg"})
	blobs.put("orig.jpg", []byte("original"))

	originalID := original.ID
	repo.seed(t, Object{
		ContentType: "image/jpeg",
		Filename:    "orig.jpg_thumb.jpg",
		IsPreview:   true,
		OriginalID:  &originalID,
	})
	blobs.put("orig.jpg_thumb.jpg", []byte("thumb"))

	if err := service.Delete(context.Background(), original.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := service.Get(context.Background(), original.ID); err != ErrMediaNotFound {
		t.Fatalf("expected original gone, got %v", err)
	}
	if _, err := service.PreviewFor(context.Background(), original.ID); err != ErrMediaNotFound {
		t.Fatalf("expected preview gone, got %v", err)
	}
	if blobs.bytes("orig.jpg") != nil || blobs.bytes("orig.jpg_thumb.jpg") != nil {
		t.Fatalf("expected both blobs removed")
	}
}

func TestGalleryFiltersApprovedByKind(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, newFakeBlobs(), 0)

	approvedImage := repo.seed(t, Object{ContentType: "image/png", Approved: true})
	repo.seed(t, Object{ContentType: "video/mp4", Approved: true})
	repo.seed(t, Object{ContentType: "image/jpeg", Approved: false})

	images, err := service.Gallery(context.Background(), "image")
	if err != nil {
		t.Fatalf("Gallery returned error: %v", err)
	}
	if len(images) != 1 || images[0].ID != approvedImage.ID {
		t.Fatalf("expected only the approved image, got %d records", len(images))
	}

	all, err := service.Gallery(context.Background(), "")
	if err != nil {
		t.Fatalf("Gallery returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both approved originals, got %d", len(all))
	}
}

// --- helpers & fakes ---

func buildFileHeader(t *testing.T, fieldName, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart error: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(int64(len(content)) + 1024); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}

	return req.MultipartForm.File[fieldName][0]
}

type fakeRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]Object
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[uuid.UUID]Object)}
}

func (f *fakeRepo) seed(t *testing.T, o Object) Object {
	t.Helper()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Filename == "" {
		o.Filename = o.ID.String()
	}
	if o.Uploader == "" {
		o.Uploader = DefaultUploader
	}
	if o.PreviewState == "" {
		o.PreviewState = PreviewPending
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[o.ID] = o
	return o
}

func (f *fakeRepo) Create(ctx context.Context, o Object) (Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.OriginalID != nil {
		if _, ok := f.records[*o.OriginalID]; !ok {
			return Object{}, fmt.Errorf("original %s does not exist", *o.OriginalID)
		}
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	f.records[o.ID] = o
	return o, nil
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.records[id]
	if !ok {
		return Object{}, ErrMediaNotFound
	}
	return o, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Object
	for _, o := range f.records {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeRepo) ListApproved(ctx context.Context, kind string) ([]Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Object
	for _, o := range f.records {
		if !o.Approved || o.IsPreview {
			continue
		}
		if kind != "" && !strings.HasPrefix(o.ContentType, kind+"/") {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeRepo) Approve(ctx context.Context, id uuid.UUID) (Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.records[id]
	if !ok {
		return Object{}, ErrMediaNotFound
	}
	o.Approved = true
	f.records[id] = o
	return o, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) ([]Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	root, ok := f.records[id]
	if !ok {
		return nil, ErrMediaNotFound
	}
	removed := []Object{root}
	delete(f.records, id)
	for pid, o := range f.records {
		if o.OriginalID != nil && *o.OriginalID == id {
			removed = append(removed, o)
			delete(f.records, pid)
		}
	}
	return removed, nil
}

func (f *fakeRepo) PreviewFor(ctx context.Context, originalID uuid.UUID) (Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.records {
		if o.IsPreview && o.OriginalID != nil && *o.OriginalID == originalID {
			return o, nil
		}
	}
	return Object{}, ErrMediaNotFound
}

func (f *fakeRepo) ClaimPreview(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.records[id]
	if !ok {
		return false, nil
	}
	if o.IsPreview || (o.PreviewState != PreviewPending && o.PreviewState != PreviewFailed) {
		return false, nil
	}
	o.PreviewState = PreviewProcessing
	f.records[id] = o
	return true, nil
}

func (f *fakeRepo) SetPreviewState(ctx context.Context, id uuid.UUID, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.records[id]; ok {
		o.PreviewState = state
		f.records[id] = o
	}
	return nil
}

func (f *fakeRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok, nil
}

func (f *fakeRepo) previewCount(originalID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.records {
		if o.IsPreview && o.OriginalID != nil && *o.OriginalID == originalID {
			n++
		}
	}
	return n
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) put(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = data
}

func (f *fakeBlobs) bytes(name string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[name]
}

func (f *fakeBlobs) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.put(objectName, data)
	return nil
}

func (f *fakeBlobs) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	data := f.bytes(objectName)
	if data == nil {
		return nil, fmt.Errorf("object %s not found", objectName)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobs) GetRange(ctx context.Context, objectName string, start, end int64) (io.ReadCloser, error) {
	data := f.bytes(objectName)
	if data == nil {
		return nil, fmt.Errorf("object %s not found", objectName)
	}
	if start < 0 || start >= int64(len(data)) || end < start {
		return nil, fmt.Errorf("invalid range %d-%d", start, end)
	}
	if end > int64(len(data))-1 {
		end = int64(len(data)) - 1
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), nil
}

func (f *fakeBlobs) Remove(ctx context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	return nil
}
