package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/services"
)

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// RootPage returns the root of the page tree
func RootPage(t *testing.T, svc *services.Service) *models.Page {
	t.Helper()
	root, err := services.EnsureRootPage(svc.DB)
	if err != nil {
		t.Fatalf("Failed to load root page: %v", err)
	}
	return root
}

// CreateIndex creates a live event index page below the root
func CreateIndex(t *testing.T, svc *services.Service, title string, perPage int) *models.Page {
	t.Helper()
	detail, err := svc.CreatePage(context.Background(), RootPage(t, svc).ID, services.PageInput{
		Type:          models.PageTypeEventIndex,
		Title:         Ptr(title),
		Live:          true,
		EventsPerPage: Ptr(perPage),
		Intro:         Ptr("<p>Nos événements</p>"),
	}, "")
	if err != nil {
		t.Fatalf("Failed to create index page %q: %v", title, err)
	}
	return &detail.Page
}

// CreateEvent creates an event page below parentID
func CreateEvent(t *testing.T, svc *services.Service, parentID uint, title string, date time.Time, live bool) *models.Page {
	t.Helper()
	detail, err := svc.CreatePage(context.Background(), parentID, services.PageInput{
		Type:      models.PageTypeEvent,
		Title:     Ptr(title),
		Live:      live,
		DateEvent: Ptr(date),
	}, "owner-1")
	if err != nil {
		t.Fatalf("Failed to create event page %q: %v", title, err)
	}
	return &detail.Page
}

// CreateCategory creates a document category
func CreateCategory(t *testing.T, svc *services.Service, name string) *models.DocumentCategory {
	t.Helper()
	c, err := services.CreateCategory(svc.DB, name)
	if err != nil {
		t.Fatalf("Failed to create category %q: %v", name, err)
	}
	return c
}

// CreateDocument uploads a small text document. categoryID may be nil.
func CreateDocument(t *testing.T, svc *services.Service, title string, categoryID *uint, date string) *models.Document {
	t.Helper()
	in := forms.DocumentInput{Title: Ptr(title), CategoryID: categoryID}
	if date != "" {
		in.DocumentDate = Ptr(date)
	}
	doc, err := svc.CreateDocument(context.Background(), in, &services.Upload{
		Filename: strings.ToLower(strings.ReplaceAll(title, " ", "-")) + ".txt",
		Reader:   strings.NewReader("contenu " + title),
	})
	if err != nil {
		t.Fatalf("Failed to create document %q: %v", title, err)
	}
	return doc
}

// PNG encodes a blank image of the given size
func PNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// CreateImage uploads a PNG image
func CreateImage(t *testing.T, svc *services.Service, title string) *models.Image {
	t.Helper()
	img, err := svc.UploadImage(context.Background(), services.ImageInput{Title: title}, &services.Upload{
		Filename: "photo.png",
		Reader:   bytes.NewReader(PNG(t, 4, 3)),
	})
	if err != nil {
		t.Fatalf("Failed to upload image %q: %v", title, err)
	}
	return img
}
