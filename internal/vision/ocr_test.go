package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/surroundsense/surroundsense/internal/config"
	"github.com/surroundsense/surroundsense/internal/media"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingBackend captures the document it was handed and whether the
// transient file existed at call time.
type recordingBackend struct {
	doc           Document
	existedAtCall bool
	returnText    string
	returnErr     error
	calls         int
}

func (b *recordingBackend) Process(ctx context.Context, doc Document) (string, error) {
	b.calls++
	b.doc = doc
	if doc.Path != "" {
		_, err := os.Stat(doc.Path)
		b.existedAtCall = err == nil
	}
	return b.returnText, b.returnErr
}

func testFrame() media.SampledFrame {
	return media.SampledFrame{Index: 20, Data: []byte("jpeg-bytes")}
}

func TestExtractTextFileTransport(t *testing.T) {
	backend := &recordingBackend{returnText: "EXIT  ->"}
	e := NewExtractor(backend, config.TransportFile, discardLogger())

	text, err := e.ExtractText(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if text != "EXIT  ->" {
		t.Errorf("text = %q", text)
	}
	if backend.doc.Path == "" {
		t.Fatal("file transport did not pass a path")
	}
	if backend.doc.DataURI != "" {
		t.Error("file transport must not inline the image")
	}
	if !backend.existedAtCall {
		t.Error("transient file missing while backend ran")
	}
	if _, err := os.Stat(backend.doc.Path); !os.IsNotExist(err) {
		t.Errorf("transient file %s still exists after the call", backend.doc.Path)
	}
}

func TestExtractTextDataURITransport(t *testing.T) {
	backend := &recordingBackend{returnText: "platform 9"}
	e := NewExtractor(backend, config.TransportDataURI, discardLogger())

	frame := testFrame()
	text, err := e.ExtractText(context.Background(), frame)
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if text != "platform 9" {
		t.Errorf("text = %q", text)
	}
	if backend.doc.Path != "" {
		t.Error("data_uri transport must not pass a path")
	}

	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(backend.doc.DataURI, prefix) {
		t.Fatalf("DataURI = %q, want %q prefix", backend.doc.DataURI, prefix)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(backend.doc.DataURI, prefix))
	if err != nil {
		t.Fatalf("DataURI payload not valid base64: %v", err)
	}
	if string(decoded) != string(frame.Data) {
		t.Error("DataURI payload does not round-trip the frame bytes")
	}
}

func TestExtractTextTrimsResult(t *testing.T) {
	backend := &recordingBackend{returnText: "  cafe open \n"}
	e := NewExtractor(backend, config.TransportDataURI, discardLogger())

	text, err := e.ExtractText(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if text != "cafe open" {
		t.Errorf("text = %q, want trimmed", text)
	}
}

func TestExtractTextCleanupOnBackendError(t *testing.T) {
	backend := &recordingBackend{returnErr: fmt.Errorf("model unavailable")}
	e := NewExtractor(backend, config.TransportFile, discardLogger())

	_, err := e.ExtractText(context.Background(), testFrame())
	if err == nil {
		t.Fatal("expected error from backend")
	}
	if backend.doc.Path == "" {
		t.Fatal("backend was not called")
	}
	if _, statErr := os.Stat(backend.doc.Path); !os.IsNotExist(statErr) {
		t.Errorf("transient file %s survived a backend failure", backend.doc.Path)
	}
}

func TestExtractTextCleanupOnEmptyResult(t *testing.T) {
	backend := &recordingBackend{returnText: ""}
	e := NewExtractor(backend, config.TransportFile, discardLogger())

	text, err := e.ExtractText(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	if _, statErr := os.Stat(backend.doc.Path); !os.IsNotExist(statErr) {
		t.Errorf("transient file %s survived an empty result", backend.doc.Path)
	}
}

func TestTransportsAgree(t *testing.T) {
	// Both transports must hand the backend the same underlying image and
	// produce the same semantic result.
	frame := testFrame()

	fileBackend := &recordingBackend{returnText: "stop"}
	fileExtractor := NewExtractor(fileBackend, config.TransportFile, discardLogger())
	fileText, err := fileExtractor.ExtractText(context.Background(), frame)
	if err != nil {
		t.Fatal(err)
	}

	uriBackend := &recordingBackend{returnText: "stop"}
	uriExtractor := NewExtractor(uriBackend, config.TransportDataURI, discardLogger())
	uriText, err := uriExtractor.ExtractText(context.Background(), frame)
	if err != nil {
		t.Fatal(err)
	}

	if fileText != uriText {
		t.Errorf("transports disagree: %q vs %q", fileText, uriText)
	}
}
