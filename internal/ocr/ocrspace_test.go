package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kapu/baselink-bot/internal/domain"
	apperrors "github.com/kapu/baselink-bot/pkg/errors"
	"go.uber.org/zap"
)

func newTestOCRSpace(t *testing.T, handler http.HandlerFunc) (*OCRSpaceClient, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tempDir := t.TempDir()
	client, err := NewOCRSpaceClient(OCRSpaceConfig{
		APIKey:   "test-key",
		Endpoint: srv.URL + "/parse/image",
		Language: "eng",
		Timeout:  5 * time.Second,
		TempDir:  tempDir,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, tempDir
}

func testAttachment() *domain.ImageAttachment {
	return &domain.ImageAttachment{Filename: "base.png", ContentType: "image/png", Data: []byte("fake-png-bytes")}
}

func TestOCRSpaceSendsMultipartForm(t *testing.T) {
	var gotKey, gotLanguage, gotFilename, gotBody string

	client, _ := newTestOCRSpace(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse form: %v", err)
			return
		}
		gotKey = r.FormValue("apikey")
		gotLanguage = r.FormValue("language")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFilename = header.Filename
		gotBody = string(data)

		fmt.Fprint(w, `{"ParsedResults":[{"ParsedText":"TH14 base layout","FileParseExitCode":1}],"OCRExitCode":1,"IsErroredOnProcessing":false}`)
	})

	text, err := client.ExtractText(context.Background(), testAttachment())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "TH14 base layout" {
		t.Fatalf("unexpected text %q", text)
	}
	if gotKey != "test-key" || gotLanguage != "eng" {
		t.Fatalf("unexpected form fields apikey=%q language=%q", gotKey, gotLanguage)
	}
	if gotFilename != "base.png" || gotBody != "fake-png-bytes" {
		t.Fatalf("unexpected file part %q (%q)", gotFilename, gotBody)
	}
}

func TestOCRSpaceEmptyResultsYieldEmptyText(t *testing.T) {
	client, _ := newTestOCRSpace(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ParsedResults":[],"IsErroredOnProcessing":false}`)
	})

	text, err := client.ExtractText(context.Background(), testAttachment())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestOCRSpaceProcessingErrorIsExtractionError(t *testing.T) {
	client, _ := newTestOCRSpace(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"IsErroredOnProcessing":true,"ErrorMessage":["File failed validation","Unable to recognize the file type"]}`)
	})

	_, err := client.ExtractText(context.Background(), testAttachment())
	var extErr *apperrors.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unable to recognize the file type") {
		t.Fatalf("expected service message in error, got %q", err.Error())
	}
}

func TestOCRSpaceStringErrorMessage(t *testing.T) {
	client, _ := newTestOCRSpace(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"IsErroredOnProcessing":true,"ErrorMessage":"Timed out waiting for results"}`)
	})

	_, err := client.ExtractText(context.Background(), testAttachment())
	if err == nil || !strings.Contains(err.Error(), "Timed out waiting for results") {
		t.Fatalf("expected string error message, got %v", err)
	}
}

func TestOCRSpaceHTTPErrorIsExtractionError(t *testing.T) {
	client, _ := newTestOCRSpace(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The API key is invalid", http.StatusForbidden)
	})

	_, err := client.ExtractText(context.Background(), testAttachment())
	var extErr *apperrors.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "API key is invalid") {
		t.Fatalf("expected status and body in error, got %q", err.Error())
	}
}

func TestOCRSpaceTransportErrorIsExtractionError(t *testing.T) {
	client, _ := newTestOCRSpace(t, func(w http.ResponseWriter, r *http.Request) {})
	client.cfg.Endpoint = "http://127.0.0.1:1/parse/image"

	_, err := client.ExtractText(context.Background(), testAttachment())
	var extErr *apperrors.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestOCRSpaceRemovesTempFile(t *testing.T) {
	client, tempDir := newTestOCRSpace(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ParsedResults":[{"ParsedText":"x"}]}`)
	})

	if _, err := client.ExtractText(context.Background(), testAttachment()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp dir to be empty, found %d entries", len(entries))
	}
}

func TestNewOCRSpaceClientRequiresKey(t *testing.T) {
	if _, err := NewOCRSpaceClient(OCRSpaceConfig{Endpoint: "http://x"}, nil); err == nil {
		t.Fatalf("expected missing key error")
	}
}
