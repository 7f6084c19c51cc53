package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kapu/baselink-bot/internal/domain"
	apperrors "github.com/kapu/baselink-bot/pkg/errors"
	"go.uber.org/zap"
)

const ocrSpaceBackend = "ocrspace"

type OCRSpaceConfig struct {
	APIKey   string
	Endpoint string
	Language string
	Timeout  time.Duration
	TempDir  string
}

// OCRSpaceClient calls the hosted OCR.space parse endpoint.
type OCRSpaceClient struct {
	cfg        OCRSpaceConfig
	httpClient *http.Client
	temp       *TempStore
	logger     *zap.Logger
}

type ocrSpaceResponse struct {
	ParsedResults         []ocrSpaceParsedResult `json:"ParsedResults"`
	OCRExitCode           int                    `json:"OCRExitCode"`
	IsErroredOnProcessing bool                   `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage        `json:"ErrorMessage"`
	ErrorDetails          string                 `json:"ErrorDetails"`
}

type ocrSpaceParsedResult struct {
	ParsedText        string `json:"ParsedText"`
	FileParseExitCode int    `json:"FileParseExitCode"`
}

func NewOCRSpaceClient(cfg OCRSpaceConfig, logger *zap.Logger) (*OCRSpaceClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OCR.space API key is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("OCR.space endpoint is required")
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OCRSpaceClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		temp:   NewTempStore(cfg.TempDir),
		logger: logger,
	}, nil
}

func (c *OCRSpaceClient) Name() string {
	return ocrSpaceBackend
}

// ExtractText stores the screenshot on disk, uploads it and returns the text of
// the first parsed result.
func (c *OCRSpaceClient) ExtractText(ctx context.Context, att *domain.ImageAttachment) (string, error) {
	path, cleanup, err := c.temp.Write(att)
	if err != nil {
		return "", apperrors.NewExtractionError(ocrSpaceBackend, "failed to stage screenshot", err)
	}
	defer cleanup()

	body, contentType, err := c.buildForm(path, att.Filename)
	if err != nil {
		return "", apperrors.NewExtractionError(ocrSpaceBackend, "failed to build OCR request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", apperrors.NewExtractionError(ocrSpaceBackend, "failed to create OCR request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewExtractionError(ocrSpaceBackend, "OCR request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", apperrors.NewExtractionError(ocrSpaceBackend,
			fmt.Sprintf("OCR service error: %s", resp.Status),
			apiBodyError(bodyBytes))
	}

	var parsed ocrSpaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.NewExtractionError(ocrSpaceBackend, "failed to decode OCR response", err)
	}

	if parsed.IsErroredOnProcessing {
		return "", apperrors.NewExtractionError(ocrSpaceBackend,
			"OCR service reported a processing error",
			fmt.Errorf("%s", parsed.errorText()))
	}

	if len(parsed.ParsedResults) == 0 {
		c.logger.Debug("OCR.space returned no parsed results", zap.Int("exit_code", parsed.OCRExitCode))
		return "", nil
	}

	return parsed.ParsedResults[0].ParsedText, nil
}

func (c *OCRSpaceClient) buildForm(path, filename string) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = filepath.Base(path)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("apikey", c.cfg.APIKey); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("language", c.cfg.Language); err != nil {
		return nil, "", err
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

// errorText flattens ErrorMessage, which the service sends either as a string
// or as a list of strings.
func (r *ocrSpaceResponse) errorText() string {
	var messages []string
	if len(r.ErrorMessage) > 0 {
		var list []string
		var single string
		switch {
		case json.Unmarshal(r.ErrorMessage, &list) == nil:
			messages = append(messages, list...)
		case json.Unmarshal(r.ErrorMessage, &single) == nil && single != "":
			messages = append(messages, single)
		}
	}
	if r.ErrorDetails != "" {
		messages = append(messages, r.ErrorDetails)
	}
	if len(messages) == 0 {
		return "unknown processing error"
	}
	return strings.Join(messages, "; ")
}

func apiBodyError(body []byte) error {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}
	return fmt.Errorf("%s", text)
}
