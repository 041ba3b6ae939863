package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/JuacoStudios/formai-backend/configs"
	"github.com/JuacoStudios/formai-backend/internal/transfer"
)

const (
	visionCompletionsURL = "https://api.openai.com/v1/chat/completions"
	maxImageSize         = 10 * 1024 * 1024 // 10 MB

	analysisPrompt = "Identify the gym machine or exercise equipment in this image and explain, step by step, how to use it with correct form. Mention the muscle groups it targets and one common mistake to avoid."
)

var ErrUnsupportedImage = errors.New("unsupported image type")

type ScanService interface {
	Analyze(ctx context.Context, image []byte) (*transfer.ScanResult, error)
}

type scanService struct {
	cfg    config.Config
	r2     *R2Service
	client *http.Client
}

func NewScanService(cfg config.Config, r2 *R2Service) ScanService {
	return &scanService{
		cfg: cfg,
		r2:  r2,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Analyze validates the uploaded image and forwards it to the vision model.
// The model's answer is returned as-is; this backend has no opinion about its
// content.
func (s *scanService) Analyze(ctx context.Context, image []byte) (*transfer.ScanResult, error) {
	if len(image) == 0 {
		return nil, errors.New("image is empty")
	}
	if len(image) > maxImageSize {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageSize)
	}

	kind, err := filetype.Image(image)
	if err != nil {
		slog.Info(err.Error())
		return nil, ErrUnsupportedImage
	}

	imageKey := s.archive(ctx, image, kind.MIME.Value, kind.Extension)

	analysis, err := s.requestAnalysis(ctx, image, kind.MIME.Value)
	if err != nil {
		return nil, err
	}

	return &transfer.ScanResult{
		Analysis: analysis,
		ImageKey: imageKey,
		Model:    s.cfg.OpenAIModel,
	}, nil
}

// archive stores the image in R2 when configured. Failures are logged and
// tolerated; a lost archive copy must not fail the scan.
func (s *scanService) archive(ctx context.Context, image []byte, contentType, extension string) string {
	if s.r2 == nil || !s.r2.Enabled() {
		return ""
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return ""
	}

	key := fmt.Sprintf("scans/%s.%s", id, extension)
	if err := s.r2.Upload(ctx, key, image, contentType); err != nil {
		return ""
	}
	return key
}

func (s *scanService) requestAnalysis(ctx context.Context, image []byte, contentType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))

	body := map[string]any{
		"model": s.cfg.OpenAIModel,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": analysisPrompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
		"max_tokens": 800,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, visionCompletionsURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.OpenAIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision request returned status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("decoding vision response failed: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("vision response contains no choices")
	}

	return result.Choices[0].Message.Content, nil
}
