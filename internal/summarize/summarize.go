// Package summarize turns a file's bytes into a short bullet-point summary
// using Gemini.
package summarize

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Prompt is sent ahead of the document.
const Prompt = "You are a summarization expert. Please summarize the content of the following document " +
	"in a concise, bullet-point format."

// ErrEmptySummary means the model answered without any text.
var ErrEmptySummary = errors.New("summarize: model returned no text")

// Blob is a self-describing document: its bytes and their MIME type.
type Blob struct {
	MimeType string
	Data     []byte
}

// Base64 returns the standard base64 encoding of the data.
func (b Blob) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Data)
}

// DataURI returns the blob as a data: URI.
func (b Blob) DataURI() string {
	return "data:" + b.MimeType + ";base64," + b.Base64()
}

// Summarizer produces a summary for a document.
type Summarizer interface {
	Summarize(ctx context.Context, blob Blob) (string, error)
}

// generator is the slice of the genai client Gemini uses; *genai.Models
// satisfies it.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini summarizes through the Gemini API.
type Gemini struct {
	gen    generator
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini API client for apiKey. An empty model selects
// DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("summarize: no Gemini API key configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: creating Gemini client: %w", err)
	}

	return newGemini(client.Models, model, logger), nil
}

func newGemini(gen generator, model string, logger *slog.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Gemini{gen: gen, model: model, logger: logger}
}

// Summarize sends the prompt and the document inline and returns the model's
// text.
func (g *Gemini) Summarize(ctx context.Context, blob Blob) (string, error) {
	if len(blob.Data) == 0 {
		return "", errors.New("summarize: empty document")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(Prompt),
			genai.NewPartFromBytes(blob.Data, blob.MimeType),
		}, genai.RoleUser),
	}

	g.logger.Debug("requesting summary",
		slog.String("model", g.model),
		slog.String("mime_type", blob.MimeType),
		slog.Int("bytes", len(blob.Data)),
	)

	resp, err := g.gen.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("summarize: generating content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptySummary
	}

	return text, nil
}

// Static returns a fixed summary. The demo mode uses it so SUMMARY works
// without a Gemini key.
type Static struct {
	Text string
}

// Summarize returns s.Text with the blob's size and type appended.
func (s Static) Summarize(_ context.Context, blob Blob) (string, error) {
	return fmt.Sprintf("%s\n- %d bytes of %s", s.Text, len(blob.Data), blob.MimeType), nil
}
