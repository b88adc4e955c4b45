package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/zanzhit/voicetribe/internal/config"
	"github.com/zanzhit/voicetribe/internal/domain/models"
)

const summaryPrompt = "You are a helpful assistant that generates three different types of summaries from transcribed audio: " +
	"a bullet point summary with bullet points, a detailed summary, and a simple one-line summary. " +
	"Format your response as JSON with three keys: bulletPoints, detailed, and simple."

var ErrEmptyResponse = errors.New("empty response from model")

// Client talks to the OpenAI API for speech-to-text, summaries and text-to-speech.
// Requests are never retried.
type Client struct {
	client             openai.Client
	transcriptionModel string
	summaryModel       string
	speechModel        string
	voice              string
}

func New(cfg config.OpenAI) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		client:             openai.NewClient(opts...),
		transcriptionModel: cfg.TranscriptionModel,
		summaryModel:       cfg.SummaryModel,
		speechModel:        cfg.SpeechModel,
		voice:              cfg.Voice,
	}
}

func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	const op = "clients.ai.Transcribe"

	res, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: c.transcriptionModel,
		File:  openai.File(bytes.NewReader(audio), "recording"+extension(mimeType), mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return res.Text, nil
}

// Summarize asks the model for the three summary variants of text. Keys the
// model leaves out come back empty.
func (c *Client) Summarize(ctx context.Context, text string) (models.Summary, error) {
	const op = "clients.ai.Summarize"

	res, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.summaryModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summaryPrompt),
			openai.UserMessage("Generate three summaries for this transcription: " + text),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return models.Summary{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0].Message.Content) == "" {
		return models.Summary{}, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	summary, err := parseSummary(res.Choices[0].Message.Content)
	if err != nil {
		return models.Summary{}, fmt.Errorf("%s: %w", op, err)
	}

	return summary, nil
}

// Synthesize renders text as mp3 speech.
func (c *Client) Synthesize(ctx context.Context, text string) (models.Blob, error) {
	const op = "clients.ai.Synthesize"

	res, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          c.speechModel,
		Voice:          openai.AudioSpeechNewParamsVoice(c.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return models.Blob{}, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return models.Blob{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(data) == 0 {
		return models.Blob{}, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	return models.Blob{Data: data, MimeType: "audio/mpeg"}, nil
}

// parseSummary accepts each key either as a string or as a list of strings,
// which models sometimes return for bullet points.
func parseSummary(content string) (models.Summary, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return models.Summary{}, err
	}

	return models.Summary{
		BulletPoints: flatten(raw["bulletPoints"], "• "),
		Detailed:     flatten(raw["detailed"], ""),
		Simple:       flatten(raw["simple"], ""),
	}, nil
}

func flatten(msg json.RawMessage, bullet string) string {
	if len(msg) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []string
	if err := json.Unmarshal(msg, &list); err == nil {
		lines := make([]string, 0, len(list))
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				lines = append(lines, bullet+item)
			}
		}
		return strings.Join(lines, "\n")
	}

	return ""
}

func extension(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/mpeg"):
		return ".mp3"
	case strings.HasPrefix(mimeType, "audio/wav"), strings.HasPrefix(mimeType, "audio/x-wav"):
		return ".wav"
	case strings.HasPrefix(mimeType, "audio/ogg"):
		return ".ogg"
	case strings.HasPrefix(mimeType, "audio/mp4"):
		return ".m4a"
	default:
		return ".webm"
	}
}
