package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// SenderName — фиксированное имя автоответчика в сообщениях.
	// Это не пользователь и проверки участия на него не распространяются.
	SenderName = "AI"

	// TriggerMarker ищется в тексте с учётом регистра
	TriggerMarker = "@AI"

	defaultModel = "gemini-2.5-flash"
	geminiURL    = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
)

var ErrEmptyAnswer = errors.New("generator returned empty answer")

// ContainsTrigger проверяет наличие маркера в тексте сообщения
func ContainsTrigger(text string) bool {
	return strings.Contains(text, TriggerMarker)
}

// Prompt собирает запрос к генератору: маркер вырезается,
// имя комнаты попадает в контекст
func Prompt(roomName, text string) string {
	query := strings.TrimSpace(strings.ReplaceAll(text, TriggerMarker, ""))

	return fmt.Sprintf(`You are a helpful AI assistant in a chat room called %q.
A user is asking: %s

Give a concise, helpful response. Keep it brief and to the point.`, roomName, query)
}

// Generator — внешний генератор ответов: текст на входе, текст на выходе
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator ходит в Gemini API по HTTP
type GeminiGenerator struct {
	apiKey string
	model  string
	client *http.Client
}

func NewGeminiGenerator(apiKey string) *GeminiGenerator {
	return &GeminiGenerator{
		apiKey: apiKey,
		model:  defaultModel,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf(geminiURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyAnswer
	}

	answer := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}
