package broker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tepora.broker")

type chatRequest struct {
	Model         string        `json:"model"`
	Messages      []ChatMessage `json:"messages"`
	Stream        bool          `json:"stream"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	TopK          *int          `json:"top_k,omitempty"`
	RepeatPenalty *float64      `json:"repeat_penalty,omitempty"`
	Logprobs      *bool         `json:"logprobs,omitempty"`
}

func (b *Broker) buildChatRequest(cfg ModelRuntimeConfig, messages []ChatMessage, stream bool) chatRequest {
	return chatRequest{
		Model:         cfg.ModelKey,
		Messages:      messages,
		Stream:        stream,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		TopK:          cfg.TopK,
		RepeatPenalty: cfg.RepeatPenalty,
		Logprobs:      cfg.Logprobs,
	}
}

// Chat sends a non-streamed chat completion request and returns the
// assistant's reply text.
func (b *Broker) Chat(ctx context.Context, cfg ModelRuntimeConfig, messages []ChatMessage) (string, error) {
	ctx, span := tracer.Start(ctx, "broker.chat", trace.WithAttributes(
		attribute.String("model", cfg.ModelKey),
		attribute.Bool("streaming", false),
	))
	defer span.End()

	cfg = cfg.WithDefaults()
	port, err := b.ensureRunning(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	body := b.buildChatRequest(cfg, messages, false)
	resp, err := b.postJSON(ctx, fmt.Sprintf("http://127.0.0.1:%d/v1/chat/completions", port), body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := decodeJSON(resp.Body, &payload); err != nil {
		return "", coreconfig.Internal(err, "decoding chat response")
	}
	if len(payload.Choices) == 0 {
		return "", nil
	}
	if payload.Choices[0].Message.Content != "" {
		return payload.Choices[0].Message.Content, nil
	}
	return payload.Choices[0].Text, nil
}

// StreamChat sends a streamed chat completion request and returns a channel
// of incremental text tokens. The channel is closed once the stream ends or
// a terminal error is delivered on it.
func (b *Broker) StreamChat(ctx context.Context, cfg ModelRuntimeConfig, messages []ChatMessage) (<-chan StreamToken, error) {
	cfg = cfg.WithDefaults()
	port, err := b.ensureRunning(ctx, cfg)
	if err != nil {
		return nil, err
	}

	body := b.buildChatRequest(cfg, messages, true)
	resp, err := b.postJSON(ctx, fmt.Sprintf("http://127.0.0.1:%d/v1/chat/completions", port), body)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamToken, 64)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return
			}
			var chunk struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
					Text string `json:"text"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			c := chunk.Choices[0]
			text := c.Delta.Content
			if text == "" {
				text = c.Message.Content
			}
			if text == "" {
				text = c.Text
			}
			if text != "" {
				select {
				case out <- StreamToken{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- StreamToken{Err: coreconfig.Internal(err, "reading chat stream")}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// Embed requests embeddings for a batch of inputs and returns them ordered
// to match the input order, regardless of the order the server returns them in.
func (b *Broker) Embed(ctx context.Context, cfg ModelRuntimeConfig, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	cfg = cfg.WithDefaults()
	cfg.EnableEmbedding = true
	port, err := b.ensureRunning(ctx, cfg)
	if err != nil {
		return nil, err
	}

	body := struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}{Model: cfg.ModelKey, Input: inputs}

	resp, err := b.postJSON(ctx, fmt.Sprintf("http://127.0.0.1:%d/v1/embeddings", port), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, coreconfig.Internal(err, "reading embedding response")
	}
	return decodeEmbeddingPayload(raw)
}

type embeddingItem struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// decodeEmbeddingPayload parses an OpenAI-style embeddings response and
// returns the vectors ordered by the server-reported index, independent of
// the order they arrived on the wire.
func decodeEmbeddingPayload(raw []byte) ([][]float32, error) {
	var payload struct {
		Data []embeddingItem `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, coreconfig.Internal(err, "decoding embedding response")
	}

	sort.Slice(payload.Data, func(i, j int) bool { return payload.Data[i].Index < payload.Data[j].Index })
	out := make([][]float32, len(payload.Data))
	for i, d := range payload.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

func (b *Broker) postJSON(ctx context.Context, url string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, coreconfig.Internal(err, "encoding request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, coreconfig.Internal(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, coreconfig.Upstream(err, "llama-server request failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		text, _ := io.ReadAll(resp.Body)
		return nil, coreconfig.Upstream(fmt.Errorf("status %d: %s", resp.StatusCode, string(text)), "llama-server request failed")
	}
	return resp, nil
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
