package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/jitter"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"google.golang.org/genai"
)

// ModelClient - часть genai.Models, которой пользуется Invoker
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ClientFactory создаёт клиента, привязанного к региону
type ClientFactory func(ctx context.Context, region string) (ModelClient, error)

// GenerateReq - один запрос к модели со структурированным JSON-ответом
type GenerateReq struct {
	Prompt          string
	Image           domain.EncodedImage
	Schema          *genai.Schema
	MaxOutputTokens int32
}

func NewGenerateReq(prompt string, image domain.EncodedImage, schema *genai.Schema, maxOutputTokens int32) *GenerateReq {
	return &GenerateReq{
		Prompt:          prompt,
		Image:           image,
		Schema:          schema,
		MaxOutputTokens: maxOutputTokens,
	}
}

// Invoker вызывает генеративную модель, перебирая регионы по порядку.
// Полный проход по регионам повторяется с экспоненциальной задержкой.
type Invoker struct {
	factory     ClientFactory
	regions     []string
	model       string
	temperature float32
	maxAttempts int
	backoff     jitter.Backoff
	logger      logger.Logger

	mu      sync.Mutex
	clients map[string]ModelClient
}

func NewInvoker(factory ClientFactory, cfg *cfg.GenAICfg, logger logger.Logger) *Invoker {
	return &Invoker{
		factory:     factory,
		regions:     append([]string(nil), cfg.Regions...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxAttempts: max(cfg.MaxAttempts, 1),
		backoff: jitter.Backoff{
			Base:   cfg.BackoffBase,
			Max:    cfg.BackoffMax,
			Jitter: jitter.DefaultJitter,
		},
		logger:  logger,
		clients: make(map[string]ModelClient, len(cfg.Regions)),
	}
}

// Generate возвращает разобранный JSON первого региона, ответившего корректно.
// После исчерпания всех попыток возвращает e.ErrAllRegionsFailed.
func (i *Invoker) Generate(ctx context.Context, req *GenerateReq) (map[string]any, error) {
	const op = "Invoker.Generate"

	if len(i.regions) == 0 {
		return nil, e.Wrap(op, e.ErrNoRegions)
	}

	var lastErr error
	for attempt := 0; attempt < i.maxAttempts; attempt++ {
		for _, region := range i.regions {
			out, err := i.generateInRegion(ctx, region, req)
			if err == nil {
				return out, nil
			}

			lastErr = err
			i.logger.Warnf("generation failed in region %s (attempt %d/%d): %v", region, attempt+1, i.maxAttempts, err)
		}

		if attempt == i.maxAttempts-1 {
			break
		}

		i.logger.Warnf("all %d regions failed, retrying in %v", len(i.regions), i.backoff.Next(attempt))
		if !i.backoff.Sleep(ctx, attempt) {
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("%w after %d attempts: %v", e.ErrAllRegionsFailed, i.maxAttempts, lastErr))
}

func (i *Invoker) generateInRegion(ctx context.Context, region string, req *GenerateReq) (map[string]any, error) {
	client, err := i.client(ctx, region)
	if err != nil {
		return nil, e.Wrap(region, err)
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(i.temperature),
		MaxOutputTokens:  req.MaxOutputTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}

	resp, err := client.GenerateContent(ctx, i.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return nil, e.Wrap(region, err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, e.Wrap(region, e.ErrEmptyModelOutput)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(stripFences(text)), &out); err != nil {
		return nil, e.Wrap(region, err)
	}

	return out, nil
}

// client создаёт клиента региона один раз и переиспользует его.
func (i *Invoker) client(ctx context.Context, region string) (ModelClient, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if c, ok := i.clients[region]; ok {
		return c, nil
	}

	c, err := i.factory(ctx, region)
	if err != nil {
		return nil, err
	}
	i.clients[region] = c

	return c, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	return strings.TrimSpace(sb.String())
}

// stripFences убирает markdown-обёртку ```json ... ```, которую модель иногда добавляет.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
