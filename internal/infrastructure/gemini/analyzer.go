package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"google.golang.org/genai"
)

const (
	fieldDescription     = "description"
	fieldCharacteristics = "characteristics"
	fieldObjects         = "objects"
)

// Generator - источник структурированных ответов модели
type Generator interface {
	Generate(ctx context.Context, req *GenerateReq) (map[string]any, error)
}

// Analyzer описывает изображение тремя вызовами модели: сцена, визуальные признаки, объекты.
type Analyzer struct {
	generator Generator
	maxTokens int32
	logger    logger.Logger
}

func NewAnalyzer(generator Generator, maxTokens int32, logger logger.Logger) *Analyzer {
	return &Analyzer{
		generator: generator,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Analyze возвращает анализ изображения. Отсутствующие поля ответа дают пустые значения,
// ошибкой считается только исчерпание попыток генератора.
func (a *Analyzer) Analyze(ctx context.Context, image domain.EncodedImage, location *domain.LocationDetails) (*domain.ImageAnalysis, error) {
	const op = "Analyzer.Analyze"

	locationContext := describeLocation(location)

	scene, err := a.generator.Generate(ctx, NewGenerateReq(
		scenePrompt+locationContext, image, stringSchema(fieldDescription), a.maxTokens,
	))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	visual, err := a.generator.Generate(ctx, NewGenerateReq(
		characteristicsPrompt+locationContext, image, listSchema(fieldCharacteristics), a.maxTokens,
	))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	objects, err := a.generator.Generate(ctx, NewGenerateReq(
		objectsPrompt+locationContext, image, listSchema(fieldObjects), a.maxTokens,
	))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	description := stringField(scene, fieldDescription)
	characteristics := listField(visual, fieldCharacteristics)
	objectTags := listField(objects, fieldObjects)
	for _, f := range []struct {
		name  string
		empty bool
	}{
		{fieldDescription, description == ""},
		{fieldCharacteristics, len(characteristics) == 0},
		{fieldObjects, len(objectTags) == 0},
	} {
		if f.empty {
			a.logger.Warnf("%s: model response has no %q, using empty value", op, f.name)
		}
	}

	return domain.NewImageAnalysis(description, characteristics, objectTags, location), nil
}

const (
	scenePrompt = "Describe this image in one concise sentence. " +
		"Focus on the main subject and setting. Respond with JSON containing a \"description\" field."
	characteristicsPrompt = "List up to 5 visual characteristics of this image (colors, lighting, style, mood). " +
		"Each must be a single word. Respond with JSON containing a \"characteristics\" array."
	objectsPrompt = "List up to 5 main objects visible in this image. " +
		"Each must be a single word. Respond with JSON containing an \"objects\" array."
)

func describeLocation(location *domain.LocationDetails) string {
	if location == nil {
		return ""
	}

	var parts []string
	for _, key := range []domain.ComponentKey{domain.ComponentCity, domain.ComponentState, domain.ComponentCountry} {
		if v := location.Components[key]; v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 && location.FormattedAddress == "" {
		return ""
	}
	if len(parts) == 0 {
		parts = append(parts, location.FormattedAddress)
	}

	return fmt.Sprintf(" The photo was taken in %s.", strings.Join(parts, ", "))
}

func stringSchema(field string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			field: {Type: genai.TypeString},
		},
		Required: []string{field},
	}
}

func listSchema(field string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			field: {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				MaxItems: genai.Ptr[int64](domain.MaxTags),
			},
		},
		Required: []string{field},
	}
}

// stringField возвращает строковое поле или пустую строку, если его нет или тип не тот.
func stringField(out map[string]any, field string) string {
	s, _ := out[field].(string)
	return s
}

// listField возвращает строковые элементы массива, пропуская значения других типов.
func listField(out map[string]any, field string) []string {
	switch v := out[field].(type) {
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
		return items
	case string:
		return strings.Split(v, ",")
	default:
		return nil
	}
}
