package domain

import "strings"

// MaxTags - максимальное количество тегов в каждом списке анализа
const MaxTags = 5

// ImageAnalysis - результат анализа одного изображения генеративной моделью.
// После создания не изменяется.
type ImageAnalysis struct {
	SceneDescription string
	VisualTags       []string
	ObjectTags       []string
	Location         *LocationDetails
}

func NewImageAnalysis(description string, visual, objects []string, location *LocationDetails) *ImageAnalysis {
	return &ImageAnalysis{
		SceneDescription: strings.TrimSpace(description),
		VisualTags:       NormalizeTags(visual),
		ObjectTags:       NormalizeTags(objects),
		Location:         location.Clone(),
	}
}

// CombinedText склеивает поля анализа в один текст для эмбеддинга.
// Порядок полей фиксирован: контекст, визуальные элементы, ключевые объекты, локация.
func (a *ImageAnalysis) CombinedText() string {
	parts := []string{
		"Context: " + a.SceneDescription,
		"Visual elements: " + strings.Join(a.VisualTags, ", "),
		"Key objects: " + strings.Join(a.ObjectTags, ", "),
	}
	if a.Location != nil && a.Location.FormattedAddress != "" {
		parts = append(parts, "Location: "+a.Location.FormattedAddress)
	}

	return strings.Join(parts, "\n")
}

// NormalizeTags обрезает пробелы, выкидывает пустые значения и оставляет не более MaxTags тегов.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, min(len(tags), MaxTags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}

	return out
}
