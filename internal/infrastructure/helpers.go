package infrastructure

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path"
	"strings"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// GetExtensionFromMIME возвращает расширение файла по MIME-типу изображения.
// Поддерживает jpeg, jpg, png, gif, webp, bmp, tiff. Возвращает ошибку e.ErrUnsupportedMediaType для неподдерживаемых типов.
func GetExtensionFromMIME(mime string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/gif":
		return "gif", nil
	case "image/webp":
		return "webp", nil
	case "image/bmp", "image/x-ms-bmp":
		return "bmp", nil
	case "image/tiff":
		return "tiff", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}

// ExtensionFromKey возвращает расширение ключа объекта без точки или "bin".
func ExtensionFromKey(key string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

// ScratchExtension выбирает расширение временного файла: из ключа, а если в ключе его нет, по MIME-типу.
func ScratchExtension(key, contentType string) string {
	if ext := ExtensionFromKey(key); ext != "bin" {
		return ext
	}

	ext, _ := GetExtensionFromMIME(contentType)
	return ext
}

// PNGEncoder перекодирует изображения в PNG с RGB-палитрой.
type PNGEncoder struct{}

func NewPNGEncoder() *PNGEncoder {
	return &PNGEncoder{}
}

// Encode читает файл и перекодирует его через EncodeImage.
func (PNGEncoder) Encode(filePath string) (domain.EncodedImage, error) {
	const op = "PNGEncoder.Encode"

	data, err := os.ReadFile(filePath)
	if err != nil {
		return domain.EncodedImage{}, e.Wrap(op, err)
	}

	return EncodeImage(data)
}

// EncodeImage декодирует jpeg/png/gif/webp/bmp/tiff, убирает альфа-канал и палитру, кодирует в PNG.
func EncodeImage(data []byte) (domain.EncodedImage, error) {
	const op = "infrastructure.EncodeImage"

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.EncodedImage{}, e.Wrap(op, e.Wrap(err.Error(), e.ErrUnsupportedMediaType))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, toRGB(src)); err != nil {
		return domain.EncodedImage{}, e.Wrap(op, err)
	}

	return domain.NewEncodedImage(buf.Bytes(), "image/png"), nil
}

// toRGB рисует изображение на непрозрачном белом фоне.
func toRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
