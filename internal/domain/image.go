package domain

import "encoding/base64"

// ObjectInfo описывает объект в хранилище, загруженный во временный файл
type ObjectInfo struct {
	Bucket      string
	ObjectKey   string
	LocalPath   string
	Size        int64
	ContentType string
	Metadata    map[string]string // пользовательские метаданные объекта
}

// EncodedImage - изображение, перекодированное в PNG с RGB-палитрой.
// Кодируется один раз и переиспользуется всеми вызовами модели.
type EncodedImage struct {
	Data     []byte
	MIMEType string
}

func NewEncodedImage(data []byte, mimeType string) EncodedImage {
	return EncodedImage{Data: data, MIMEType: mimeType}
}

func (i EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}
