package infrastructure

import (
	"net/http"

	"github.com/DRSN-tech/product-matcher/pkg/e"
)

// sniffLen — сколько байт смотрит http.DetectContentType.
const sniffLen = 512

// GetExtensionFromMIME возвращает расширение файла по MIME-типу изображения.
// Поддерживаются jpeg, png и webp; для остальных типов возвращается e.ErrUnsupportedMediaType.
func GetExtensionFromMIME(mime string) (string, error) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	default:
		return "", e.ErrUnsupportedMediaType
	}
}

// DetectImageMIME определяет MIME-тип по содержимому, а не по имени файла или заголовку клиента.
func DetectImageMIME(data []byte) (string, error) {
	if len(data) == 0 {
		return "", e.ErrNoImage
	}

	mime := http.DetectContentType(data[:min(len(data), sniffLen)])
	if _, err := GetExtensionFromMIME(mime); err != nil {
		return mime, err
	}

	return mime, nil
}
