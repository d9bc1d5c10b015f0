package domain

// Image описывает изображение, которое сохраняется в хранилище изображений
type Image struct {
	ID        string // uuid
	ObjectKey string // путь, по которому изображение будет доступно после загрузки
	Bytes     []byte
	Size      int64
	MimeType  string
}

func NewImage(id string, objectKey string, data []byte, size int64, mimeType string) *Image {
	return &Image{
		ID:        id,
		ObjectKey: objectKey,
		Bytes:     data,
		Size:      size,
		MimeType:  mimeType,
	}
}
