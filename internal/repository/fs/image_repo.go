package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/jimlawless/whereami"
)

// ImageRepo хранит изображения в локальном каталоге; ключ объекта — путь относительно корня.
type ImageRepo struct {
	root string
}

// NewImageRepo создаёт корневой каталог, если его нет.
func NewImageRepo(root string) (*ImageRepo, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &ImageRepo{root: root}, nil
}

func (r *ImageRepo) Upload(_ context.Context, image *domain.Image) (string, error) {
	path, err := r.resolve(image.ObjectKey)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrImageStoreFailure, err))
	}

	// Запись во временный файл и rename, чтобы не оставить обрезанное изображение
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrImageStoreFailure, err))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image.Bytes); err != nil {
		tmp.Close()
		return "", e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrImageStoreFailure, err))
	}
	if err := tmp.Close(); err != nil {
		return "", e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrImageStoreFailure, err))
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrImageStoreFailure, err))
	}

	return image.ObjectKey, nil
}

func (r *ImageRepo) Exists(_ context.Context, key string) (bool, error) {
	path, err := r.resolve(key)
	if err != nil {
		return false, nil
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrImageStoreFailure, err))
	}

	return info.Mode().IsRegular(), nil
}

// Delete удаляет файл; отсутствующий файл не считается ошибкой.
func (r *ImageRepo) Delete(_ context.Context, key string) error {
	path, err := r.resolve(key)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrImageStoreFailure, err))
	}

	return nil
}

// resolve не допускает ключей, выходящих за пределы корневого каталога.
func (r *ImageRepo) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: invalid image key %q", e.ErrImageStoreFailure, key)
	}

	return filepath.Join(r.root, clean), nil
}
