package images

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/infrastructure"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/jitter"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
	"github.com/google/uuid"
)

const (
	cleanupAttempts = 3
	cleanupTimeout  = 30 * time.Second
	cleanupBackoff  = time.Second
	cleanupMaxDelay = 10 * time.Second
)

// ImagesInfrastructure управляет загрузкой и очисткой изображений в хранилище (MinIO или локальный каталог).
type ImagesInfrastructure struct {
	imageRepo    usecase.ImageRepository
	maxImageSize int64
	logger       logger.Logger
	shutdownCtx  context.Context
	wg           sync.WaitGroup
}

func NewImagesInfrastructure(imageRepo usecase.ImageRepository, maxImageSize int64, logger logger.Logger, shutdownCtx context.Context) *ImagesInfrastructure {
	return &ImagesInfrastructure{
		imageRepo:    imageRepo,
		maxImageSize: maxImageSize,
		logger:       logger,
		shutdownCtx:  shutdownCtx,
	}
}

// UploadImage сохраняет изображение под ключом <артикул>/<uuid>.<ext>.
func (m *ImagesInfrastructure) UploadImage(ctx context.Context, req *usecase.UploadImageReq) (*usecase.UploadImageRes, error) {
	const op = "ImagesInfrastructure.UploadImage"

	image := req.Image
	if m.maxImageSize > 0 && int64(len(image.Data)) > m.maxImageSize {
		return nil, e.Wrap(op, e.ErrFileTooLarge)
	}

	ext, err := infrastructure.GetExtensionFromMIME(image.MimeType)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("invalid mime type %s for %s: %w", image.MimeType, image.Name, err))
	}

	imageID := strings.ReplaceAll(uuid.NewString(), "-", "")
	objKey := fmt.Sprintf("%s/%s.%s", req.ArticleNumber, imageID, ext)
	newImage := domain.NewImage(imageID, objKey, image.Data, int64(len(image.Data)), image.MimeType)

	key, err := m.imageRepo.Upload(ctx, newImage)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("upload %s failed: %w", image.Name, err))
	}

	return usecase.NewUploadImageRes(key), nil
}

// CleanupImages запускает фоновую очистку указанных ключей
func (m *ImagesInfrastructure) CleanupImages(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.wg.Add(1)
	go m.cleanupUploadedKeys(keys)
}

// cleanupUploadedKeys удаляет указанные объекты с экспоненциальной задержкой и jitter.
func (m *ImagesInfrastructure) cleanupUploadedKeys(keys []string) {
	defer m.wg.Done()
	const op = "ImagesInfrastructure.cleanupUploadedKeys"
	m.logger.Infof("%s: Cleaning up uploaded keys", op)

	ctx, cancel := context.WithTimeout(m.shutdownCtx, cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		for attempt := 0; attempt < cleanupAttempts; attempt++ {
			err := m.imageRepo.Delete(ctx, key)
			if err == nil {
				break
			}

			if attempt == cleanupAttempts-1 {
				m.logger.Errorf(err, "%s: giving up on key=%v", op, key)
				break
			}

			sleepTime := jitter.ExponentialBackoff(cleanupBackoff, cleanupMaxDelay, attempt, jitter.DefaultJitter)
			select {
			case <-time.After(sleepTime):
			case <-ctx.Done():
				m.logger.Warnf("cleanup interrupted by shutdown during backoff, key=%v", key)
				return
			}
		}
	}
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *ImagesInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("image cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
