package usecase

import (
	"context"
	"sync"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/pkg/e"
)

// checkImages параллельно проверяет наличие изображений с ограничением одновременных запросов.
// Продукт без image_path считается невалидным без обращения к хранилищу.
func checkImages(ctx context.Context, repo ImageRepository, products []domain.Product, maxConcurrent int) ([]bool, error) {
	const op = "usecase.checkImages"

	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	exists := make([]bool, len(products))
	errCh := make(chan error, len(products))
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	for i := range products {
		if products[i].ImagePath == "" {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ok, err := repo.Exists(ctx, products[i].ImagePath)
			if err != nil {
				errCh <- e.Wrap(products[i].ImagePath, err)
				return
			}
			exists[i] = ok
		}()
	}

	wg.Wait()
	close(errCh)

	if err, ok := <-errCh; ok {
		return nil, e.Wrap(op, err)
	}

	return exists, nil
}

// filterValid оставляет только продукты с существующим изображением, сохраняя порядок.
func filterValid(ctx context.Context, repo ImageRepository, products []domain.Product, maxConcurrent int) ([]domain.Product, error) {
	exists, err := checkImages(ctx, repo, products, maxConcurrent)
	if err != nil {
		return nil, err
	}

	valid := make([]domain.Product, 0, len(products))
	for i, p := range products {
		if exists[i] {
			valid = append(valid, p)
		}
	}

	return valid, nil
}
