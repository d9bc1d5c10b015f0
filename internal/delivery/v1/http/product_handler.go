package http

import (
	"net/http"
	"strings"

	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const maxMemory = 32 << 20

type ProductHandler struct {
	catalogUC    usecase.CatalogUC
	matcherUC    usecase.MatcherUC
	logger       logger.Logger
	maxImageSize int64
}

func NewProductHandler(catalogUC usecase.CatalogUC, matcherUC usecase.MatcherUC, logger logger.Logger, maxImageSize int64) *ProductHandler {
	return &ProductHandler{
		catalogUC:    catalogUC,
		matcherUC:    matcherUC,
		logger:       logger,
		maxImageSize: maxImageSize,
	}
}

// saveProduct
//
//	@Summary		Добавление товара в каталог
//	@Description	Валидирует артикул, вычисляет эмбеддинг изображения и сохраняет запись
//	@Tags			products
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			article_number	formData	string			true	"Артикул: 6-32 символа A-Z, 0-9, '-'"
//	@Param			product_name	formData	string			true	"Название товара"
//	@Param			barcode			formData	string			false	"Штрихкод"
//	@Param			image			formData	file			true	"Изображение товара"
//	@Success		201				{object}	ProductResponse
//	@Failure		400				{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		409				{object}	ErrorResponse	"Артикул уже существует"
//	@Router			/products [post]
func (p *ProductHandler) saveProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, p.maxImageSize+maxMemory)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		p.logger.Warnf("%d save product: %v (content-type %q)", http.StatusBadRequest, err, r.Header.Get("Content-Type"))
		WriteError(w, err)
		return
	}

	image, err := parseImage(r, "image", p.maxImageSize)
	if err != nil {
		p.logger.Warnf("save product: %v", err)
		WriteError(w, err)
		return
	}

	req := usecase.NewSaveProductReq(
		r.FormValue("article_number"),
		r.FormValue("product_name"),
		optionalFormValue(r, "barcode"),
		image,
	)

	product, err := p.catalogUC.SaveProduct(r.Context(), req)
	if err != nil {
		p.logger.Warnf("save product: %v", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, toProductResponse(product))
}

// listProducts
//
//	@Summary	Список товаров
//	@Description	Возвращает товары с существующими изображениями, новые первыми
//	@Tags		products
//	@Produce	json
//	@Success	200	{array}		ProductResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/products [get]
func (p *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := p.catalogUC.ListAll(r.Context())
	if err != nil {
		p.logger.Errorf(err, "list products")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toArrProductResponse(products))
}

// getProduct
//
//	@Summary	Товар по артикулу
//	@Tags		products
//	@Produce	json
//	@Param		article	path		string	true	"Артикул"
//	@Success	200		{object}	ProductResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/products/{article} [get]
func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := p.catalogUC.GetByArticleNumber(r.Context(), chi.URLParam(r, "article"))
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductResponse(product))
}

// deleteProduct
//
//	@Summary		Удаление товара
//	@Description	Удаляет изображение товара и запись каталога
//	@Tags			products
//	@Param			article	path	string	true	"Артикул"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/products/{article} [delete]
func (p *ProductHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	product, err := p.catalogUC.GetByArticleNumber(r.Context(), chi.URLParam(r, "article"))
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := p.catalogUC.DeleteProduct(r.Context(), product.ID); err != nil {
		p.logger.Errorf(err, "delete product %s", product.ArticleNumber)
		WriteError(w, err)
		return
	}

	p.logger.Infof("product deleted: id=%d article_number=%s", product.ID, product.ArticleNumber)
	w.WriteHeader(http.StatusNoContent)
}

// similarProducts
//
//	@Summary		Похожие товары
//	@Description	Ищет товары, похожие на товар каталога; сам товар в результат не попадает
//	@Tags			products
//	@Produce		json
//	@Param			article	path		string	true	"Артикул"
//	@Param			top_k	query		int		false	"Количество результатов (по умолчанию 3)"
//	@Success		200		{array}		MatchResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/products/{article}/similar [get]
func (p *ProductHandler) similarProducts(w http.ResponseWriter, r *http.Request) {
	topK, err := parseTopK(r.URL.Query().Get("top_k"))
	if err != nil {
		WriteError(w, err)
		return
	}

	matches, err := p.matcherUC.FindSimilarToProduct(r.Context(), chi.URLParam(r, "article"), topK)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toArrMatchResponse(matches))
}

// matchImage
//
//	@Summary		Сопоставление изображения с каталогом
//	@Description	Со штрихкодом проверяет соответствие изображения товару, без него ищет похожие товары
//	@Tags			matches
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image			formData	file	true	"Изображение"
//	@Param			barcode			formData	string	false	"Штрихкод для проверки"
//	@Param			top_k			formData	int		false	"Количество результатов (по умолчанию 3)"
//	@Param			min_similarity	formData	number	false	"Порог сходства в [0, 1]"
//	@Success		200				{object}	MatchResultResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse	"Штрихкод не найден"
//	@Router			/matches [post]
func (p *ProductHandler) matchImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, p.maxImageSize+maxMemory)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		WriteError(w, err)
		return
	}

	image, err := parseImage(r, "image", p.maxImageSize)
	if err != nil {
		WriteError(w, err)
		return
	}

	topK, err := parseTopK(r.FormValue("top_k"))
	if err != nil {
		WriteError(w, err)
		return
	}

	minSimilarity, err := parseMinSimilarity(r.FormValue("min_similarity"))
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := p.matcherUC.Match(r.Context(), &usecase.MatchReq{
		Image:          image,
		Barcode:        optionalFormValue(r, "barcode"),
		TopK:           topK,
		MinSimilarity:  minSimilarity,
		ExcludeArticle: strings.TrimSpace(r.FormValue("exclude_article")),
	})
	if err != nil {
		p.logger.Warnf("match image: %v", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toMatchResultResponse(res))
}
