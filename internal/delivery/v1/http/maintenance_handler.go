package http

import (
	"encoding/json"
	"net/http"

	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
)

type MaintenanceHandler struct {
	maintenanceUC usecase.MaintenanceUC
	matcherUC     usecase.MatcherUC
	logger        logger.Logger
}

func NewMaintenanceHandler(maintenanceUC usecase.MaintenanceUC, matcherUC usecase.MatcherUC, logger logger.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenanceUC: maintenanceUC,
		matcherUC:     matcherUC,
		logger:        logger,
	}
}

// stats
//
//	@Summary	Статистика каталога
//	@Tags		maintenance
//	@Produce	json
//	@Success	200	{object}	StatsResponse
//	@Router		/maintenance/stats [get]
func (m *MaintenanceHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := m.maintenanceUC.ComputeStats(r.Context())
	if err != nil {
		m.logger.Errorf(err, "compute stats")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toStatsResponse(stats))
}

// sweep
//
//	@Summary		Очистка сирот
//	@Description	Удаляет записи, изображения которых больше не существуют
//	@Tags			maintenance
//	@Produce		json
//	@Success		200	{object}	SweepResponse
//	@Router			/maintenance/sweep [post]
func (m *MaintenanceHandler) sweep(w http.ResponseWriter, r *http.Request) {
	res, err := m.maintenanceUC.SweepOrphans(r.Context())
	if err != nil {
		m.logger.Errorf(err, "sweep orphans")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, &SweepResponse{Removed: res.Removed, Failed: res.Failed})
}

// backfill
//
//	@Summary		Перенормализация эмбеддингов
//	@Description	Приводит к единичной норме эмбеддинги, сохранённые без нормализации
//	@Tags			maintenance
//	@Produce		json
//	@Success		200	{object}	BackfillResponse
//	@Router			/maintenance/backfill [post]
func (m *MaintenanceHandler) backfill(w http.ResponseWriter, r *http.Request) {
	res, err := m.maintenanceUC.BackfillNormalization(r.Context())
	if err != nil {
		m.logger.Errorf(err, "backfill normalization")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toBackfillResponse(res))
}

// suggest
//
//	@Summary		Подсказка метаданных
//	@Description	Предлагает название, категорию и описание по текстовому описанию изображения. Сбой провайдера возвращается как warning
//	@Tags			suggestions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SuggestionRequest	true	"Описание"
//	@Success		200		{object}	SuggestionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/suggestions [post]
func (m *MaintenanceHandler) suggest(w http.ResponseWriter, r *http.Request) {
	const maxBody = 64 << 10

	var req SuggestionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		WriteError(w, e.Wrap("decode suggestion request", e.ErrDescriptionRequired))
		return
	}

	res, err := m.matcherUC.SuggestMetadata(r.Context(), req.Description)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, &SuggestionResponse{Suggestion: res.Text, Warning: res.Warning})
}
