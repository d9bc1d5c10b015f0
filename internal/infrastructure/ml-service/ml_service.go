package ml_service

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/jitter"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// embedImageMethod — контракт описан в doc.go.
const embedImageMethod = "/ml.v1.EmbeddingService/EmbedImage"

// MLService клиент для взаимодействия с внешним ML-сервисом
type MLService struct {
	conn        grpc.ClientConnInterface
	maxRetries  int
	callTimeout time.Duration
	baseBackoff time.Duration
	logger      logger.Logger
}

func NewMLService(conn grpc.ClientConnInterface, maxRetries int, callTimeout time.Duration, logger logger.Logger) *MLService {
	return &MLService{
		conn:        conn,
		maxRetries:  maxRetries,
		callTimeout: callTimeout,
		baseBackoff: time.Second,
		logger:      logger,
	}
}

// VectorizeRequest выполняет векторизацию изображения с retry-логикой и экспоненциальной задержкой.
// Ошибки, которые не исправятся повтором (InvalidArgument и т.п.), возвращаются сразу.
func (m *MLService) VectorizeRequest(ctx context.Context, req *usecase.VectorizeReq) (*usecase.VectorizeRes, error) {
	const (
		op        = "MLService.VectorizeRequest"
		maxJitter = 30 * time.Second
	)

	var lastErr error
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		res, err := m.embed(ctx, req.Image.Data)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !retryable(err) || attempt == m.maxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(
			m.baseBackoff,
			maxJitter,
			attempt,
			jitter.DefaultJitter,
		)

		m.logger.Warnf("vectorization failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, lastErr)
}

func (m *MLService) embed(ctx context.Context, data []byte) (*usecase.VectorizeRes, error) {
	if m.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.callTimeout)
		defer cancel()
	}

	var res structpb.Struct
	if err := m.conn.Invoke(ctx, embedImageMethod, wrapperspb.Bytes(data), &res); err != nil {
		return nil, err
	}

	return vectorFromStruct(&res)
}

// vectorFromStruct разбирает ответ ML-сервиса.
func vectorFromStruct(s *structpb.Struct) (*usecase.VectorizeRes, error) {
	fields := s.GetFields()

	list := fields["vector"].GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return nil, fmt.Errorf("ml response has no vector")
	}

	vector := make([]float32, len(list.GetValues()))
	for i, v := range list.GetValues() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("ml response vector[%d] is not a number", i)
		}
		vector[i] = float32(n.NumberValue)
	}

	return usecase.NewVectorizeRes(vector, fields["model_version"].GetStringValue()), nil
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unimplemented, codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition:
		return false
	}

	return true
}
