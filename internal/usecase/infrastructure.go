package usecase

import "context"

type MlServiceInfra interface {
	VectorizeRequest(ctx context.Context, req *VectorizeReq) (*VectorizeRes, error)
}

type ImagesInfra interface {
	UploadImage(ctx context.Context, req *UploadImageReq) (*UploadImageRes, error)
	CleanupImages(keys []string)
}

type SuggestionInfra interface {
	Suggest(ctx context.Context, description string) (string, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}
