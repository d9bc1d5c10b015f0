// Package ml_service — gRPC-клиент провайдера эмбеддингов изображений.
//
// Провайдер должен реализовать унарный метод
//
//	/ml.v1.EmbeddingService/EmbedImage
//
// на well-known типах protobuf, без собственного .proto:
//
//	request:  google.protobuf.BytesValue  — исходные байты изображения (jpeg, png или webp)
//	response: google.protobuf.Struct
//	          {
//	            "vector":        [number, ...], // длина VECTOR_SIZE, нормализация не требуется
//	            "model_version": string         // необязательно
//	          }
//
// Статусы InvalidArgument, Unimplemented, PermissionDenied, Unauthenticated и
// FailedPrecondition считаются окончательными; остальные повторяются с
// экспоненциальной задержкой до ML_MAX_RETRIES раз. Адрес задаётся ML_HOST и ML_PORT.
package ml_service
