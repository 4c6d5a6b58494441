package document

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
)

type DocumentUsecase interface {
	Create(ctx context.Context, req *entity.CreateDocumentRequest) (*entity.Document, error)
	Update(ctx context.Context, req *entity.UpdateDocumentRequest) (*entity.Document, error)
	Reprocess(ctx context.Context, id string) (*entity.Document, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*entity.Document, error)
	List(ctx context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error)
	ListChunks(ctx context.Context, id string) ([]*entity.Chunk, error)
	ReembedCorpus(ctx context.Context) (*entity.ReembedReport, error)
}
