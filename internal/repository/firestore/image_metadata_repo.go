package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/jimlawless/whereami"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DocumentRef - операции с документом, которые нужны репозиторию.
type DocumentRef interface {
	Set(ctx context.Context, data any, opts ...firestore.SetOption) (*firestore.WriteResult, error)
	Get(ctx context.Context) (*firestore.DocumentSnapshot, error)
}

// Collection возвращает ссылку на документ по id.
type Collection func(id string) DocumentRef

// ImageMetadataRepo хранит записи каталога в коллекции Firestore.
// created_at проставляет сервер (тег serverTimestamp в domain.ImageRecord).
type ImageMetadataRepo struct {
	doc Collection
}

func NewImageMetadataRepo(client *firestore.Client, collection string) *ImageMetadataRepo {
	col := client.Collection(collection)
	return NewImageMetadataRepoWithCollection(func(id string) DocumentRef {
		return col.Doc(id)
	})
}

func NewImageMetadataRepoWithCollection(doc Collection) *ImageMetadataRepo {
	return &ImageMetadataRepo{doc: doc}
}

// Save перезаписывает документ целиком, повторная запись идемпотентна.
func (r *ImageMetadataRepo) Save(ctx context.Context, id string, record domain.ImageRecord) error {
	if _, err := r.doc(id).Set(ctx, record); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (r *ImageMetadataRepo) Get(ctx context.Context, id string) (*domain.ImageRecord, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var record domain.ImageRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	record.ID = id

	return &record, nil
}
