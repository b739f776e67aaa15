package pgdb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPostgresDuplicate(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, postgresDuplicate(dup))
	assert.False(t, postgresDuplicate(&pgconn.PgError{Code: "23503"}))
	assert.False(t, postgresDuplicate(errors.New("23505")))
}

func TestWritesRequireTransaction(t *testing.T) {
	ctx := context.Background()

	metadata := NewImageMetadataRepo(nil, converter.NewImageMetadataConverterImpl())
	err := metadata.Save(ctx, "id-1", domain.ImageRecord{})
	assert.ErrorIs(t, err, e.ErrTransactionNotFound)

	outbox := NewOutboxEventRepo(nil, converter.NewOutboxEventConverterImpl())
	_, err = outbox.Create(ctx, usecase.NewOutboxEvent("evt-1", usecase.EventImageCatalogued, "id-1", nil))
	assert.ErrorIs(t, err, e.ErrTransactionNotFound)
}
