package tr

import (
	"context"

	"github.com/DRSN-tech/image-catalog/pkg/e"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
)

type txKey string

// TxKey - ключ контекста, под которым хранится текущая транзакция
const TxKey txKey = "tx"

// TxFromCtx извлекает объект транзакции (pgx.Tx) из контекста
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	txAny := ctx.Value(TxKey)
	tx, ok := txAny.(pgx.Tx)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}

// PgTransactor открывает транзакцию PostgreSQL и кладёт её в контекст для репозиториев.
type PgTransactor struct {
	db transaction.Transactional
}

func NewPgTransactor(db transaction.Transactional) *PgTransactor {
	return &PgTransactor{db: db}
}

// WithinTx выполняет fn в транзакции. Ошибка fn откатывает транзакцию.
func (p *PgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "PgTransactor.WithinTx"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, p.db)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			_ = tx.Rollback(ctx)
		}
	}()
	ctx = context.WithValue(ctx, TxKey, tx.Transaction())

	if err = fn(ctx); err != nil {
		return e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// NopTransactor вызывает fn без транзакции. Используется с хранилищами без транзакций (Firestore).
type NopTransactor struct{}

func (NopTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
