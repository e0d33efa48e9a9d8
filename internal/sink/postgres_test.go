package sink

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresPushInsertsRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresWithPool(mock, "products", "run-42")
	require.NoError(t, err)

	records := sampleRecords()
	for _, rec := range records {
		mock.ExpectExec("INSERT INTO products").
			WithArgs(
				"run-42",
				rec.ProductID,
				rec.Title,
				rec.Price,
				rec.OriginalPrice,
				rec.Currency,
				rec.Rating,
				rec.ReviewsCount,
				rec.Orders,
				rec.StoreName,
				rec.StoreURL,
				rec.ImageURL,
				rec.ProductURL,
				pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, s.Push(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresWithPool(mock, "products; drop table", "run-42")
	require.Error(t, err)
}
