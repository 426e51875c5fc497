package autofillRepository

import (
	"FormFlowGolang/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

type repository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

type Client struct {
	Entries interface {
		UpsertEntry(ctx context.Context, entry entity.AutofillEntry) error
		GetTopEntriesByFieldName(ctx context.Context, userID, fieldName string, limit int) ([]entity.AutofillEntry, error)
		GetTopEntriesByFieldType(ctx context.Context, userID, fieldType string, limit int) ([]entity.AutofillEntry, error)
	}

	Commit   func() error
	Rollback func() error
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{db: db, log: log}
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var (
		q        SQLExecutor
		commit   func() error
		rollback func() error
	)

	q = r.db
	commit = func() error { return nil }
	rollback = func() error { return nil }

	if tx {
		txx, err := r.db.Beginx()
		if err != nil {
			return Client{}, err
		}

		q = txx
		commit = txx.Commit
		rollback = txx.Rollback
	}

	return Client{
		Entries:  &entryRepository{q: q, log: r.log},
		Commit:   commit,
		Rollback: rollback,
	}, nil
}
