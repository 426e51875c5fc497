package autofillRepository

import (
	"database/sql"

	"FormFlowGolang/internal/entity"
	contextPkg "FormFlowGolang/pkg/context"
	"FormFlowGolang/pkg/log"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type entryRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type dbAutofillEntry struct {
	ID         sql.NullString  `db:"id"`
	UserID     sql.NullString  `db:"user_id"`
	FieldName  sql.NullString  `db:"field_name"`
	FieldType  sql.NullString  `db:"field_type"`
	Value      sql.NullString  `db:"value"`
	Label      sql.NullString  `db:"label"`
	Confidence sql.NullFloat64 `db:"confidence"`
	UsageCount sql.NullInt64   `db:"usage_count"`
	LastUsedAt sql.NullTime    `db:"last_used_at"`
	CreatedAt  sql.NullTime    `db:"created_at"`
}

func (r *entryRepository) makeAutofillEntry(dbEntry dbAutofillEntry) entity.AutofillEntry {
	return entity.AutofillEntry{
		ID:         dbEntry.ID.String,
		UserID:     dbEntry.UserID.String,
		FieldName:  dbEntry.FieldName.String,
		FieldType:  dbEntry.FieldType.String,
		Value:      dbEntry.Value.String,
		Label:      dbEntry.Label.String,
		Confidence: dbEntry.Confidence.Float64,
		UsageCount: int(dbEntry.UsageCount.Int64),
		LastUsedAt: dbEntry.LastUsedAt.Time,
		CreatedAt:  dbEntry.CreatedAt.Time,
	}
}

func (r *entryRepository) UpsertEntry(ctx context.Context, entry entity.AutofillEntry) error {
	requestID := contextPkg.GetRequestID(ctx)

	argsKV := map[string]interface{}{
		"id":           entry.ID,
		"user_id":      entry.UserID,
		"field_name":   entry.FieldName,
		"field_type":   entry.FieldType,
		"value":        entry.Value,
		"label":        entry.Label,
		"confidence":   entry.Confidence,
		"last_used_at": entry.LastUsedAt,
		"created_at":   entry.CreatedAt,
	}

	query, args, err := sqlx.Named(queryUpsertAutofillEntry, argsKV)
	if err != nil {
		r.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build upsert autofill entry query")

		return err
	}

	query = r.q.Rebind(query)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(log.Fields{
			"request_id": requestID,
			"field_name": entry.FieldName,
			"error":      err.Error(),
		}).Error("Failed to upsert autofill entry")

		return err
	}

	return nil
}

func (r *entryRepository) GetTopEntriesByFieldName(ctx context.Context, userID, fieldName string, limit int) ([]entity.AutofillEntry, error) {
	return r.selectTopEntries(ctx, queryTopEntriesByFieldName, map[string]interface{}{
		"user_id":    userID,
		"field_name": fieldName,
		"limit":      limit,
	})
}

func (r *entryRepository) GetTopEntriesByFieldType(ctx context.Context, userID, fieldType string, limit int) ([]entity.AutofillEntry, error) {
	return r.selectTopEntries(ctx, queryTopEntriesByFieldType, map[string]interface{}{
		"user_id":    userID,
		"field_type": fieldType,
		"limit":      limit,
	})
}

func (r *entryRepository) selectTopEntries(ctx context.Context, queryConst string, argsKV map[string]interface{}) ([]entity.AutofillEntry, error) {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryConst, argsKV)
	if err != nil {
		r.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build top autofill entries query")

		return nil, err
	}

	query = r.q.Rebind(query)

	var dbEntries []dbAutofillEntry
	if err := r.q.SelectContext(ctx, &dbEntries, query, args...); err != nil {
		r.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to select top autofill entries")

		return nil, err
	}

	entries := make([]entity.AutofillEntry, 0, len(dbEntries))
	for _, dbEntry := range dbEntries {
		entries = append(entries, r.makeAutofillEntry(dbEntry))
	}

	return entries, nil
}
