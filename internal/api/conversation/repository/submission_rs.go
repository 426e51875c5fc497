package conversationRepository

import (
	"time"

	"FormFlowGolang/internal/entity"
	contextPkg "FormFlowGolang/pkg/context"
	"FormFlowGolang/pkg/log"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type submissionRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

func (r *submissionRepository) CreateSubmission(ctx context.Context, submission entity.FormSubmission) error {
	requestID := contextPkg.GetRequestID(ctx)

	argsKV := map[string]interface{}{
		"id":               submission.ID,
		"session_id":       submission.SessionID,
		"user_id":          submission.UserID,
		"form_url":         submission.FormURL,
		"data":             submission.Data,
		"fields_collected": submission.FieldsCollected,
		"created_at":       submission.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateSubmission, argsKV)
	if err != nil {
		r.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build create submission query")

		return err
	}

	query = r.q.Rebind(query)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(log.Fields{
			"request_id": requestID,
			"session_id": submission.SessionID,
			"error":      err.Error(),
		}).Error("Failed to archive form submission")

		return err
	}

	return nil
}

func (r *submissionRepository) CleanupOldSubmissions(ctx context.Context, olderThan time.Duration) (int64, error) {
	requestID := contextPkg.GetRequestID(ctx)

	argsKV := map[string]interface{}{
		"cutoff_time": time.Now().Add(-olderThan),
	}

	query, args, err := sqlx.Named(queryCleanupOldSubmissions, argsKV)
	if err != nil {
		r.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build cleanup submissions query")

		return 0, err
	}

	query = r.q.Rebind(query)
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to clean up old form submissions")

		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return rowsAffected, nil
}
