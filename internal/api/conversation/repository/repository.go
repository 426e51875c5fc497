package conversationRepository

import (
	"time"

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
	db       *sqlx.DB
	log      *logrus.Logger
	registry *sessionRegistry
}

// Client bundles the per-request data access points. Sessions live in a
// process-local registry shared by every client; transactions only cover
// the SQL-backed members.
type Client struct {
	Sessions interface {
		Create(ctx context.Context, session *entity.ConversationSession) error
		Acquire(ctx context.Context, sessionID string) (*entity.ConversationSession, error)
		Release(sessionID string)
		Remove(ctx context.Context, sessionID string) (*entity.ConversationSession, error)
		Touch(ctx context.Context, sessionID string) error
		ReapIdle(ctx context.Context, ttl time.Duration) []string
		Count() int
	}

	Submissions interface {
		CreateSubmission(ctx context.Context, submission entity.FormSubmission) error
		CleanupOldSubmissions(ctx context.Context, olderThan time.Duration) (int64, error)
	}

	Commit   func() error
	Rollback func() error
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		db:       db,
		log:      log,
		registry: newSessionRegistry(log),
	}
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
		Sessions:    r.registry,
		Submissions: &submissionRepository{q: q, log: r.log},
		Commit:      commit,
		Rollback:    rollback,
	}, nil
}
