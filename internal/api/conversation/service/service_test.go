package conversationService

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"FormFlowGolang/internal/api/autofill"
	"FormFlowGolang/internal/api/conversation"
	conversationRepository "FormFlowGolang/internal/api/conversation/repository"
	"FormFlowGolang/internal/entity"
	"FormFlowGolang/pkg/gemini"
	"FormFlowGolang/pkg/nlp"
	"FormFlowGolang/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeSessions mirrors the registry contract: one lease per session, busy
// while held, removal consumes the lease.
type fakeSessions struct {
	mu    sync.Mutex
	slots map[string]*entity.ConversationSession
	held  map[string]bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		slots: map[string]*entity.ConversationSession{},
		held:  map[string]bool{},
	}
}

func (f *fakeSessions) Create(ctx context.Context, session *entity.ConversationSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.slots[session.ID] = session
	return nil
}

func (f *fakeSessions) Acquire(ctx context.Context, sessionID string) (*entity.ConversationSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.slots[sessionID]
	if !ok {
		return nil, conversation.ErrSessionNotFound
	}
	if f.held[sessionID] {
		return nil, conversation.ErrSessionBusy
	}

	f.held[sessionID] = true
	return session, nil
}

func (f *fakeSessions) Release(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.held, sessionID)
}

func (f *fakeSessions) Remove(ctx context.Context, sessionID string) (*entity.ConversationSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.slots[sessionID]
	if !ok {
		return nil, conversation.ErrSessionNotFound
	}

	delete(f.slots, sessionID)
	delete(f.held, sessionID)
	return session, nil
}

func (f *fakeSessions) Touch(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.slots[sessionID]
	if !ok {
		return conversation.ErrSessionNotFound
	}
	if f.held[sessionID] {
		return nil
	}

	session.LastActivity = time.Now()
	return nil
}

func (f *fakeSessions) ReapIdle(ctx context.Context, ttl time.Duration) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	var reaped []string
	for sessionID, session := range f.slots {
		if f.held[sessionID] || !session.LastActivity.Before(cutoff) {
			continue
		}

		session.State = entity.StateTerminated
		delete(f.slots, sessionID)
		reaped = append(reaped, sessionID)
	}

	return reaped
}

func (f *fakeSessions) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.slots)
}

func (f *fakeSessions) get(sessionID string) *entity.ConversationSession {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.slots[sessionID]
}

type fakeSubmissions struct {
	mu       sync.Mutex
	archived []entity.FormSubmission
	sweeps   []time.Duration
}

func (f *fakeSubmissions) CreateSubmission(ctx context.Context, submission entity.FormSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.archived = append(f.archived, submission)
	return nil
}

func (f *fakeSubmissions) CleanupOldSubmissions(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sweeps = append(f.sweeps, olderThan)
	return 0, nil
}

func (f *fakeSubmissions) archivedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.archived)
}

func (f *fakeSubmissions) lastArchived() (entity.FormSubmission, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.archived) == 0 {
		return entity.FormSubmission{}, false
	}
	return f.archived[len(f.archived)-1], true
}

func (f *fakeSubmissions) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sweeps)
}

type fakeConversationRepo struct {
	sessions    *fakeSessions
	submissions *fakeSubmissions
}

func (f *fakeConversationRepo) NewClient(tx bool) (conversationRepository.Client, error) {
	return conversationRepository.Client{
		Sessions:    f.sessions,
		Submissions: f.submissions,
		Commit:      func() error { return nil },
		Rollback:    func() error { return nil },
	}, nil
}

type fakeAutofill struct {
	mu     sync.Mutex
	stored []autofill.Suggestion
	usage  []autofill.UsageEvent
}

func (f *fakeAutofill) GetSuggestions(ctx context.Context, req autofill.SuggestionsRequest) (*autofill.SuggestionsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return &autofill.SuggestionsResponse{Success: true, Suggestions: f.stored}, nil
}

func (f *fakeAutofill) RecordUsage(ctx context.Context, event autofill.UsageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.usage = append(f.usage, event)
	return nil
}

func (f *fakeAutofill) usageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.usage)
}

func (f *fakeAutofill) lastUsage() (autofill.UsageEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.usage) == 0 {
		return autofill.UsageEvent{}, false
	}
	return f.usage[len(f.usage)-1], true
}

type fakeGemini struct {
	mu         sync.Mutex
	candidates []nlp.FieldCandidate
	err        error
	calls      int
}

func (f *fakeGemini) ExtractFields(ctx context.Context, transcript string, target nlp.FieldSpec, remaining []nlp.FieldSpec, history []string) ([]nlp.FieldCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func (f *fakeGemini) set(candidates []nlp.FieldCandidate, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.candidates = candidates
	f.err = err
}

func (f *fakeGemini) Close() {}

type serviceFixture struct {
	svc      IConversationService
	repo     *fakeConversationRepo
	autofill *fakeAutofill
}

func defaultTestConfig() *ConversationConfig {
	return &ConversationConfig{
		AIProvider:          AIProviderOff,
		ExtractionTimeout:   time.Second,
		SessionTTL:          30 * time.Minute,
		ReaperInterval:      time.Minute,
		SubmissionRetention: 90 * 24 * time.Hour,
		Version:             "test",
	}
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	return newServiceFixtureWithConfig(t, defaultTestConfig(), nil)
}

func newServiceFixtureWithConfig(t *testing.T, config *ConversationConfig, geminiClient gemini.IGemini) *serviceFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := &fakeConversationRepo{
		sessions:    newFakeSessions(),
		submissions: &fakeSubmissions{},
	}
	autofillSvc := &fakeAutofill{}

	svc := NewConversationService(
		logger,
		repo,
		utils.New(),
		nlp.NewProcessor(),
		config,
		autofillSvc,
		nil,
		geminiClient,
		nil,
	)

	return &serviceFixture{svc: svc, repo: repo, autofill: autofillSvc}
}

func (f *serviceFixture) createSession(t *testing.T, userID string, fields ...conversation.FieldPayload) string {
	t.Helper()

	resp, err := f.svc.CreateSession(context.Background(), conversation.CreateSessionRequest{
		FormSchema: conversation.FormSchemaPayload{Title: "Contact Form", Fields: fields},
		FormURL:    "https://example.com/contact",
		UserID:     userID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionID)

	return resp.SessionID
}

func (f *serviceFixture) send(t *testing.T, sessionID, message string) *conversation.MessageResponse {
	t.Helper()

	return f.sendWithASR(t, sessionID, message, 0)
}

func (f *serviceFixture) sendWithASR(t *testing.T, sessionID, message string, asrConfidence float64) *conversation.MessageResponse {
	t.Helper()

	resp, err := f.svc.ProcessMessage(context.Background(), conversation.MessageRequest{
		SessionID:     sessionID,
		Message:       message,
		ASRConfidence: asrConfidence,
	})
	require.NoError(t, err)

	return resp
}

func (f *serviceFixture) session(t *testing.T, sessionID string) *entity.ConversationSession {
	t.Helper()

	session := f.repo.sessions.get(sessionID)
	require.NotNil(t, session)

	return session
}

func contactFields() []conversation.FieldPayload {
	return []conversation.FieldPayload{
		{Name: "full_name", Label: "Full Name", Type: "text", Required: true},
		{Name: "email", Label: "Email Address", Type: "email", Required: true},
		{Name: "phone", Label: "Phone Number", Type: "tel"},
	}
}

func emailOnly() []conversation.FieldPayload {
	return []conversation.FieldPayload{
		{Name: "email", Label: "Email Address", Type: "email", Required: true},
	}
}
