package conversationService

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"FormFlowGolang/internal/api/autofill"
	"FormFlowGolang/internal/api/conversation"
	"FormFlowGolang/internal/entity"
	"FormFlowGolang/pkg/nlp"

	"github.com/stretchr/testify/require"
)

func TestCreateSessionGreetsAndQueuesQuestions(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.svc.CreateSession(context.Background(), conversation.CreateSessionRequest{
		FormSchema: conversation.FormSchemaPayload{Title: "Contact Form", Fields: contactFields()},
		FormURL:    "https://example.com/contact",
	})
	require.NoError(t, err)

	require.Equal(t,
		"Hi! Let's fill out Contact Form together. I have 3 questions for you. "+
			"You can say skip, repeat, go back, or stop at any time. "+
			"What is your full name?",
		resp.Greeting)
	require.Equal(t, []string{
		"What is your full name?",
		"What is your email address? You can spell it out if that is easier.",
		"What is your phone number? Digits one at a time work fine.",
	}, resp.NextQuestions)
	require.Equal(t, 3, resp.RemainingFieldsCount)

	session := f.session(t, resp.SessionID)
	require.Equal(t, entity.StateAwaitingInput, session.State)
	require.Equal(t, "full_name", session.CurrentField)
	require.Empty(t, session.Collected)
}

func TestCreateSessionRejectsFormWithNoAskableFields(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.CreateSession(context.Background(), conversation.CreateSessionRequest{
		FormSchema: conversation.FormSchemaPayload{Fields: []conversation.FieldPayload{
			{Name: "csrf_token", Type: "hidden"},
			{Name: "submit", Type: "submit"},
		}},
		FormURL: "https://example.com/contact",
	})
	require.ErrorIs(t, err, conversation.ErrNoAskableFields)
}

func TestHighConfidenceAnswerCommitsAndAdvances(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)

	resp := f.send(t, id, "my name is John Smith")

	require.Equal(t,
		"Got it, full name: John Smith. What is your email address? You can spell it out if that is easier.",
		resp.Response)
	require.False(t, resp.NeedsConfirmation)
	require.Equal(t, "John Smith", resp.ExtractedValues["full_name"])
	require.InDelta(t, 0.85, resp.ConfidenceScores["full_name"], 0.0001)
	require.Equal(t, 2, resp.RemainingFieldsCount)
	require.Equal(t, "en-US", resp.DetectedLanguage)

	session := f.session(t, id)
	require.Equal(t, "email", session.CurrentField)
	require.Equal(t, entity.StateAwaitingInput, session.State)

	data := session.Collected["full_name"]
	require.Equal(t, "John Smith", data.Value)
	require.InDelta(t, 0.85, data.Confidence, 0.0001)
	require.Equal(t, "keyword", data.Source)

	require.Len(t, session.CommitLog, 1)
	require.Len(t, session.QAHistory, 1)
	require.Equal(t, "What is your full name?", session.QAHistory[0].Question)
	require.Equal(t, "my name is John Smith", session.QAHistory[0].Answer)
}

func TestMidConfidenceAnswerAsksForConfirmation(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", emailOnly()...)

	resp := f.send(t, id, "john at gmail")

	require.True(t, resp.NeedsConfirmation)
	require.Equal(t,
		"I think you said john@gmail for your email address. Did I get that right? "+
			"One thing to note: value does not look like a valid email address.",
		resp.Response)
	require.Equal(t, "john@gmail", resp.ExtractedValues["email"])
	require.InDelta(t, 0.6, resp.ConfidenceScores["email"], 0.0001)

	session := f.session(t, id)
	require.Equal(t, entity.StateAwaitingConfirmation, session.State)
	require.NotNil(t, session.Pending)
	require.Equal(t, "john@gmail", session.Pending.Value)
	require.Empty(t, session.Collected)
}

func TestConfirmationYesCommitsAtFullConfidence(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", emailOnly()...)
	f.send(t, id, "john at gmail")

	resp := f.send(t, id, "yes")

	require.Equal(t,
		"Perfect, john@gmail it is. That's everything! Your answer is saved. "+
			"You can close the form whenever you're ready.",
		resp.Response)
	require.True(t, resp.IsComplete)
	require.Equal(t, 0, resp.RemainingFieldsCount)

	// the flagged format issue rides along but never blocks the commit
	require.Equal(t, []string{"value does not look like a valid email address"}, resp.ValidationIssues["email"])

	session := f.session(t, id)
	require.Equal(t, entity.StateComplete, session.State)
	require.Nil(t, session.Pending)

	data := session.Collected["email"]
	require.Equal(t, "john@gmail", data.Value)
	require.Equal(t, 1.0, data.Confidence)
	require.Equal(t, "confirmed", data.Source)
}

func TestConfirmationRejectionOffersCorrectedSuggestion(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", emailOnly()...)
	f.send(t, id, "john at gmail")

	resp := f.send(t, id, "no")

	require.Equal(t,
		"Sorry, I didn't catch your email address. Could you say it once more? Did you mean john@gmail.com?",
		resp.Response)
	require.Equal(t, []string{"john@gmail.com"}, resp.Suggestions)
	require.Equal(t, entity.StateAwaitingClarification, f.session(t, id).State)

	// a lone yes against a single offered suggestion picks it
	resp = f.send(t, id, "yes")

	require.Equal(t,
		"Got it, john@gmail.com. That's everything! Your answer is saved. "+
			"You can close the form whenever you're ready.",
		resp.Response)
	require.True(t, resp.IsComplete)

	data := f.session(t, id).Collected["email"]
	require.Equal(t, "john@gmail.com", data.Value)
	require.Equal(t, 1.0, data.Confidence)
	require.Equal(t, "suggestion", data.Source)
}

func TestConfirmationNoWithInlineCorrection(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", emailOnly()...)
	f.send(t, id, "john at gmail")

	resp := f.send(t, id, "no, jane@gmail.com")

	require.Equal(t,
		"Got it, email address: jane@gmail.com. That's everything! Your answer is saved. "+
			"You can close the form whenever you're ready.",
		resp.Response)
	require.True(t, resp.IsComplete)
	require.Equal(t, "jane@gmail.com", f.session(t, id).Collected["email"].Value)
}

func TestRepeatDuringConfirmationKeepsPending(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", emailOnly()...)
	f.send(t, id, "john at gmail")

	resp := f.send(t, id, "repeat")

	require.True(t, resp.NeedsConfirmation)
	require.Contains(t, resp.Response, "I think you said john@gmail for your email address.")
	require.NotNil(t, f.session(t, id).Pending)

	resp = f.send(t, id, "yes")
	require.True(t, resp.IsComplete)
	require.Equal(t, "john@gmail", f.session(t, id).Collected["email"].Value)
}

func TestGarbledAnswerOffersRankedSuggestions(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", emailOnly()...)

	resp := f.send(t, id, "blah blah")

	require.Equal(t,
		"Sorry, I didn't catch your email address. Could you say it once more? "+
			"Did you mean blahblah@gmail.com, blahblah@yahoo.com, or blahblah@outlook.com?",
		resp.Response)
	require.Equal(t, []string{"blahblah@gmail.com", "blahblah@yahoo.com", "blahblah@outlook.com"}, resp.Suggestions)

	// picking by position commits the suggestion outright
	resp = f.send(t, id, "the first one")

	require.Equal(t,
		"Got it, blahblah@gmail.com. That's everything! Your answer is saved. "+
			"You can close the form whenever you're ready.",
		resp.Response)
	require.True(t, resp.IsComplete)

	data := f.session(t, id).Collected["email"]
	require.Equal(t, "blahblah@gmail.com", data.Value)
	require.Equal(t, 1.0, data.Confidence)
	require.Equal(t, "suggestion", data.Source)
}

func TestClarificationEscalatesThenRecovers(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "",
		conversation.FieldPayload{Name: "phone", Label: "Phone Number", Type: "tel", Required: true},
	)

	prompts := []string{
		"Sorry, I didn't catch your phone number. Could you say it once more?",
		"I'm still not sure about your phone number. Digits one at a time work best, for example: five five five, one two three four.",
		"Let's take your number three digits at a time. What are the first three?",
		"Let's not get stuck on your phone number. You can say skip to move on, or give it one more try.",
	}
	for _, want := range prompts {
		resp := f.send(t, id, "mumble")
		require.Equal(t, want, resp.Response)
		require.Empty(t, resp.Suggestions)
	}
	require.Equal(t, 4, f.session(t, id).ClarifyAttempts["phone"])

	resp := f.send(t, id, "five five five one two three four five six seven")

	require.Equal(t,
		"Got it, phone number: 555-123-4567. That's everything! Your answer is saved. "+
			"You can close the form whenever you're ready.",
		resp.Response)
	require.True(t, resp.IsComplete)

	session := f.session(t, id)
	require.Equal(t, "555-123-4567", session.Collected["phone"].Value)
	require.Empty(t, session.ClarifyAttempts)
}

func TestSkippedFieldComesBackOnce(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)

	resp := f.send(t, id, "skip")
	require.Equal(t,
		"No problem, we can come back to full name later. "+
			"What is your email address? You can spell it out if that is easier.",
		resp.Response)
	require.Equal(t, 3, resp.RemainingFieldsCount)

	f.send(t, id, "john at gmail dot com")
	resp = f.send(t, id, "five five five one two three four five six seven")

	// the skipped question comes back around once the queue runs dry
	require.Equal(t, "Got it, phone number: 555-123-4567. What is your full name?", resp.Response)
	require.Equal(t, 1, resp.RemainingFieldsCount)
	require.Equal(t, "full_name", f.session(t, id).CurrentField)

	// declining a second time leaves it blank for good
	resp = f.send(t, id, "skip")
	require.Equal(t,
		"Okay, we'll leave full name blank. That's everything! All 2 answers are saved. "+
			"You can close the form whenever you're ready.",
		resp.Response)
	require.True(t, resp.IsComplete)

	session := f.session(t, id)
	require.Equal(t, entity.StateComplete, session.State)
	require.Len(t, session.Collected, 2)
	require.NotContains(t, session.Collected, "full_name")
}

func TestBackUndoesLastCommit(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)
	f.send(t, id, "my name is John Smith")
	f.send(t, id, "john at gmail dot com")

	resp := f.send(t, id, "back")

	require.Equal(t,
		"Sure, let's redo your email address. What is your email address? You can spell it out if that is easier.",
		resp.Response)
	require.Equal(t, 2, resp.RemainingFieldsCount)

	session := f.session(t, id)
	require.Equal(t, "email", session.CurrentField)
	require.Equal(t, []string{"email", "phone"}, session.RemainingFields)
	require.NotContains(t, session.Collected, "email")
	require.Contains(t, session.Collected, "full_name")

	resp = f.send(t, id, "jane at gmail dot com")
	require.Contains(t, resp.Response, "Got it, email address: jane@gmail.com.")
	require.Equal(t, "phone", f.session(t, id).CurrentField)
}

func TestBackWithNothingCommitted(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)

	resp := f.send(t, id, "go back")

	require.Equal(t, "There's nothing to go back to yet. What is your full name?", resp.Response)
}

func TestStopEndsConversationKeepingAnswers(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)
	f.send(t, id, "my name is John Smith")

	resp := f.send(t, id, "stop")

	require.Equal(t, "Alright, stopping here. I kept the answer you gave me.", resp.Response)
	require.True(t, resp.IsComplete)
	require.Equal(t, entity.StateComplete, f.session(t, id).State)

	// anything said after stopping gets the same closing answer
	resp = f.send(t, id, "hello")
	require.Equal(t, "All your answers are already in. You're good to go!", resp.Response)
}

func TestStopWithNothingFilledIn(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)

	resp := f.send(t, id, "stop")

	require.Equal(t, "Alright, stopping here. Nothing was filled in yet.", resp.Response)
	require.True(t, resp.IsComplete)
}

func TestBatchAnswerFillsMultipleFields(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)

	resp := f.send(t, id, "my name is John Smith and my email is john at gmail dot com")

	// the unambiguous email commits, the name still gets a yes/no
	require.Equal(t,
		"Great, I filled in email address. "+
			"I think you said John Smith for your full name. Did I get that right?",
		resp.Response)
	require.True(t, resp.NeedsConfirmation)
	require.Equal(t, "john@gmail.com", resp.ExtractedValues["email"])
	require.Equal(t, "John Smith", resp.ExtractedValues["full_name"])

	session := f.session(t, id)
	require.Equal(t, "john@gmail.com", session.Collected["email"].Value)
	require.NotContains(t, session.Collected, "full_name")

	resp = f.send(t, id, "yes")
	require.Equal(t,
		"Perfect, John Smith it is. What is your phone number? Digits one at a time work fine.",
		resp.Response)
	require.Equal(t, "John Smith", f.session(t, id).Collected["full_name"].Value)
}

func TestSpontaneousCorrectionOverwritesCommittedField(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)
	f.send(t, id, "my name is John Smith")
	f.send(t, id, "john at gmail dot com")

	resp := f.send(t, id, "actually my email is jane at gmail dot com and my phone is five five five one two three four five six seven")

	require.Equal(t,
		"Great, I filled in email address and phone number. That's everything! "+
			"All 3 answers are saved. You can close the form whenever you're ready.",
		resp.Response)
	require.True(t, resp.IsComplete)

	session := f.session(t, id)
	data := session.Collected["email"]
	require.Equal(t, "jane@gmail.com", data.Value)
	require.Equal(t, []string{"john@gmail.com"}, data.PreviousValues)
	require.Equal(t, "555-123-4567", session.Collected["phone"].Value)
}

func TestShakyTranscriptDragsConfidenceDown(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", emailOnly()...)

	// a clean extraction over a poor recording should still be confirmed
	resp := f.sendWithASR(t, id, "john at gmail dot com", 0.3)

	require.True(t, resp.NeedsConfirmation)
	require.Equal(t, "I got john@gmail.com for your email address. Is that right?", resp.Response)
	require.InDelta(t, 0.755, resp.ConfidenceScores["email"], 0.0001)

	resp = f.send(t, id, "yes")
	require.True(t, resp.IsComplete)
	require.Equal(t, 1.0, f.session(t, id).Collected["email"].Confidence)
}

func TestBusySessionRejectsConcurrentCalls(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)

	_, err := f.repo.sessions.Acquire(context.Background(), id)
	require.NoError(t, err)

	_, err = f.svc.ProcessMessage(context.Background(), conversation.MessageRequest{SessionID: id, Message: "hello"})
	require.ErrorIs(t, err, conversation.ErrSessionBusy)

	_, err = f.svc.GetSessionStatus(context.Background(), id)
	require.ErrorIs(t, err, conversation.ErrSessionBusy)

	_, err = f.svc.EndSession(context.Background(), id)
	require.ErrorIs(t, err, conversation.ErrSessionBusy)

	f.repo.sessions.Release(id)

	resp := f.send(t, id, "my name is John Smith")
	require.Equal(t, "John Smith", resp.ExtractedValues["full_name"])
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProcessMessage(ctx, conversation.MessageRequest{SessionID: "missing", Message: "hello"})
	require.ErrorIs(t, err, conversation.ErrSessionNotFound)

	_, err = f.svc.GetSessionStatus(ctx, "missing")
	require.ErrorIs(t, err, conversation.ErrSessionNotFound)

	require.ErrorIs(t, f.svc.TouchSession(ctx, "missing"), conversation.ErrSessionNotFound)

	_, err = f.svc.EndSession(ctx, "missing")
	require.ErrorIs(t, err, conversation.ErrSessionNotFound)
}

func TestSessionStatusReportsProgress(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)
	f.send(t, id, "my name is John Smith")

	f.session(t, id).LastActivity = time.Now().Add(-time.Hour)

	status, err := f.svc.GetSessionStatus(context.Background(), id)
	require.NoError(t, err)

	require.Equal(t, id, status.SessionID)
	require.Equal(t, string(entity.StateAwaitingInput), status.State)
	require.Equal(t, "email", status.CurrentField)
	require.Equal(t, 1, status.FieldsCollected)
	require.Equal(t, 2, status.RemainingFieldsCount)
	require.Equal(t, 0, status.SkippedFieldsCount)
	require.False(t, status.IsComplete)

	// checking in counts as activity
	require.WithinDuration(t, time.Now(), f.session(t, id).LastActivity, time.Second)
}

func TestTouchRefreshesIdleClock(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)

	f.session(t, id).LastActivity = time.Now().Add(-time.Hour)
	require.NoError(t, f.svc.TouchSession(context.Background(), id))
	require.WithinDuration(t, time.Now(), f.session(t, id).LastActivity, time.Second)

	// a keepalive during a turn backs off instead of blocking
	_, err := f.repo.sessions.Acquire(context.Background(), id)
	require.NoError(t, err)
	stale := time.Now().Add(-time.Hour)
	f.session(t, id).LastActivity = stale

	require.NoError(t, f.svc.TouchSession(context.Background(), id))
	require.Equal(t, stale, f.session(t, id).LastActivity)
	f.repo.sessions.Release(id)
}

func TestEndSessionReturnsDataAndArchives(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "user-1", contactFields()...)
	f.send(t, id, "my name is John Smith")

	resp, err := f.svc.EndSession(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"full_name": "John Smith"}, resp.FinalData)
	require.Equal(t, 1, resp.FieldsCollected)

	require.Eventually(t, func() bool {
		return f.repo.submissions.archivedCount() == 1
	}, time.Second, 10*time.Millisecond)

	submission, ok := f.repo.submissions.lastArchived()
	require.True(t, ok)
	require.Equal(t, id, submission.SessionID)
	require.Equal(t, "user-1", submission.UserID)
	require.Equal(t, "https://example.com/contact", submission.FormURL)
	require.Equal(t, 1, submission.FieldsCollected)

	var data map[string]string
	require.NoError(t, json.Unmarshal([]byte(submission.Data), &data))
	require.Equal(t, map[string]string{"full_name": "John Smith"}, data)

	// a second delete of the same session finds nothing
	_, err = f.svc.EndSession(context.Background(), id)
	require.ErrorIs(t, err, conversation.ErrSessionNotFound)
}

func TestEndSessionWithNothingCollectedSkipsArchive(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)

	resp, err := f.svc.EndSession(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 0, resp.FieldsCollected)
	require.Empty(t, resp.FinalData)
	require.Equal(t, 0, f.repo.submissions.archivedCount())
}

func TestCommittedValueFeedsAutofillHistory(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "user-9", contactFields()...)

	f.send(t, id, "my name is John Smith")

	require.Eventually(t, func() bool {
		return f.autofill.usageCount() == 1
	}, time.Second, 10*time.Millisecond)

	event, ok := f.autofill.lastUsage()
	require.True(t, ok)
	require.Equal(t, "user-9", event.UserID)
	require.Equal(t, "full_name", event.FieldName)
	require.Equal(t, "text", event.FieldType)
	require.Equal(t, "Full Name", event.Label)
	require.Equal(t, "John Smith", event.Value)
	require.InDelta(t, 0.85, event.Confidence, 0.0001)
}

func TestAnonymousSessionsSkipAutofillWrites(t *testing.T) {
	f := newServiceFixture(t)
	id := f.createSession(t, "", contactFields()...)

	f.send(t, id, "my name is John Smith")
	f.send(t, id, "john at gmail dot com")

	require.Equal(t, 0, f.autofill.usageCount())
}

func TestStoredAnswersOfferedWhenClarifying(t *testing.T) {
	f := newServiceFixture(t)
	f.autofill.stored = []autofill.Suggestion{{Value: "Engineering", Confidence: 0.9, UsageCount: 3}}

	id := f.createSession(t, "user-7",
		conversation.FieldPayload{
			Name: "department", Label: "Department", Type: "select",
			Options: []string{"Engineering", "Marketing", "Sales"},
		},
	)

	resp := f.send(t, id, "gibberish xyz")

	require.Equal(t,
		"Sorry, I didn't catch your department. Could you say it once more? Did you mean Engineering?",
		resp.Response)
	require.Equal(t, []string{"Engineering"}, resp.Suggestions)

	resp = f.send(t, id, "yes")

	require.True(t, resp.IsComplete)
	data := f.session(t, id).Collected["department"]
	require.Equal(t, "Engineering", data.Value)
	require.Equal(t, "suggestion", data.Source)
}

func TestProviderFailureFallsBackToHeuristics(t *testing.T) {
	config := defaultTestConfig()
	config.AIProvider = AIProviderGemini
	geminiClient := &fakeGemini{err: errors.New("deadline exceeded")}
	f := newServiceFixtureWithConfig(t, config, geminiClient)

	health := f.svc.AIHealth()
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "intelligent", health.Mode)

	id := f.createSession(t, "", emailOnly()...)
	resp := f.send(t, id, "john at gmail dot com")

	// the turn still lands through the deterministic pipeline
	require.Equal(t, "john@gmail.com", resp.ExtractedValues["email"])
	require.True(t, resp.IsComplete)

	health = f.svc.AIHealth()
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, "fallback", health.Mode)
}

func TestProviderExtractionCommitsDirectly(t *testing.T) {
	config := defaultTestConfig()
	config.AIProvider = AIProviderGemini
	geminiClient := &fakeGemini{candidates: []nlp.FieldCandidate{
		{FieldName: "email", Value: "john@gmail.com", Confidence: 0.97},
	}}
	f := newServiceFixtureWithConfig(t, config, geminiClient)

	id := f.createSession(t, "", emailOnly()...)
	resp := f.send(t, id, "uh so the address would be john at gmail dot com")

	require.True(t, resp.IsComplete)
	require.Equal(t, "john@gmail.com", resp.ExtractedValues["email"])
	require.InDelta(t, 0.97, resp.ConfidenceScores["email"], 0.0001)

	data := f.session(t, id).Collected["email"]
	require.Equal(t, "provider", data.Source)

	health := f.svc.AIHealth()
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "intelligent", health.Mode)
}

func TestProviderRecoveryRestoresIntelligentMode(t *testing.T) {
	config := defaultTestConfig()
	config.AIProvider = AIProviderGemini
	geminiClient := &fakeGemini{err: errors.New("rate limited")}
	f := newServiceFixtureWithConfig(t, config, geminiClient)

	id := f.createSession(t, "", contactFields()...)
	f.send(t, id, "my name is John Smith")
	require.Equal(t, "fallback", f.svc.AIHealth().Mode)

	geminiClient.set([]nlp.FieldCandidate{
		{FieldName: "email", Value: "john@gmail.com", Confidence: 0.96},
	}, nil)

	resp := f.send(t, id, "john at gmail dot com")
	require.Equal(t, "john@gmail.com", resp.ExtractedValues["email"])

	health := f.svc.AIHealth()
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "intelligent", health.Mode)
}

func TestReaperRemovesIdleSessionsOnly(t *testing.T) {
	f := newServiceFixture(t)
	idle := f.createSession(t, "", contactFields()...)
	fresh := f.createSession(t, "", contactFields()...)

	f.session(t, idle).LastActivity = time.Now().Add(-time.Hour)

	svc, ok := f.svc.(*conversationService)
	require.True(t, ok)
	svc.reapOnce(context.Background())

	require.Nil(t, f.repo.sessions.get(idle))
	require.NotNil(t, f.repo.sessions.get(fresh))
	require.Equal(t, 1, f.repo.submissions.sweepCount())

	// the retention sweep runs at most hourly
	svc.reapOnce(context.Background())
	require.Equal(t, 1, f.repo.submissions.sweepCount())
	require.NotNil(t, f.repo.sessions.get(fresh))
}

func TestReaperRunsOnInterval(t *testing.T) {
	config := defaultTestConfig()
	config.ReaperInterval = 10 * time.Millisecond
	f := newServiceFixtureWithConfig(t, config, nil)

	idle := f.createSession(t, "", contactFields()...)
	f.session(t, idle).LastActivity = time.Now().Add(-time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc.StartSessionReaper(ctx)

	require.Eventually(t, func() bool {
		return f.repo.sessions.get(idle) == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealthReportsVersionAndMode(t *testing.T) {
	f := newServiceFixture(t)

	health := f.svc.Health()
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "test", health.Version)

	aiHealth := f.svc.AIHealth()
	require.Equal(t, "healthy", aiHealth.Status)
	require.Equal(t, "fallback", aiHealth.Mode)
	require.Equal(t, "test", aiHealth.Version)
}
