package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/internal/dto"
	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/model"
	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/internal/repository/contract"
	"socratic-tutor-be/internal/repository/implementation"
	"socratic-tutor-be/internal/repository/memory"
	"socratic-tutor-be/internal/repository/specification"
	"socratic-tutor-be/internal/repository/unitofwork"
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/executor"
	"socratic-tutor-be/pkg/llm"
	"socratic-tutor-be/pkg/stage"
	"socratic-tutor-be/pkg/usage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeModel struct {
	mu      sync.Mutex
	replies map[string]string
	calls   []string
}

func (f *fakeModel) Generate(ctx context.Context, req llm.Request, opts ...llm.Option) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Name)
	text, ok := f.replies[req.Name]
	if !ok {
		text = "What would you say to someone who disagrees?"
	}
	return &llm.Response{
		Text:  text,
		Model: "fake-llm",
		Usage: usage.Raw{PromptTokenCount: 10, CandidatesTokenCount: 5},
	}, nil
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSpeech struct {
	transcript string
	transErr   error
	audio      []byte
	synthErr   error
}

func (f *fakeSpeech) Transcribe(ctx context.Context, audio []byte, mimeType string) (*llm.Transcript, error) {
	if f.transErr != nil {
		return nil, f.transErr
	}
	return &llm.Transcript{Text: f.transcript, Model: "fake-stt", Usage: usage.Raw{PromptTokenCount: 3}}, nil
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string) (*llm.Speech, error) {
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return &llm.Speech{Audio: f.audio, MimeType: "audio/wav", Model: "fake-tts", Usage: usage.Raw{PromptTokenCount: 4}}, nil
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []*dto.TurnRecordedMessage
}

func (p *capturePublisher) PublishTurnRecorded(ctx context.Context, msg *dto.TurnRecordedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

type harness struct {
	db        *gorm.DB
	svc       *conversationService
	subs      ISubmissionService
	model     *fakeModel
	speech    *fakeSpeech
	publisher *capturePublisher
	now       time.Time
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Assignment{}, &model.Conversation{}, &model.Turn{}, &model.Submission{}))
	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	h := &harness{
		db: db,
		model: &fakeModel{replies: map[string]string{
			"stance.analyzer":  `{"action":"establish","message":"clear stance","position":"Lying is always wrong","reason":"it breaks trust"}`,
			"closure.analyzer": `{"action":"conclude","message":"ready to wrap up"}`,
			"closure.summary":  `{"message":"Thank you for the discussion.","summary":"Held that lying breaks trust.","discussionSatisfied":true}`,
		}},
		speech:    &fakeSpeech{transcript: "I think lying is always wrong", audio: []byte("RIFF")},
		publisher: &capturePublisher{},
		now:       time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}

	registry, err := stage.DefaultRegistry()
	require.NoError(t, err)

	nop := logger.NewNopLogger()
	factory := &executor.Factory{
		Text:        h.model,
		Transcriber: h.speech,
		Synthesizer: h.speech,
		Policy:      executor.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Log:         nop,
	}
	uowFactory := unitofwork.NewRepositoryFactory(db)
	cache := memory.NewAssignmentCache(time.Minute)

	svc := NewConversationService(uowFactory, cache, factory, stage.NewEngine(registry, 3, nop), h.publisher,
		map[string]string{usage.FeatureLanguageModel: "fake-llm"}, nop).(*conversationService)
	svc.now = func() time.Time { return h.now }
	h.svc = svc
	h.subs = NewSubmissionService(uowFactory, cache, nil, nop)
	return h
}

func (h *harness) assignment(t *testing.T, mutate ...func(*entity.Assignment)) *entity.Assignment {
	t.Helper()
	a := &entity.Assignment{Title: "Ethics", Topic: "Honesty", Question: "Is lying ever justified?"}
	for _, m := range mutate {
		m(a)
	}
	require.NoError(t, implementation.NewAssignmentRepository(h.db).Create(context.Background(), a))
	return a
}

// conversation stores a conversation directly, bypassing StartConversation.
func (h *harness) conversation(t *testing.T, a *entity.Assignment, user uuid.UUID, st dialogue.State, ended bool) *entity.Conversation {
	t.Helper()
	c := &entity.Conversation{
		Id:            ConversationID(user, a.Id),
		AssignmentId:  a.Id,
		UserId:        user,
		State:         dialogue.ConversationStateFor(st.Stage, ended),
		DialogueState: st,
		TokenUsage:    usage.FromTotals(nil),
		LastActionAt:  h.now,
	}
	created, err := implementation.NewConversationRepository(h.db).Create(context.Background(), c)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, implementation.NewSubmissionRepository(h.db).EnsureOpen(context.Background(), a.Id, user, c.Id))
	return c
}

func (h *harness) turns(t *testing.T, id uuid.UUID) []*entity.Turn {
	t.Helper()
	turns, err := implementation.NewConversationRepository(h.db).FindTurns(context.Background(), id)
	require.NoError(t, err)
	return turns
}

func (h *harness) submission(t *testing.T, a *entity.Assignment, user uuid.UUID) *entity.Submission {
	t.Helper()
	sub, err := implementation.NewSubmissionRepository(h.db).FindOne(context.Background(),
		specification.ByAssignmentID{AssignmentID: a.Id}, specification.ByUserID{UserID: user})
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}

func TestConversationIDIsDeterministic(t *testing.T) {
	u, a := uuid.New(), uuid.New()
	assert.Equal(t, ConversationID(u, a), ConversationID(u, a))
	assert.NotEqual(t, ConversationID(u, a), ConversationID(a, u))
	assert.NotEqual(t, ConversationID(u, a), ConversationID(uuid.New(), a))
}

func TestStartConversationCollapsesDuplicates(t *testing.T) {
	h := newHarness(t)
	a := h.assignment(t)
	user := uuid.New()
	req := &dto.StartConversationRequest{AssignmentId: a.Id}

	first, err := h.svc.StartConversation(context.Background(), user, req)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, dialogue.ConversationAwaitingIdea, first.State)
	assert.Equal(t, string(dialogue.StageAwaitingStart), first.Stage)

	second, err := h.svc.StartConversation(context.Background(), user, req)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ConversationId, second.ConversationId)

	var conversations, submissions int64
	require.NoError(t, h.db.Model(&model.Conversation{}).Count(&conversations).Error)
	require.NoError(t, h.db.Model(&model.Submission{}).Count(&submissions).Error)
	assert.Equal(t, int64(1), conversations)
	assert.Equal(t, int64(1), submissions)
}

func TestStartConversationUnknownAssignment(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.StartConversation(context.Background(), uuid.New(), &dto.StartConversationRequest{AssignmentId: uuid.New()})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStartConversationResubmission(t *testing.T) {
	h := newHarness(t)
	user := uuid.New()
	closedState := dialogue.Close(dialogue.TransitionTo(dialogue.NewState("Honesty"), dialogue.StageClosure), "done", true)

	strict := h.assignment(t)
	h.conversation(t, strict, user, closedState, true)
	_, err := h.svc.StartConversation(context.Background(), user, &dto.StartConversationRequest{AssignmentId: strict.Id})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	lenient := h.assignment(t, func(a *entity.Assignment) { a.AllowResubmission = true })
	c := h.conversation(t, lenient, user, closedState, true)
	_, err = implementation.NewSubmissionRepository(h.db).Finalize(context.Background(), contract.FinalizeSubmissionInput{
		AssignmentId: lenient.Id, UserId: user, ConversationId: c.Id, At: h.now,
	})
	require.NoError(t, err)

	resp, err := h.svc.StartConversation(context.Background(), user, &dto.StartConversationRequest{AssignmentId: lenient.Id})
	require.NoError(t, err)
	assert.True(t, resp.Reset)
	assert.Equal(t, c.Id, resp.ConversationId)
	assert.Equal(t, dialogue.ConversationAwaitingIdea, resp.State)
	assert.Equal(t, string(dialogue.StageAwaitingStart), resp.Stage)
	assert.Equal(t, entity.SubmissionStatusInProgress, h.submission(t, lenient, user).Status)
}

func TestSubmitTurnLoadRejections(t *testing.T) {
	h := newHarness(t)
	a := h.assignment(t)
	owner := uuid.New()
	open := h.conversation(t, a, owner, dialogue.NewState("Honesty"), false)

	other := h.assignment(t)
	closedState := dialogue.Close(dialogue.TransitionTo(dialogue.NewState("Honesty"), dialogue.StageClosure), "done", true)
	closed := h.conversation(t, other, owner, closedState, true)

	tests := []struct {
		name string
		user uuid.UUID
		id   uuid.UUID
		want error
	}{
		{"missing conversation", owner, uuid.New(), apperror.ErrNotFound},
		{"someone else's conversation", uuid.New(), open.Id, apperror.ErrForbidden},
		{"closed conversation", owner, closed.Id, apperror.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.SubmitTurn(context.Background(), tt.user, tt.id, &dto.SubmitTurnRequest{Text: "hello"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, h.model.callCount())
}

func TestSubmitTurnPersistsBothTurns(t *testing.T) {
	h := newHarness(t)
	a := h.assignment(t)
	user := uuid.New()
	c := h.conversation(t, a, user, dialogue.NewState(a.Topic), false)

	resp, err := h.svc.SubmitTurn(context.Background(), user, c.Id, &dto.SubmitTurnRequest{Text: "Lying is always wrong"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Text)
	assert.Equal(t, []byte("RIFF"), resp.Audio)
	assert.Equal(t, "audio/wav", resp.AudioMimeType)
	assert.False(t, resp.ConversationEnded)
	assert.Equal(t, string(dialogue.StageCaseChallenge), resp.Stage)
	assert.Equal(t, dialogue.ConversationAddingCounterpoint, resp.State)
	assert.Equal(t, int64(1), resp.Version)
	require.NotNil(t, resp.Stance)
	assert.Equal(t, "Lying is always wrong", resp.Stance.Position)

	assert.Contains(t, resp.TokenUsage.ByFeature, usage.FeatureLanguageModel)
	assert.Contains(t, resp.TokenUsage.ByFeature, usage.FeatureSpeechSynthesis)
	assert.NotContains(t, resp.TokenUsage.ByFeature, usage.FeatureSpeechRecognition)
	assert.Equal(t, "fake-llm", resp.TokenUsage.Models[usage.FeatureLanguageModel])
	assert.Equal(t, "fake-tts", resp.TokenUsage.Models[usage.FeatureSpeechSynthesis])
	// two language calls of 15 tokens plus 4 synthesis tokens
	assert.Equal(t, int64(34), resp.TokenUsage.Totals.TotalTokenCount)

	turns := h.turns(t, c.Id)
	require.Len(t, turns, 2)
	assert.Equal(t, resp.UserTurnId, turns[0].Id)
	assert.Equal(t, dialogue.TurnIdea, turns[0].Type)
	assert.Equal(t, resp.AiTurnId, turns[1].Id)
	assert.Equal(t, dialogue.TurnCounterpoint, turns[1].Type)
	require.NotNil(t, turns[1].Analysis)
	assert.Equal(t, "Lying is always wrong", turns[1].Analysis.Stance.Position)
	require.NotNil(t, turns[1].TokenUsage)
	assert.Equal(t, int64(34), turns[1].TokenUsage.Totals.TotalTokenCount)

	require.Len(t, h.publisher.msgs, 1)
	assert.Equal(t, c.Id, h.publisher.msgs[0].ConversationId)
	assert.False(t, h.publisher.msgs[0].Finalized)

	got, err := h.svc.GetConversation(context.Background(), user, c.Id)
	require.NoError(t, err)
	assert.Len(t, got.Turns, 2)
	assert.Equal(t, int64(34), got.TokenUsage.Totals.TotalTokenCount)

	_, err = h.svc.GetConversation(context.Background(), uuid.New(), c.Id)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestSubmitTurnFromAudio(t *testing.T) {
	h := newHarness(t)
	a := h.assignment(t)
	user := uuid.New()
	c := h.conversation(t, a, user, dialogue.NewState(a.Topic), false)

	resp, err := h.svc.SubmitTurn(context.Background(), user, c.Id, &dto.SubmitTurnRequest{Audio: []byte{1, 2, 3}, MimeType: "audio/webm"})
	require.NoError(t, err)

	assert.Equal(t, "I think lying is always wrong", resp.Transcript)
	assert.Contains(t, resp.TokenUsage.ByFeature, usage.FeatureSpeechRecognition)
	assert.Equal(t, "fake-stt", resp.TokenUsage.Models[usage.FeatureSpeechRecognition])

	turns := h.turns(t, c.Id)
	require.Len(t, turns, 2)
	assert.Equal(t, "I think lying is always wrong", turns[0].Text)
}

func TestSubmitTurnFailuresPersistNothing(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness)
		request *dto.SubmitTurnRequest
		want    error
		llmUsed bool
	}{
		{
			name:    "transcription fails",
			setup:   func(h *harness) { h.speech.transErr = errors.New("stt down") },
			request: &dto.SubmitTurnRequest{Audio: []byte{1}, MimeType: "audio/webm"},
			want:    apperror.ErrTranscriptionFailed,
		},
		{
			name:    "blank transcription",
			setup:   func(h *harness) { h.speech.transcript = "   " },
			request: &dto.SubmitTurnRequest{Audio: []byte{1}, MimeType: "audio/webm"},
			want:    apperror.ErrTranscriptionFailed,
		},
		{
			name:    "synthesis fails",
			setup:   func(h *harness) { h.speech.synthErr = errors.New("tts down") },
			request: &dto.SubmitTurnRequest{Text: "Lying is wrong"},
			want:    apperror.ErrSynthesisFailed,
			llmUsed: true,
		},
		{
			name:    "synthesis returns no audio",
			setup:   func(h *harness) { h.speech.audio = nil },
			request: &dto.SubmitTurnRequest{Text: "Lying is wrong"},
			want:    apperror.ErrSynthesisFailed,
			llmUsed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)
			a := h.assignment(t)
			user := uuid.New()
			c := h.conversation(t, a, user, dialogue.NewState(a.Topic), false)

			_, err := h.svc.SubmitTurn(context.Background(), user, c.Id, tt.request)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, apperror.IsRecoverable(err))
			assert.Equal(t, tt.llmUsed, h.model.callCount() > 0)

			assert.Empty(t, h.turns(t, c.Id))
			stored, err := implementation.NewConversationRepository(h.db).FindOne(context.Background(), specification.ByID{ID: c.Id})
			require.NoError(t, err)
			assert.Equal(t, int64(0), stored.Version)
			assert.Empty(t, h.publisher.msgs)
		})
	}
}

func TestSubmitTurnOutsideSubmissionWindow(t *testing.T) {
	h := newHarness(t)
	due := h.now.Add(-time.Hour)

	strict := h.assignment(t, func(a *entity.Assignment) { a.DueAt = &due })
	user := uuid.New()
	c := h.conversation(t, strict, user, dialogue.NewState(strict.Topic), false)
	_, err := h.svc.SubmitTurn(context.Background(), user, c.Id, &dto.SubmitTurnRequest{Text: "hello"})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Zero(t, h.model.callCount())

	late := h.assignment(t, func(a *entity.Assignment) { a.DueAt = &due; a.AllowLate = true })
	c = h.conversation(t, late, user, dialogue.NewState(late.Topic), false)
	_, err = h.svc.SubmitTurn(context.Background(), user, c.Id, &dto.SubmitTurnRequest{Text: "hello"})
	assert.NoError(t, err)
}

func TestConcludingTurnFinalizesSubmission(t *testing.T) {
	h := newHarness(t)
	due := h.now.Add(-time.Minute)
	a := h.assignment(t, func(a *entity.Assignment) { a.DueAt = &due; a.AllowLate = true })
	user := uuid.New()
	st := dialogue.TransitionTo(dialogue.UpdateStance(dialogue.NewState(a.Topic), "Lying is wrong", "trust"), dialogue.StageClosure)
	c := h.conversation(t, a, user, st, false)

	resp, err := h.svc.SubmitTurn(context.Background(), user, c.Id, &dto.SubmitTurnRequest{Text: "I think we covered it"})
	require.NoError(t, err)
	assert.True(t, resp.ConversationEnded)
	assert.Equal(t, dialogue.ConversationClosed, resp.State)
	assert.Equal(t, "Thank you for the discussion.", resp.Text)
	require.NotNil(t, resp.Summary)
	assert.True(t, resp.Late)

	turns := h.turns(t, c.Id)
	require.Len(t, turns, 2)
	assert.Equal(t, dialogue.TurnSummary, turns[1].Type)

	sub := h.submission(t, a, user)
	assert.Equal(t, entity.SubmissionStatusSubmitted, sub.Status)
	assert.True(t, sub.Late)
	require.NotNil(t, sub.SubmittedAt)
	assert.True(t, h.now.Equal(*sub.SubmittedAt))

	require.Len(t, h.publisher.msgs, 1)
	assert.True(t, h.publisher.msgs[0].Finalized)

	_, err = h.svc.SubmitTurn(context.Background(), user, c.Id, &dto.SubmitTurnRequest{Text: "one more thing"})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Len(t, h.turns(t, c.Id), 2)
}

// racingEngine lets another writer commit a turn while the pipeline is
// still talking to the model.
type racingEngine struct {
	inner TurnEngine
	db    *gorm.DB
}

func (e *racingEngine) Process(ctx context.Context, in stage.Input) (*stage.Output, error) {
	out, err := e.inner.Process(ctx, in)
	if err != nil {
		return nil, err
	}
	id := uuid.MustParse(in.ConversationID)
	user := uuid.MustParse(in.UserID)
	_, err = implementation.NewConversationRepository(e.db).AppendTurns(ctx, contract.AppendTurnsInput{
		ConversationId:  id,
		UserId:          user,
		ExpectedVersion: 0,
		Turns: []*entity.Turn{
			{Role: dialogue.RoleUser, Type: dialogue.TurnIdea, Text: "other tab"},
			{Role: dialogue.RoleModel, Type: dialogue.TurnCounterpoint, Text: "other reply"},
		},
		DialogueState: out.State,
		At:            time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func TestSubmitTurnLosesRaceWithStaleState(t *testing.T) {
	h := newHarness(t)
	h.svc.engine = &racingEngine{inner: h.svc.engine, db: h.db}
	a := h.assignment(t)
	user := uuid.New()
	c := h.conversation(t, a, user, dialogue.NewState(a.Topic), false)

	_, err := h.svc.SubmitTurn(context.Background(), user, c.Id, &dto.SubmitTurnRequest{Text: "Lying is wrong"})
	require.ErrorIs(t, err, apperror.ErrStaleState)

	turns := h.turns(t, c.Id)
	require.Len(t, turns, 2)
	assert.Equal(t, "other tab", turns[0].Text)
}

func TestSweepClosedFinalizesPendingSubmissions(t *testing.T) {
	h := newHarness(t)
	a := h.assignment(t)
	user := uuid.New()
	closedState := dialogue.Close(dialogue.TransitionTo(dialogue.NewState(a.Topic), dialogue.StageClosure), "done", true)
	h.conversation(t, a, user, closedState, true)

	openOne := h.assignment(t)
	h.conversation(t, openOne, uuid.New(), dialogue.NewState(openOne.Topic), false)

	n, err := h.subs.SweepClosed(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, entity.SubmissionStatusSubmitted, h.submission(t, a, user).Status)

	n, err = h.subs.SweepClosed(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}
