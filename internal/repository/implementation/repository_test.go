package implementation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/model"
	"socratic-tutor-be/internal/repository/contract"
	"socratic-tutor-be/internal/repository/specification"
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/usage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

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

func seedConversation(t *testing.T, repo contract.ConversationRepository, userID uuid.UUID) *entity.Conversation {
	t.Helper()
	c := &entity.Conversation{
		Id:            uuid.New(),
		AssignmentId:  uuid.New(),
		UserId:        userID,
		State:         dialogue.ConversationAwaitingIdea,
		DialogueState: dialogue.NewState("Is lying ever justified?"),
		TokenUsage:    usage.FromTotals(nil),
		LastActionAt:  time.Now().UTC(),
	}
	created, err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	require.True(t, created)
	return c
}

func exchange(text string) []*entity.Turn {
	return []*entity.Turn{
		{Role: dialogue.RoleUser, Type: dialogue.TurnIdea, Text: text},
		{Role: dialogue.RoleModel, Type: dialogue.TurnCounterpoint, Text: "What about a white lie?"},
	}
}

func oneFeature(prompt int32) usage.Report {
	return usage.NewReport([]usage.Entry{{Feature: usage.FeatureLanguageModel, Raw: usage.Raw{PromptTokenCount: prompt}}})
}

func TestConversationCreateIsIdempotentForSameID(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	c := seedConversation(t, repo, uuid.New())

	again := *c
	created, err := repo.Create(context.Background(), &again)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&model.Conversation{}).Where("id = ?", c.Id).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAppendTurnsWritesTurnsStateAndUsage(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	user := uuid.New()
	c := seedConversation(t, repo, user)

	state := dialogue.TransitionTo(c.DialogueState, dialogue.StageCaseChallenge)
	at := time.Now().UTC()
	out, err := repo.AppendTurns(context.Background(), contract.AppendTurnsInput{
		ConversationId:  c.Id,
		UserId:          user,
		ExpectedVersion: c.Version,
		Turns:           exchange("No, never."),
		DialogueState:   state,
		Usage:           oneFeature(10),
		At:              at,
	})
	require.NoError(t, err)
	assert.Equal(t, c.Version+1, out.Version)
	assert.Equal(t, dialogue.ConversationAddingCounterpoint, out.State)

	_, err = repo.AppendTurns(context.Background(), contract.AppendTurnsInput{
		ConversationId:  c.Id,
		UserId:          user,
		ExpectedVersion: out.Version,
		Turns:           exchange("Still no."),
		DialogueState:   state,
		Usage:           oneFeature(5),
		At:              at,
	})
	require.NoError(t, err)

	turns, err := repo.FindTurns(context.Background(), c.Id)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	for i, turn := range turns {
		assert.Equal(t, i+1, turn.Seq)
	}
	assert.Equal(t, "Still no.", turns[2].Text)

	stored, err := repo.FindOne(context.Background(), specification.ByID{ID: c.Id})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(15), stored.TokenUsage.Totals.PromptTokenCount)
	assert.Equal(t, int64(15), stored.TokenUsage.ByFeature[usage.FeatureLanguageModel].PromptTokenCount)
	assert.Equal(t, dialogue.StageCaseChallenge, stored.DialogueState.Stage)
}

func TestAppendTurnsRejections(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	owner := uuid.New()
	c := seedConversation(t, repo, owner)

	closed := seedConversation(t, repo, owner)
	ended := dialogue.Close(dialogue.TransitionTo(closed.DialogueState, dialogue.StageClosure), "done", true)
	_, err := repo.AppendTurns(context.Background(), contract.AppendTurnsInput{
		ConversationId: closed.Id, UserId: owner, ExpectedVersion: closed.Version,
		Turns: exchange("final"), DialogueState: ended, Ended: true, At: time.Now(),
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input contract.AppendTurnsInput
		want  error
	}{
		{
			name:  "unknown conversation",
			input: contract.AppendTurnsInput{ConversationId: uuid.New(), UserId: owner},
			want:  apperror.ErrNotFound,
		},
		{
			name:  "other user",
			input: contract.AppendTurnsInput{ConversationId: c.Id, UserId: uuid.New(), ExpectedVersion: c.Version},
			want:  apperror.ErrForbidden,
		},
		{
			name:  "stale version",
			input: contract.AppendTurnsInput{ConversationId: c.Id, UserId: owner, ExpectedVersion: c.Version + 7},
			want:  apperror.ErrStaleState,
		},
		{
			name:  "closed conversation",
			input: contract.AppendTurnsInput{ConversationId: closed.Id, UserId: owner, ExpectedVersion: closed.Version + 1},
			want:  apperror.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Turns = exchange("again")
			tt.input.At = time.Now()
			_, err := repo.AppendTurns(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	turns, err := repo.FindTurns(context.Background(), c.Id)
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = repo.FindTurns(context.Background(), closed.Id)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestResetRequiresCurrentVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	c := seedConversation(t, repo, uuid.New())

	c.State = dialogue.ConversationAwaitingIdea
	require.NoError(t, repo.Reset(context.Background(), c))
	assert.Equal(t, int64(1), c.Version)

	c.Version = 0
	assert.ErrorIs(t, repo.Reset(context.Background(), c), apperror.ErrStaleState)
}

func TestFinalizeSubmissionIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()
	assignment, user, conversation := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, repo.EnsureOpen(ctx, assignment, user, conversation))
	require.NoError(t, repo.EnsureOpen(ctx, assignment, user, conversation))

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	changed, err := repo.Finalize(ctx, contract.FinalizeSubmissionInput{
		AssignmentId: assignment, UserId: user, ConversationId: conversation, At: first,
	})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Finalize(ctx, contract.FinalizeSubmissionInput{
		AssignmentId: assignment, UserId: user, ConversationId: conversation, Late: true, At: first.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, changed)

	count, err := repo.Count(ctx, specification.ByAssignmentID{AssignmentID: assignment}, specification.ByUserID{UserID: user})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	sub, err := repo.FindOne(ctx, specification.ByAssignmentID{AssignmentID: assignment}, specification.ByUserID{UserID: user})
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, entity.SubmissionStatusSubmitted, sub.Status)
	assert.False(t, sub.Late)
	require.NotNil(t, sub.SubmittedAt)
	assert.True(t, first.Equal(*sub.SubmittedAt))

	require.NoError(t, repo.Reopen(ctx, assignment, user))
	sub, err = repo.FindOne(ctx, specification.ByAssignmentID{AssignmentID: assignment})
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionStatusInProgress, sub.Status)
	assert.Nil(t, sub.SubmittedAt)
}

func TestAssignmentFindOneMissingReturnsNil(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)

	a := &entity.Assignment{Title: "Ethics", Topic: "Lying", Question: "Is lying ever justified?"}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.NotEqual(t, uuid.Nil, a.Id)

	got, err := repo.FindOne(context.Background(), specification.ByID{ID: a.Id})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Lying", got.Topic)

	missing, err := repo.FindOne(context.Background(), specification.ByID{ID: uuid.New()})
	require.NoError(t, err)
	assert.Nil(t, missing)
}
