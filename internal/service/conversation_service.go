package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/internal/dto"
	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/internal/repository/contract"
	"socratic-tutor-be/internal/repository/memory"
	"socratic-tutor-be/internal/repository/specification"
	"socratic-tutor-be/internal/repository/unitofwork"
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/executor"
	"socratic-tutor-be/pkg/stage"
	"socratic-tutor-be/pkg/usage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// conversationNamespace seeds the name-based ids of conversations.
var conversationNamespace = uuid.MustParse("6f1c2a7e-3b8d-5e40-9a61-2d7c4e8f0b13")

// ConversationID derives the one conversation a user has per assignment.
func ConversationID(userId, assignmentId uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(conversationNamespace, []byte(userId.String()+":"+assignmentId.String()))
}

// TurnEngine runs the dialogue for one student message. *stage.Engine implements it.
type TurnEngine interface {
	Process(ctx context.Context, in stage.Input) (*stage.Output, error)
}

// ExecutorFactory hands out executors scoped to one turn.
type ExecutorFactory interface {
	NewSet() *executor.Set
}

type IConversationService interface {
	StartConversation(ctx context.Context, userId uuid.UUID, request *dto.StartConversationRequest) (*dto.StartConversationResponse, error)
	SubmitTurn(ctx context.Context, userId, conversationId uuid.UUID, request *dto.SubmitTurnRequest) (*dto.SubmitTurnResponse, error)
	GetConversation(ctx context.Context, userId, conversationId uuid.UUID) (*dto.GetConversationResponse, error)
}

type conversationService struct {
	uowFactory  unitofwork.RepositoryFactory
	assignments *assignmentLoader
	executors   ExecutorFactory
	engine      TurnEngine
	publisher   IPublisherService
	models      map[string]string
	log         logger.ILogger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewConversationService wires the turn pipeline. models maps a usage
// feature to the configured model name reported back to clients.
func NewConversationService(
	uowFactory unitofwork.RepositoryFactory,
	assignmentCache *memory.AssignmentCache,
	executors ExecutorFactory,
	engine TurnEngine,
	publisher IPublisherService,
	models map[string]string,
	log logger.ILogger,
) IConversationService {
	return &conversationService{
		uowFactory:  uowFactory,
		assignments: &assignmentLoader{cache: assignmentCache},
		executors:   executors,
		engine:      engine,
		publisher:   publisher,
		models:      models,
		log:         log,
		tracer:      otel.Tracer("socratic-tutor-be/service/conversation"),
		now:         time.Now,
	}
}

func (cs *conversationService) StartConversation(ctx context.Context, userId uuid.UUID, request *dto.StartConversationRequest) (*dto.StartConversationResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	assignment, err := cs.assignments.load(ctx, uow, request.AssignmentId)
	if err != nil {
		return nil, err
	}

	id := ConversationID(userId, assignment.Id)
	now := cs.now().UTC()
	resp := &dto.StartConversationResponse{ConversationId: id}

	conv, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}

	switch {
	case conv == nil:
		if !assignment.AcceptsAt(now) {
			return nil, fmt.Errorf("%w: assignment is past its due date", apperror.ErrInvalidState)
		}
		conv = &entity.Conversation{
			Id:            id,
			AssignmentId:  assignment.Id,
			UserId:        userId,
			State:         dialogue.ConversationAwaitingIdea,
			DialogueState: dialogue.NewState(assignment.Topic),
			TokenUsage:    usage.FromTotals(nil),
			LastActionAt:  now,
			CreatedAt:     now,
		}
		created, err := uow.ConversationRepository().Create(ctx, conv)
		if err != nil {
			return nil, err
		}
		if !created {
			// A concurrent start won; continue with its record.
			conv, err = uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
			if err != nil {
				return nil, err
			}
			if conv == nil {
				return nil, apperror.ErrNotFound
			}
		}
		resp.Created = created
		if err := uow.SubmissionRepository().EnsureOpen(ctx, assignment.Id, userId, id); err != nil {
			return nil, err
		}

	case conv.UserId != userId:
		return nil, apperror.ErrForbidden

	case conv.IsClosed():
		if !assignment.AllowResubmission {
			return nil, fmt.Errorf("%w: assignment does not allow resubmission", apperror.ErrInvalidState)
		}
		if !assignment.AcceptsAt(now) {
			return nil, fmt.Errorf("%w: assignment is past its due date", apperror.ErrInvalidState)
		}
		if err := cs.reset(ctx, uow, conv, assignment, now); err != nil {
			return nil, err
		}
		resp.Reset = true
	}

	resp.State = conv.State
	resp.Stage = string(conv.DialogueState.Stage)
	resp.Version = conv.Version
	return resp, nil
}

// reset starts a fresh dialogue on a closed conversation and reopens its
// submission. Earlier turns stay stored.
func (cs *conversationService) reset(ctx context.Context, uow unitofwork.UnitOfWork, conv *entity.Conversation, assignment *entity.Assignment, now time.Time) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	conv.State = dialogue.ConversationAwaitingIdea
	conv.DialogueState = dialogue.NewState(assignment.Topic)
	conv.TokenUsage = usage.FromTotals(nil)
	conv.LastActionAt = now
	if err := uow.ConversationRepository().Reset(ctx, conv); err != nil {
		return err
	}
	if err := uow.SubmissionRepository().Reopen(ctx, conv.AssignmentId, conv.UserId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	cs.log.Info("CONVERSATION", "Conversation reset for resubmission", map[string]interface{}{
		"conversation_id": conv.Id.String(),
		"user_id":         conv.UserId.String(),
	})
	return nil
}

// SubmitTurn runs one exchange. Nothing is stored unless every model call
// succeeded, and both turns are stored together.
func (cs *conversationService) SubmitTurn(ctx context.Context, userId, conversationId uuid.UUID, request *dto.SubmitTurnRequest) (resp *dto.SubmitTurnResponse, err error) {
	ctx, span := cs.tracer.Start(ctx, "conversation.SubmitTurn", trace.WithAttributes(
		attribute.String("conversation.id", conversationId.String()),
		attribute.Bool("turn.audio", len(request.Audio) > 0),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	// 1. Load and authorize
	conv, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperror.ErrNotFound
	}
	if conv.UserId != userId {
		return nil, apperror.ErrForbidden
	}
	if conv.IsClosed() {
		return nil, fmt.Errorf("%w: conversation is closed", apperror.ErrInvalidState)
	}

	set := cs.executors.NewSet()
	set.ResetUsage()
	models := map[string]string{}

	// 2. Transcribe
	text := strings.TrimSpace(request.Text)
	var transcript string
	if len(request.Audio) > 0 {
		tr, err := set.SpeechToText.Execute(ctx, request.Audio, request.MimeType)
		if err != nil {
			cs.log.Warn("CONVERSATION", "Transcription failed", map[string]interface{}{
				"conversation_id": conversationId.String(),
				"error":           err.Error(),
			})
			return nil, fmt.Errorf("%w: %w", apperror.ErrTranscriptionFailed, err)
		}
		text, transcript = tr.Text, tr.Text
		models[usage.FeatureSpeechRecognition] = tr.Model
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty message", apperror.ErrInvalidState)
	}

	// 3. Submission window
	assignment, err := cs.assignments.load(ctx, uow, conv.AssignmentId)
	if err != nil {
		return nil, err
	}
	now := cs.now().UTC()
	if !assignment.AcceptsAt(now) {
		return nil, fmt.Errorf("%w: assignment is past its due date", apperror.ErrInvalidState)
	}

	// 4. Dialogue
	out, err := cs.engine.Process(ctx, stage.Input{
		ConversationID: conv.Id.String(),
		UserID:         userId.String(),
		State:          conv.DialogueState,
		StudentMessage: text,
		Question:       assignment.Question,
		Executor:       set.Language,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("dialogue.stage", string(out.Stage)), attribute.Bool("dialogue.ended", out.Ended))

	// 5. Synthesize
	speech, err := set.TextToSpeech.Execute(ctx, out.Message)
	if err != nil {
		cs.log.Warn("CONVERSATION", "Speech synthesis failed", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", apperror.ErrSynthesisFailed, err)
	}
	models[usage.FeatureSpeechSynthesis] = speech.Model

	report := set.Report()

	// 6. Persist both turns, then 7. finalize on end
	userTurn := &entity.Turn{
		Id:        uuid.New(),
		Role:      dialogue.RoleUser,
		Type:      dialogue.UserTurnType(len(conv.DialogueState.ConversationHistory)),
		Text:      text,
		CreatedAt: now,
	}
	aiTurn := &entity.Turn{
		Id:   uuid.New(),
		Role: dialogue.RoleModel,
		Type: dialogue.AITurnType(out.Stage, out.Ended),
		Text: out.Message,
		Analysis: &entity.TurnAnalysis{
			Stage:     string(out.Stage),
			Stance:    out.CurrentStance,
			Principle: out.CurrentPrinciple,
		},
		TokenUsage: &report,
		CreatedAt:  now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	updated, err := uow.ConversationRepository().AppendTurns(ctx, contract.AppendTurnsInput{
		ConversationId:  conv.Id,
		UserId:          userId,
		ExpectedVersion: conv.Version,
		Turns:           []*entity.Turn{userTurn, aiTurn},
		DialogueState:   out.State,
		Ended:           out.Ended,
		Usage:           report,
		At:              now,
	})
	if err != nil {
		return nil, err
	}

	var finalized, late bool
	if out.Ended {
		input := finalizeInput(updated, assignment, now)
		late = input.Late
		finalized, err = uow.SubmissionRepository().Finalize(ctx, input)
		if err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	cs.log.Info("CONVERSATION", "Turn recorded", map[string]interface{}{
		"conversation_id": conv.Id.String(),
		"stage":           string(out.Stage),
		"ended":           out.Ended,
		"version":         updated.Version,
		"total_tokens":    report.Totals.TotalTokenCount,
	})

	if cs.publisher != nil {
		msg := &dto.TurnRecordedMessage{
			ConversationId: conv.Id,
			AssignmentId:   conv.AssignmentId,
			UserId:         userId,
			Stage:          string(out.Stage),
			Ended:          out.Ended,
			Finalized:      finalized,
			Late:           late,
			Usage:          report,
			RecordedAt:     now,
		}
		if err := cs.publisher.PublishTurnRecorded(ctx, msg); err != nil {
			cs.log.Warn("CONVERSATION", "Failed to publish turn usage", map[string]interface{}{"error": err.Error()})
		}
	}

	resp = &dto.SubmitTurnResponse{
		Text:              out.Message,
		Transcript:        transcript,
		Audio:             speech.Audio,
		AudioMimeType:     speech.MimeType,
		ConversationId:    conv.Id,
		UserTurnId:        userTurn.Id,
		AiTurnId:          aiTurn.Id,
		ConversationEnded: out.Ended,
		State:             updated.State,
		Stage:             string(out.Stage),
		Version:           updated.Version,
		Stance:            out.CurrentStance,
		Principle:         out.CurrentPrinciple,
		Summary:           out.State.Summary,
		Late:              late,
		TokenUsage:        cs.tokenUsage(report, models),
	}
	return resp, nil
}

// tokenUsage labels each metered feature with the model that served it.
func (cs *conversationService) tokenUsage(report usage.Report, observed map[string]string) dto.TokenUsageResponse {
	models := make(map[string]string, len(report.ByFeature))
	for feature := range report.ByFeature {
		if m := observed[feature]; m != "" {
			models[feature] = m
			continue
		}
		if m := cs.models[feature]; m != "" {
			models[feature] = m
		}
	}
	byFeature := report.ByFeature
	if byFeature == nil {
		byFeature = map[string]usage.Totals{}
	}
	return dto.TokenUsageResponse{
		ByFeature: byFeature,
		Totals:    report.Totals,
		Models:    models,
	}
}

func (cs *conversationService) GetConversation(ctx context.Context, userId, conversationId uuid.UUID) (*dto.GetConversationResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	conv, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperror.ErrNotFound
	}
	if conv.UserId != userId {
		return nil, apperror.ErrForbidden
	}

	turns, err := uow.ConversationRepository().FindTurns(ctx, conversationId)
	if err != nil {
		return nil, err
	}

	state := conv.DialogueState
	resp := &dto.GetConversationResponse{
		Id:                  conv.Id,
		AssignmentId:        conv.AssignmentId,
		State:               conv.State,
		Stage:               string(state.Stage),
		Version:             conv.Version,
		Topic:               state.Topic,
		Stance:              state.CurrentStance(),
		Principle:           state.CurrentPrinciple(),
		Summary:             state.Summary,
		DiscussionSatisfied: state.DiscussionSatisfied,
		TokenUsage:          conv.TokenUsage,
		Turns:               make([]*dto.TurnResponse, 0, len(turns)),
		LastActionAt:        conv.LastActionAt,
		CreatedAt:           conv.CreatedAt,
	}
	for _, t := range turns {
		tr := &dto.TurnResponse{
			Id:         t.Id,
			Seq:        t.Seq,
			Role:       t.Role,
			Type:       t.Type,
			Text:       t.Text,
			TokenUsage: t.TokenUsage,
			CreatedAt:  t.CreatedAt,
		}
		if t.Analysis != nil {
			tr.Stance = t.Analysis.Stance
		}
		resp.Turns = append(resp.Turns, tr)
	}
	return resp, nil
}

// assignmentLoader reads assignments through the cache.
type assignmentLoader struct {
	cache *memory.AssignmentCache
}

func (l *assignmentLoader) load(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (*entity.Assignment, error) {
	if l.cache != nil {
		if a, ok := l.cache.Get(id); ok {
			return a, nil
		}
	}
	a, err := uow.AssignmentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("assignment %s: %w", id, apperror.ErrNotFound)
	}
	if l.cache != nil {
		l.cache.Save(a)
	}
	return a, nil
}

func finalizeInput(conv *entity.Conversation, assignment *entity.Assignment, at time.Time) contract.FinalizeSubmissionInput {
	return contract.FinalizeSubmissionInput{
		AssignmentId:   conv.AssignmentId,
		UserId:         conv.UserId,
		ConversationId: conv.Id,
		Late:           assignment.IsLate(at),
		At:             at,
	}
}
