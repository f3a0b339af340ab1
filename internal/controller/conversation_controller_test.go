package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/internal/dto"
	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConversationService struct {
	gotUser uuid.UUID
	gotTurn *dto.SubmitTurnRequest
	err     error
}

func (s *stubConversationService) StartConversation(ctx context.Context, userId uuid.UUID, request *dto.StartConversationRequest) (*dto.StartConversationResponse, error) {
	s.gotUser = userId
	if s.err != nil {
		return nil, s.err
	}
	return &dto.StartConversationResponse{ConversationId: uuid.New(), Created: true}, nil
}

func (s *stubConversationService) SubmitTurn(ctx context.Context, userId, conversationId uuid.UUID, request *dto.SubmitTurnRequest) (*dto.SubmitTurnResponse, error) {
	s.gotUser, s.gotTurn = userId, request
	if s.err != nil {
		return nil, s.err
	}
	return &dto.SubmitTurnResponse{Text: "Why?", ConversationId: conversationId}, nil
}

func (s *stubConversationService) GetConversation(ctx context.Context, userId, conversationId uuid.UUID) (*dto.GetConversationResponse, error) {
	s.gotUser = userId
	if s.err != nil {
		return nil, s.err
	}
	return &dto.GetConversationResponse{Id: conversationId}, nil
}

func newTestApp(t *testing.T, svc *stubConversationService) (*fiber.App, uuid.UUID, string) {
	t.Helper()
	t.Setenv("JWT_SECRET", "controller-secret")
	user := uuid.New()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": user.String()}).SignedString([]byte("controller-secret"))
	require.NoError(t, err)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(logger.NewNopLogger()))
	NewConversationController(svc).RegisterRoutes(app.Group("/api"))
	return app, user, "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, serverutils.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out serverutils.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestConversationRoutes(t *testing.T) {
	convID := uuid.New()

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		noToken bool
		svcErr  error
		status  int
	}{
		{"start", http.MethodPost, "/api/conversation/v1", map[string]any{"assignmentId": uuid.New()}, false, nil, http.StatusOK},
		{"start without assignment", http.MethodPost, "/api/conversation/v1", map[string]any{}, false, nil, http.StatusBadRequest},
		{"start without token", http.MethodPost, "/api/conversation/v1", map[string]any{"assignmentId": uuid.New()}, true, nil, http.StatusUnauthorized},
		{"show", http.MethodGet, "/api/conversation/v1/" + convID.String(), nil, false, nil, http.StatusOK},
		{"show bad id", http.MethodGet, "/api/conversation/v1/abc", nil, false, nil, http.StatusBadRequest},
		{"show forbidden", http.MethodGet, "/api/conversation/v1/" + convID.String(), nil, false, apperror.ErrForbidden, http.StatusForbidden},
		{"text turn", http.MethodPost, "/api/conversation/v1/" + convID.String() + "/turns", map[string]any{"text": "I disagree"}, false, nil, http.StatusOK},
		{"empty turn", http.MethodPost, "/api/conversation/v1/" + convID.String() + "/turns", map[string]any{}, false, nil, http.StatusBadRequest},
		{"audio without mime type", http.MethodPost, "/api/conversation/v1/" + convID.String() + "/turns", map[string]any{"audio": []byte{1, 2}}, false, nil, http.StatusBadRequest},
		{"closed conversation", http.MethodPost, "/api/conversation/v1/" + convID.String() + "/turns", map[string]any{"text": "more"}, false, apperror.ErrInvalidState, http.StatusConflict},
		{"synthesis failed", http.MethodPost, "/api/conversation/v1/" + convID.String() + "/turns", map[string]any{"text": "more"}, false, apperror.ErrSynthesisFailed, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubConversationService{err: tt.svcErr}
			app, user, token := newTestApp(t, svc)
			if tt.noToken {
				token = ""
			}

			resp, body := doJSON(t, app, tt.method, tt.path, token, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.status == http.StatusOK, body.Success)
			if tt.status == http.StatusOK {
				assert.Equal(t, user, svc.gotUser)
			}
		})
	}
}

func TestSubmitTurnAcceptsMultipartAudio(t *testing.T) {
	svc := &stubConversationService{}
	app, _, token := newTestApp(t, svc)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", "turn.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte{9, 8, 7})
	require.NoError(t, err)
	require.NoError(t, w.WriteField("mimeType", "audio/webm"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/conversation/v1/"+uuid.NewString()+"/turns", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, svc.gotTurn)
	assert.Equal(t, []byte{9, 8, 7}, svc.gotTurn.Audio)
	assert.Equal(t, "audio/webm", svc.gotTurn.MimeType)
	assert.Empty(t, svc.gotTurn.Text)
}
