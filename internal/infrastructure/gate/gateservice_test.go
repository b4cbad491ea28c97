package gate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appgate "github.com/tonpass-inc/tonpass/internal/application/access/gate"
	"github.com/tonpass-inc/tonpass/internal/shared/config"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *GateService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.GateConfig{
		Endpoint: server.URL,
		BotToken: "test-token",
	}
	return NewGateService(cfg, testLogger())
}

func testLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestApproveJoinRequest_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	err := svc.ApproveJoinRequest(context.Background(), 42, -100123)
	require.NoError(t, err)

	assert.Equal(t, "/bottest-token/approveChatJoinRequest", gotPath)
	assert.Equal(t, float64(42), gotBody["user_id"])
	assert.Equal(t, float64(-100123), gotBody["chat_id"])
}

func TestApproveJoinRequest_AlreadyParticipant(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: USER_ALREADY_PARTICIPANT",
		})
	})

	err := svc.ApproveJoinRequest(context.Background(), 42, -100123)
	assert.True(t, appgate.IsAlreadySatisfied(err))
}

func TestApproveJoinRequest_NoPendingRequest(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: HIDE_REQUESTER_MISSING",
		})
	})

	err := svc.ApproveJoinRequest(context.Background(), 42, -100123)
	assert.True(t, appgate.IsAlreadySatisfied(err))
}

func TestSendMessage_BotBlocked(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  403,
			"description": "Forbidden: bot was blocked by the user",
		})
	})

	err := svc.SendMessage(context.Background(), 42, "hello")
	assert.ErrorIs(t, err, appgate.ErrSubjectUnreachable)
}

func TestSendMessage_GenericError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: message is too long",
		})
	})

	err := svc.SendMessage(context.Background(), 42, "hello")
	require.Error(t, err)
	assert.False(t, appgate.IsAlreadySatisfied(err))
	assert.NotErrorIs(t, err, appgate.ErrSubjectUnreachable)
}

func TestRemoveSubject_BansThenUnbans(t *testing.T) {
	var paths []string

	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	err := svc.RemoveSubject(context.Background(), 42, -100123)
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], "banChatMember")
	assert.Contains(t, paths[1], "unbanChatMember")
}

func TestGetUpdates_ParsesJoinRequests(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{
					"update_id": 1001,
					"chat_join_request": map[string]any{
						"chat": map[string]any{"id": -100123, "type": "supergroup"},
						"from": map[string]any{"id": 42, "is_bot": false},
						"date": 1700000000,
					},
				},
				{
					"update_id": 1002,
					"message": map[string]any{
						"message_id": 5,
						"from":       map[string]any{"id": 43, "is_bot": false},
						"chat":       map[string]any{"id": 43, "type": "private"},
						"date":       1700000001,
						"text":       "hi",
					},
				},
			},
		})
	})

	updates, err := svc.GetUpdates(context.Background(), 0, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	require.NotNil(t, updates[0].JoinRequest)
	assert.Equal(t, int64(1001), updates[0].ID)
	assert.Equal(t, int64(42), updates[0].JoinRequest.SubjectID)
	assert.Equal(t, int64(-100123), updates[0].JoinRequest.ResourceID)

	require.NotNil(t, updates[1].Message)
	assert.Equal(t, int64(43), updates[1].Message.SubjectID)
	assert.Equal(t, "hi", updates[1].Message.Text)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "getMe")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"id": 99, "is_bot": true},
		})
	})

	assert.NoError(t, svc.Ping(context.Background()))
}

func TestPing_BadToken(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  401,
			"description": "Unauthorized",
		})
	})

	assert.Error(t, svc.Ping(context.Background()))
}
