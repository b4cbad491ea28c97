// Package gate implements the access gate against a Telegram-style bot API.
package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	appgate "github.com/tonpass-inc/tonpass/internal/application/access/gate"
	"github.com/tonpass-inc/tonpass/internal/shared/config"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

const requestTimeout = 30 * time.Second

// GateService provides bot API operations against the messenger gate
type GateService struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Interface
}

// NewGateService creates a new GateService from configuration
func NewGateService(cfg *config.GateConfig, logger logger.Interface) *GateService {
	return &GateService{
		baseURL: fmt.Sprintf("%s/bot%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.BotToken),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}

// ApproveJoinRequest lets the subject through the gate. Approving an
// already-admitted subject returns ErrAlreadySatisfied.
func (s *GateService) ApproveJoinRequest(ctx context.Context, subjectID, resourceID int64) error {
	body := map[string]any{
		"chat_id": resourceID,
		"user_id": subjectID,
	}
	return s.makeRequest(ctx, "approveChatJoinRequest", body)
}

// DeclineJoinRequest rejects the subject's pending request
func (s *GateService) DeclineJoinRequest(ctx context.Context, subjectID, resourceID int64) error {
	body := map[string]any{
		"chat_id": resourceID,
		"user_id": subjectID,
	}
	return s.makeRequest(ctx, "declineChatJoinRequest", body)
}

// RemoveSubject ejects the subject from the gated resource. The immediate
// unban lets the subject knock again later instead of staying banned.
func (s *GateService) RemoveSubject(ctx context.Context, subjectID, resourceID int64) error {
	body := map[string]any{
		"chat_id": resourceID,
		"user_id": subjectID,
	}
	if err := s.makeRequest(ctx, "banChatMember", body); err != nil {
		return err
	}

	unban := map[string]any{
		"chat_id":        resourceID,
		"user_id":        subjectID,
		"only_if_banned": true,
	}
	if err := s.makeRequest(ctx, "unbanChatMember", unban); err != nil {
		s.logger.Warnw("failed to unban removed subject",
			"subject_id", subjectID,
			"resource_id", resourceID,
			"error", err,
		)
	}
	return nil
}

// SendMessage delivers a text message to the subject
func (s *GateService) SendMessage(ctx context.Context, subjectID int64, text string) error {
	body := map[string]any{
		"chat_id": subjectID,
		"text":    text,
	}
	return s.makeRequest(ctx, "sendMessage", body)
}

// GetUpdates long-polls the gate's event stream starting at offset
func (s *GateService) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]appgate.Update, error) {
	timeoutSecs := int(timeout / time.Second)
	body := map[string]any{
		"timeout":         timeoutSecs,
		"allowed_updates": []string{"message", "chat_join_request"},
	}
	if offset > 0 {
		body["offset"] = offset
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	// Long polling needs a client timeout beyond the poll window
	client := &http.Client{
		Timeout: timeout + 10*time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/getUpdates", s.baseURL), bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		return nil, fmt.Errorf("gate API error: %s", result.Description)
	}

	updates := make([]appgate.Update, 0, len(result.Result))
	for _, u := range result.Result {
		update := appgate.Update{ID: u.UpdateID}

		if u.ChatJoinRequest != nil {
			update.JoinRequest = &appgate.JoinRequest{
				SubjectID:   u.ChatJoinRequest.From.ID,
				ResourceID:  u.ChatJoinRequest.Chat.ID,
				RequestedAt: time.Unix(u.ChatJoinRequest.Date, 0).UTC(),
			}
		}

		if u.Message != nil && u.Message.From != nil && !u.Message.From.IsBot {
			update.Message = &appgate.Message{
				SubjectID: u.Message.From.ID,
				Text:      u.Message.Text,
			}
		}

		updates = append(updates, update)
	}

	return updates, nil
}

// Ping verifies the gate credentials and reachability
func (s *GateService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/getMe", s.baseURL), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result getMeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		return fmt.Errorf("gate API error: %s", result.Description)
	}
	return nil
}

func (s *GateService) makeRequest(ctx context.Context, method string, body map[string]any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", s.baseURL, method), bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		return mapAPIError(method, result)
	}
	return nil
}

// mapAPIError classifies bot API failures into the gate's error vocabulary.
// "Already done" outcomes are convergent successes for the caller.
func mapAPIError(method string, result apiResponse) error {
	desc := strings.ToUpper(result.Description)

	switch {
	case strings.Contains(desc, "USER_ALREADY_PARTICIPANT"),
		strings.Contains(desc, "HIDE_REQUESTER_MISSING"),
		strings.Contains(desc, "USER_NOT_PARTICIPANT"):
		return appgate.ErrAlreadySatisfied
	case result.ErrorCode == http.StatusForbidden,
		strings.Contains(desc, "BOT WAS BLOCKED"),
		strings.Contains(desc, "CHAT NOT FOUND"),
		strings.Contains(desc, "USER IS DEACTIVATED"):
		return fmt.Errorf("%w: %s", appgate.ErrSubjectUnreachable, result.Description)
	default:
		return fmt.Errorf("gate API error on %s: %s", method, result.Description)
	}
}
