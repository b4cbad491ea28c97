package gate

// apiResponse represents a bot API response envelope
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// apiUpdate represents one update from getUpdates
type apiUpdate struct {
	UpdateID        int64            `json:"update_id"`
	Message         *apiMessage      `json:"message,omitempty"`
	ChatJoinRequest *chatJoinRequest `json:"chat_join_request,omitempty"`
}

// chatJoinRequest represents a pending join request on a gated chat
type chatJoinRequest struct {
	Chat apiChat `json:"chat"`
	From apiUser `json:"from"`
	Date int64   `json:"date"`
}

// apiMessage represents an inbound message
type apiMessage struct {
	MessageID int64    `json:"message_id"`
	From      *apiUser `json:"from,omitempty"`
	Chat      apiChat  `json:"chat"`
	Date      int64    `json:"date"`
	Text      string   `json:"text,omitempty"`
}

// apiUser represents a messenger user
type apiUser struct {
	ID    int64 `json:"id"`
	IsBot bool  `json:"is_bot"`
}

// apiChat represents a messenger chat
type apiChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// getUpdatesResponse represents the response from getUpdates
type getUpdatesResponse struct {
	OK          bool        `json:"ok"`
	Result      []apiUpdate `json:"result"`
	ErrorCode   int         `json:"error_code,omitempty"`
	Description string      `json:"description,omitempty"`
}

// getMeResponse represents the response from getMe
type getMeResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		ID    int64 `json:"id"`
		IsBot bool  `json:"is_bot"`
	} `json:"result"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}
