// ABOUTME: Wire types for the chat and deep-research endpoints consumed by the console.
// ABOUTME: Includes tolerant decoding for fields the backend sometimes sends as non-string JSON.
package backend

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// DefaultUserID is sent with chat requests when no user id is configured.
const DefaultUserID = "default-user"

// ChatRequest is the body of a chat request.
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// ChatPayload is one classified chat turn produced by the backend. Graph is
// nil when the backend sent no diagram.
type ChatPayload struct {
	Text        string  `json:"text"`
	Intent      string  `json:"intent"`
	IsEmergency bool    `json:"is_emergency"`
	Graph       *string `json:"graph"`
}

// SymbolRequest is the body of both deep-research requests.
type SymbolRequest struct {
	Symbol string `json:"symbol"`
}

// ManualReport is the manual pipeline's result.
type ManualReport struct {
	DataRaw       LooseText `json:"data_raw"`
	FinalResponse LooseText `json:"final_response"`
}

// OfficialResponse is the official agent's reply: either a result or an error.
type OfficialResponse struct {
	Result *OfficialResult `json:"result,omitempty"`
	Error  LooseText       `json:"error,omitempty"`
}

// OfficialResult wraps the agent's final response. FinalResponse is kept raw
// because the agent does not always send the expected list of text parts.
type OfficialResult struct {
	FinalResponse json.RawMessage `json:"final_response"`
}

// TextPart is one element of the official agent's final response.
type TextPart struct {
	Text string `json:"text"`
}

// FirstText returns the text of the first final-response part, or "" when
// the result is missing, not a list, empty, or its first part has no string text.
func (r *OfficialResponse) FirstText() string {
	if r == nil || r.Result == nil || len(r.Result.FinalResponse) == 0 {
		return ""
	}
	parts := gjson.ParseBytes(r.Result.FinalResponse)
	if !parts.IsArray() {
		return ""
	}
	text := parts.Get("0.text")
	if text.Type != gjson.String {
		return ""
	}
	return text.Str
}

// LooseText decodes a JSON string as its value and any other JSON value as
// its compact JSON text.
type LooseText string

// UnmarshalJSON implements json.Unmarshaler.
func (t *LooseText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = LooseText(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*t = LooseText(buf.String())
	return nil
}

// chatEnvelope and manualEnvelope mirror the backend's {"data": ...} wrapper.
// Pointer fields distinguish absent members from zero values.
type chatEnvelope struct {
	Data *struct {
		Text        *string `json:"text"`
		Intent      string  `json:"intent"`
		IsEmergency bool    `json:"is_emergency"`
		Graph       *string `json:"graph"`
	} `json:"data"`
}

type manualEnvelope struct {
	Data *struct {
		DataRaw       *LooseText `json:"data_raw"`
		FinalResponse *LooseText `json:"final_response"`
	} `json:"data"`
}
