package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/set-night/mindchat/internal/domain"
)

// Wire field names shared by the client and the relay.
const (
	FieldMessage      = "message"
	FieldConversation = "conversation"
	FieldImages       = "images"
)

type RequestKind int

const (
	TextOnly RequestKind = iota
	WithAttachments
)

func (k RequestKind) String() string {
	switch k {
	case TextOnly:
		return "text"
	case WithAttachments:
		return "attachments"
	}
	return fmt.Sprintf("RequestKind(%d)", int(k))
}

// HistoryMessage is one prior turn as sent to the relay.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the relay-bound request. Kind is fixed by Compose and
// decides the body encoding.
type ChatRequest struct {
	Kind         RequestKind
	Text         string
	Conversation []HistoryMessage
	Images       []domain.Attachment
}

// textBody is the JSON form of a TextOnly request.
type textBody struct {
	Message      string           `json:"message"`
	Conversation []HistoryMessage `json:"conversation"`
}

// Compose builds a request from the text, the staged images and the prior
// messages of the session. It performs no I/O.
func Compose(text string, staged []domain.Attachment, history []domain.SessionMessage) ChatRequest {
	conv := make([]HistoryMessage, 0, len(history))
	for _, m := range history {
		conv = append(conv, HistoryMessage{Role: string(m.Sender), Content: m.Text})
	}

	req := ChatRequest{
		Kind:         TextOnly,
		Text:         text,
		Conversation: conv,
	}
	if len(staged) > 0 {
		req.Kind = WithAttachments
		req.Images = append([]domain.Attachment(nil), staged...)
	}
	return req
}

// IsEmpty reports a request with neither text nor images.
func (r ChatRequest) IsEmpty() bool {
	return r.Text == "" && len(r.Images) == 0
}

// Encode renders the body and its content type. The multipart boundary comes
// from the writer, so callers must use the returned content type verbatim.
func (r ChatRequest) Encode() ([]byte, string, error) {
	conv := r.Conversation
	if conv == nil {
		conv = []HistoryMessage{}
	}

	switch r.Kind {
	case TextOnly:
		body, err := json.Marshal(textBody{Message: r.Text, Conversation: conv})
		if err != nil {
			return nil, "", fmt.Errorf("marshal chat request: %w", err)
		}
		return body, "application/json", nil

	case WithAttachments:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		if r.Text != "" {
			if err := w.WriteField(FieldMessage, r.Text); err != nil {
				return nil, "", fmt.Errorf("write message field: %w", err)
			}
		}
		convJSON, err := json.Marshal(conv)
		if err != nil {
			return nil, "", fmt.Errorf("marshal conversation: %w", err)
		}
		if err := w.WriteField(FieldConversation, string(convJSON)); err != nil {
			return nil, "", fmt.Errorf("write conversation field: %w", err)
		}
		for _, img := range r.Images {
			part, err := w.CreatePart(imagePartHeader(img))
			if err != nil {
				return nil, "", fmt.Errorf("create image part: %w", err)
			}
			if _, err := part.Write(img.Data); err != nil {
				return nil, "", fmt.Errorf("write image %s: %w", img.Name, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("close multipart: %w", err)
		}
		return buf.Bytes(), w.FormDataContentType(), nil
	}

	return nil, "", fmt.Errorf("encode chat request: unknown kind %v", r.Kind)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func imagePartHeader(img domain.Attachment) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FieldImages, quoteEscaper.Replace(img.Name)))
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	h.Set("Content-Type", mediaType)
	return h
}
