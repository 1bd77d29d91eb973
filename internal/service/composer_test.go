package service

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"testing"
	"time"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(n int) []domain.SessionMessage {
	msgs := make([]domain.SessionMessage, 0, n)
	for i := 0; i < n; i++ {
		sender := domain.SenderUser
		if i%2 == 1 {
			sender = domain.SenderAssistant
		}
		msgs = append(msgs, domain.SessionMessage{
			Text:      string(rune('a' + i)),
			Sender:    sender,
			Timestamp: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		})
	}
	return msgs
}

func TestCompose_TextOnlyCarriesFullHistory(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		req := Compose("Hello", nil, history(n))
		assert.Equal(t, TextOnly, req.Kind)

		body, contentType, err := req.Encode()
		require.NoError(t, err)
		assert.Equal(t, "application/json", contentType)

		var decoded struct {
			Message      string            `json:"message"`
			Conversation *[]HistoryMessage `json:"conversation"`
		}
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, "Hello", decoded.Message)
		require.NotNil(t, decoded.Conversation, "conversation must always be present")
		require.Len(t, *decoded.Conversation, n)
		for i, h := range *decoded.Conversation {
			assert.Equal(t, string(history(n)[i].Sender), h.Role)
			assert.Equal(t, history(n)[i].Text, h.Content)
		}
	}
}

func TestCompose_EmptyHistoryEncodesAsArray(t *testing.T) {
	body, _, err := Compose("hi", nil, nil).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hi","conversation":[]}`, string(body))
}

type parsedPart struct {
	name     string
	filename string
	ctype    string
	data     []byte
}

func readMultipart(t *testing.T, body []byte, contentType string) []parsedPart {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	var parts []parsedPart
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(p)
		require.NoError(t, err)
		parts = append(parts, parsedPart{
			name:     p.FormName(),
			filename: p.FileName(),
			ctype:    p.Header.Get("Content-Type"),
			data:     data,
		})
	}
	return parts
}

func TestCompose_MultipartImagesInStagedOrder(t *testing.T) {
	m := NewAttachmentManager()
	for _, f := range []struct {
		name string
		data []byte
	}{{"first.png", pngBytes}, {"second.gif", gifBytes}, {"third.jpg", jpegBytes}} {
		_, err := m.Stage(f.name, f.data)
		require.NoError(t, err)
	}

	req := Compose("look", m.Staged(), history(2))
	assert.Equal(t, WithAttachments, req.Kind)

	body, contentType, err := req.Encode()
	require.NoError(t, err)
	parts := readMultipart(t, body, contentType)

	var images []parsedPart
	fields := map[string]string{}
	for _, p := range parts {
		if p.name == FieldImages {
			images = append(images, p)
			continue
		}
		fields[p.name] = string(p.data)
	}

	assert.Equal(t, "look", fields[FieldMessage])
	assert.JSONEq(t, `[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]`, fields[FieldConversation])

	require.Len(t, images, 3)
	assert.Equal(t, "first.png", images[0].filename)
	assert.Equal(t, "image/png", images[0].ctype)
	assert.Equal(t, pngBytes, images[0].data)
	assert.Equal(t, "second.gif", images[1].filename)
	assert.Equal(t, "third.jpg", images[2].filename)
}

func TestCompose_MultipartOmitsEmptyMessage(t *testing.T) {
	att, err := NewAttachment("x.png", pngBytes)
	require.NoError(t, err)

	body, contentType, err := Compose("", []domain.Attachment{att}, nil).Encode()
	require.NoError(t, err)

	var names []string
	for _, p := range readMultipart(t, body, contentType) {
		names = append(names, p.name)
	}
	assert.Equal(t, []string{FieldConversation, FieldImages}, names)
}

func TestCompose_EscapesFilename(t *testing.T) {
	att, err := NewAttachment(`we"ird.png`, pngBytes)
	require.NoError(t, err)

	body, contentType, err := Compose("", []domain.Attachment{att}, nil).Encode()
	require.NoError(t, err)
	parts := readMultipart(t, body, contentType)
	require.Len(t, parts, 2)
	assert.Equal(t, `we"ird.png`, parts[1].filename)
}

func TestCompose_IsPure(t *testing.T) {
	staged := []domain.Attachment{{Name: "a.png", MediaType: "image/png", Data: pngBytes}}
	hist := history(3)

	a := Compose("same", staged, hist)
	b := Compose("same", staged, hist)
	assert.Equal(t, a, b)

	staged[0].Name = "changed"
	assert.Equal(t, "a.png", a.Images[0].Name)
}

func TestChatRequest_IsEmpty(t *testing.T) {
	assert.True(t, Compose("", nil, history(2)).IsEmpty())
	assert.False(t, Compose("x", nil, nil).IsEmpty())
	assert.False(t, Compose("", []domain.Attachment{{Name: "a"}}, nil).IsEmpty())
}
