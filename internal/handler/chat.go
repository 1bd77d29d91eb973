package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
)

// Client-facing error messages.
const (
	MsgAPIKeyMissing = "API key not configured. Set OPENROUTER_API_KEY on the relay."
	MsgInvalidAPIKey = "Invalid API key"
	MsgRateLimited   = "Rate limit exceeded. Please try again later."
	MsgEmptyRequest  = "Message or image is required"
	MsgTooLarge      = "Request too large"
	MsgOnlyImages    = "Only image files are allowed"
)

type chatBody struct {
	Message      string                   `json:"message"`
	Conversation []service.HistoryMessage `json:"conversation"`
}

// badRequest marks a parse failure that should be reported as 400.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

// handleChat relays one chat turn to the provider.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	if !h.cfg.APIKeyConfigured() {
		slog.Error("chat request without provider credential", "request_id", reqID)
		writeError(w, http.StatusInternalServerError, MsgAPIKeyMissing)
		return
	}

	body, images, err := parseChatRequest(r)
	if err != nil {
		var br *badRequest
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusBadRequest, MsgTooLarge)
		case errors.As(err, &br):
			writeError(w, http.StatusBadRequest, br.msg)
		default:
			slog.Error("parse chat request", "error", err, "request_id", reqID)
			writeError(w, http.StatusBadRequest, "Invalid request body")
		}
		return
	}

	message := strings.TrimSpace(body.Message)
	if message == "" && len(images) == 0 {
		writeError(w, http.StatusBadRequest, MsgEmptyRequest)
		return
	}

	msgs := service.ToProviderMessages(h.cfg.SystemPrompt, body.Conversation, message, images)

	reqCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.openRouter.Chat(reqCtx, msgs)
	if err != nil {
		status, msg := relayStatus(err)
		slog.Error("openrouter chat",
			"error", err,
			"status", status,
			"request_id", reqID,
		)
		writeError(w, status, msg)
		return
	}

	h.logUsage(ctx, reqID, result, len(images), time.Since(start))
	writeJSON(w, http.StatusOK, map[string]string{"response": result.Text})
}

// relayStatus maps a provider error onto the relay's status and message.
func relayStatus(err error) (int, string) {
	status, msg, ok := service.ProviderStatus(err)
	if !ok {
		return http.StatusInternalServerError, domain.DefaultRelayMessage
	}
	switch status {
	case http.StatusUnauthorized:
		return http.StatusUnauthorized, MsgInvalidAPIKey
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests, MsgRateLimited
	case http.StatusBadRequest:
		if msg == "" {
			msg = "Bad request"
		}
		return http.StatusBadRequest, msg
	default:
		return http.StatusInternalServerError, domain.DefaultRelayMessage
	}
}

func (h *Handler) logUsage(ctx context.Context, reqID string, result *service.ChatResult, images int, d time.Duration) {
	attrs := []any{
		"model", h.openRouter.Model(),
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens,
		"images", images,
		"duration", d,
		"request_id", reqID,
	}
	if model, err := h.openRouter.GetModel(ctx, h.openRouter.Model()); err == nil {
		attrs = append(attrs, "cost", service.CostForModel(model, result.Usage).String())
	} else {
		slog.Debug("price lookup failed", "error", err)
	}
	slog.Info("chat completed", attrs...)
}

func parseChatRequest(r *http.Request) (*chatBody, []service.ImageInput, error) {
	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, nil, &badRequest{msg: "Invalid content type"}
		}
		mediaType = mt
	}

	if mediaType == "multipart/form-data" {
		return parseMultipart(r)
	}

	var body chatBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, err
		}
		return nil, nil, &badRequest{msg: "Invalid JSON body"}
	}
	return &body, nil, nil
}

func parseMultipart(r *http.Request) (*chatBody, []service.ImageInput, error) {
	if err := r.ParseMultipartForm(config.MaxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, err
		}
		return nil, nil, &badRequest{msg: "Invalid multipart body"}
	}
	defer r.MultipartForm.RemoveAll()

	body := &chatBody{Message: r.FormValue(service.FieldMessage)}
	if raw := r.FormValue(service.FieldConversation); raw != "" {
		if err := json.Unmarshal([]byte(raw), &body.Conversation); err != nil {
			return nil, nil, &badRequest{msg: "Invalid conversation field"}
		}
	}

	files := r.MultipartForm.File[service.FieldImages]
	images := make([]service.ImageInput, 0, len(files))
	for _, fh := range files {
		img, err := readImage(fh)
		if err != nil {
			return nil, nil, err
		}
		images = append(images, img)
	}
	return body, images, nil
}

func readImage(fh *multipart.FileHeader) (service.ImageInput, error) {
	if fh.Size > config.MaxImageSize {
		return service.ImageInput{}, &badRequest{msg: fmt.Sprintf("Image %s is too large", fh.Filename)}
	}
	f, err := fh.Open()
	if err != nil {
		return service.ImageInput{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.ImageInput{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}

	mediaType := service.DetectMediaType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		return service.ImageInput{}, &badRequest{msg: MsgOnlyImages}
	}
	return service.ImageInput{Name: fh.Filename, MediaType: mediaType, Data: data}, nil
}
