package handlers

import (
	"context"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rentwise/rentwise/internal/domain/chat"
)

// maxChatFormMemory bounds the in-memory portion of multipart parsing;
// larger uploads spill to temp files.
const maxChatFormMemory = 32 << 20

// ChatService is the slice of the dispatcher the handler needs.
type ChatService interface {
	HandleMessage(ctx context.Context, sessionID string, userTurn chat.Turn) (chat.Result, error)
}

// ChatHandler serves POST /chat: a multipart form with session_id, query and
// optional image attachments.
type ChatHandler struct {
	service ChatService
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Chat handles one user message. Unusable attachments (non-image MIME types,
// empty payloads) are skipped individually; the request still proceeds with
// whatever remains.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxChatFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	query := r.FormValue("query")

	parts := []chat.Part{chat.TextPart(query)}
	if r.MultipartForm != nil {
		parts = append(parts, imageParts(sessionID, r.MultipartForm.File["images"])...)
	}
	// An empty query is fine when images are attached; a message with
	// neither is unroutable.
	if query == "" && len(parts) == 1 {
		writeError(w, http.StatusBadRequest, "query or images required")
		return
	}

	result, err := h.service.HandleMessage(r.Context(), sessionID, chat.NewTurn(chat.RoleUser, parts...))
	if err != nil {
		log.Printf("chat: handle message for session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  result.Reply.Text(),
		SessionID: sessionID,
	})
}

// imageParts reads the uploaded files, skipping any attachment that is not an
// image or is empty. A skipped attachment never fails the request.
func imageParts(sessionID string, files []*multipart.FileHeader) []chat.Part {
	parts := make([]chat.Part, 0, len(files))
	for _, fh := range files {
		mimeType := fh.Header.Get(headerContentType)
		if !strings.HasPrefix(mimeType, "image/") {
			log.Printf("chat: skipping non-image attachment %q (%s) for session %s", fh.Filename, mimeType, sessionID)
			continue
		}

		data, err := readAttachment(fh)
		if err != nil {
			log.Printf("chat: skipping unreadable attachment %q for session %s: %v", fh.Filename, sessionID, err)
			continue
		}
		if len(data) == 0 {
			log.Printf("chat: skipping empty attachment %q for session %s", fh.Filename, sessionID)
			continue
		}
		parts = append(parts, chat.ImagePart(mimeType, data))
	}
	return parts
}

func readAttachment(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
