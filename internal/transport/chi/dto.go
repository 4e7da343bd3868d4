package chi

import "github.com/medevs/local-smart-portfolio/internal/domain"

// errorCode is the machine-readable error discriminator in error responses.
type errorCode string

const (
	codeBadRequest              errorCode = "bad_request"
	codeValidationFailed        errorCode = "validation_failed"
	codeDocumentNotFound        errorCode = "document_not_found"
	codeEmbeddingProviderError  errorCode = "embedding_provider_error"
	codeGenerationProviderError errorCode = "generation_provider_error"
	codeInternalError           errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string        `json:"message"`
	History []chatMessage `json:"history,omitempty"`
}

type chatResponse struct {
	Response       string   `json:"response"`
	Sources        []string `json:"sources"`
	QueryType      string   `json:"query_type"`
	RewrittenQuery string   `json:"rewritten_query"`
	UsedRetrieval  bool     `json:"used_retrieval"`
	NumResults     int      `json:"num_results"`
}

// streamEvent is one NDJSON line of a streaming chat response. Sources and
// the retrieval metadata appear only on the terminal event.
type streamEvent struct {
	Chunk         string   `json:"chunk"`
	Done          bool     `json:"done"`
	Sources       []string `json:"sources,omitempty"`
	QueryType     string   `json:"query_type,omitempty"`
	UsedRetrieval bool     `json:"used_retrieval,omitempty"`
	NumResults    int      `json:"num_results,omitempty"`
	Error         string   `json:"error,omitempty"`
}

type ingestRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type documentResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	FileType     string `json:"file_type,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type deleteResponse struct {
	DocumentID    string `json:"document_id"`
	ChunksDeleted int    `json:"chunks_deleted"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func historyFromDTO(msgs []chatMessage) []domain.Message {
	if len(msgs) == 0 {
		return nil
	}
	history := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		history[i] = domain.Message{Role: m.Role, Content: m.Content}
	}
	return history
}

func documentToDTO(doc domain.Document) documentResponse {
	return documentResponse{
		ID:           doc.ID,
		Filename:     doc.Filename,
		FileType:     doc.FileType,
		ChunkCount:   doc.ChunkCount,
		Status:       string(doc.Status),
		ErrorMessage: doc.ErrorMessage,
	}
}
