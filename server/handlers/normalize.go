// Package handlers provides the HTTP handlers for the textflow server. The
// handlers decode heterogeneous result payloads into their upstream shapes
// and run them through a normalization pipeline, so callers always get
// plain text back.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/textflow-ai/textflow/errors"
	"github.com/textflow-ai/textflow/llm"
	"github.com/textflow-ai/textflow/pipeline"
	"github.com/textflow-ai/textflow/server/middleware"
)

// InputEnvelope is the wire form of one heterogeneous input value. Kind
// selects the upstream shape the value decodes into; "raw" passes the
// decoded JSON value through untyped and "empty" stands for an absent
// input.
type InputEnvelope struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Decode maps the envelope to the value the pipeline consumes.
func (e InputEnvelope) Decode() (any, error) {
	switch e.Kind {
	case "empty":
		return nil, nil
	case "completion":
		var v llm.CompletionResult
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("invalid completion payload: %w", err)
		}
		return &v, nil
	case "chat":
		var v llm.ChatResult
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("invalid chat payload: %w", err)
		}
		return &v, nil
	case "message":
		var v llm.Message
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("invalid message payload: %w", err)
		}
		return v, nil
	case "document":
		var v llm.Document
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("invalid document payload: %w", err)
		}
		return v, nil
	case "raw":
		var v any
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("invalid raw payload: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown input kind: %q", e.Kind)
	}
}

// NormalizeRequest is the body of both normalize endpoints. Input carries a
// single value; Inputs carries a sequence for the streaming endpoint.
type NormalizeRequest struct {
	Input  *InputEnvelope  `json:"input,omitempty"`
	Inputs []InputEnvelope `json:"inputs,omitempty"`
}

// NormalizeResponse is one output item.
type NormalizeResponse struct {
	Output string `json:"output"`
}

// NormalizeHandler serves single-value normalization.
type NormalizeHandler struct {
	stage  pipeline.Stage[any, string]
	logger *zap.Logger
}

// NewNormalizeHandler creates the handler around a normalization stage.
func NewNormalizeHandler(stage pipeline.Stage[any, string], logger *zap.Logger) *NormalizeHandler {
	return &NormalizeHandler{stage: stage, logger: logger}
}

// ServeHTTP decodes one input envelope, invokes the stage, and returns the
// normalized text.
func (h *NormalizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	logger := h.logger.With(zap.String("request_id", requestID))

	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.NewValidationError(
			"Invalid normalize request format",
			map[string]interface{}{"error": err.Error()},
		))
		return
	}
	if req.Input == nil {
		errors.WriteError(w, errors.NewValidationError(
			"Request must contain an input",
			nil,
		))
		return
	}

	value, err := req.Input.Decode()
	if err != nil {
		errors.WriteError(w, errors.NewValidationError(
			"Invalid input payload",
			map[string]interface{}{"error": err.Error()},
		))
		return
	}

	output, err := h.stage.Invoke(r.Context(), value)
	if err != nil {
		errors.LogError(logger, err, requestID)
		errors.WriteError(w, errors.NewInternalError(requestID, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NormalizeResponse{Output: output}); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// StreamHandler serves sequence normalization as NDJSON: one line per
// output item. Under a reducing stage this is a single line emitted after
// the whole input sequence has been consumed.
type StreamHandler struct {
	stage  pipeline.Stage[any, string]
	logger *zap.Logger
}

// NewStreamHandler creates the streaming handler around a normalization
// stage.
func NewStreamHandler(stage pipeline.Stage[any, string], logger *zap.Logger) *StreamHandler {
	return &StreamHandler{stage: stage, logger: logger}
}

// ServeHTTP decodes the input sequence, feeds it through the stage's
// Transform, and writes each output item as an NDJSON line.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	logger := h.logger.With(zap.String("request_id", requestID))

	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.NewValidationError(
			"Invalid normalize request format",
			map[string]interface{}{"error": err.Error()},
		))
		return
	}

	values := make([]any, 0, len(req.Inputs))
	for i, env := range req.Inputs {
		v, err := env.Decode()
		if err != nil {
			errors.WriteError(w, errors.NewValidationError(
				"Invalid input payload",
				map[string]interface{}{"index": i, "error": err.Error()},
			))
			return
		}
		values = append(values, v)
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	ctx := r.Context()
	out := h.stage.Transform(ctx, pipeline.Emit(ctx, values...))
	for item := range out {
		if item.Err != nil {
			flowErr := errors.NewUpstreamError("upstream stage failed", item.Err)
			errors.LogError(logger, flowErr, requestID)
			// Headers are already written; surface the failure in-band as
			// the final line.
			enc.Encode(map[string]string{"error": flowErr.Error()})
			return
		}
		if err := enc.Encode(NormalizeResponse{Output: item.Value}); err != nil {
			logger.Error("Failed to encode stream item", zap.Error(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
