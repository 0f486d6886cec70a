// File: internal/infra/web/webhook.go
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"personal-vault/internal/domain"
	"personal-vault/internal/infra/logging"
	"personal-vault/internal/infra/metrics"
	"personal-vault/internal/usecase"
)

// Webhook bodies are small; anything past this is hostile.
const maxWebhookBody = 1 << 20

type webhookResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Processed bool   `json:"processed"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		metrics.IncWebhookRejected("body_read")
		writeWebhook(w, http.StatusBadRequest, webhookResponse{Message: "unreadable body"})
		return
	}

	if !VerifySignature(s.webhookSecret, body, r.Header.Get("X-Signature")) {
		metrics.IncWebhookRejected("signature")
		log.Warn().Str("remote", r.RemoteAddr).Msg("webhook signature rejected")
		writeWebhook(w, http.StatusUnauthorized, webhookResponse{Message: "invalid signature"})
		return
	}

	var req usecase.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		metrics.IncWebhookRejected("malformed")
		log.Warn().Err(err).Msg("malformed webhook body")
		writeWebhook(w, http.StatusBadRequest, webhookResponse{Message: "malformed body"})
		return
	}

	ev, err := s.normalizer.Normalize(&req)
	if err != nil {
		s.writeNormalizeError(w, r, req.Payload.Meta.EventName, err)
		return
	}

	res, err := s.syncUC.Apply(r.Context(), ev)
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			// Concurrent apply lost the race; the provider's retry will land.
			writeWebhook(w, http.StatusConflict, webhookResponse{Message: "concurrent update, retry"})
			return
		}
		log.Error().Err(err).Msg("webhook apply failed")
		writeWebhook(w, http.StatusInternalServerError, webhookResponse{Message: "internal error"})
		return
	}

	writeWebhook(w, http.StatusOK, webhookResponse{
		Success:   true,
		Message:   outcomeMessage(res.Outcome),
		Processed: res.Processed(),
	})
}

func (s *Server) writeNormalizeError(w http.ResponseWriter, r *http.Request, eventName string, err error) {
	log := logging.With(r.Context(), s.log)
	switch {
	case errors.Is(err, domain.ErrUnknownEventName):
		// Events outside the catalog are acknowledged so the provider does
		// not keep retrying them.
		metrics.IncWebhookEvent(eventName, "ignored")
		log.Info().Str("event_name", eventName).Msg("unknown event acknowledged")
		writeWebhook(w, http.StatusOK, webhookResponse{Success: true, Message: "event ignored"})
	case errors.Is(err, domain.ErrUnknownProviderStatus), errors.Is(err, domain.ErrInvalidArgument):
		metrics.IncWebhookRejected("validation")
		log.Warn().Err(err).Str("event_name", eventName).Msg("webhook failed validation")
		writeWebhook(w, http.StatusBadRequest, webhookResponse{Message: "invalid event"})
	default:
		log.Error().Err(err).Str("event_name", eventName).Msg("webhook normalization failed")
		writeWebhook(w, http.StatusInternalServerError, webhookResponse{Message: "internal error"})
	}
}

func outcomeMessage(outcome string) string {
	switch outcome {
	case usecase.OutcomeApplied:
		return "event applied"
	case usecase.OutcomeDuplicate:
		return "already processed"
	case usecase.OutcomeStale:
		return "stale event skipped"
	case usecase.OutcomeConflict:
		return "transition not allowed, skipped"
	case usecase.OutcomeUnknownSub:
		return "unknown subscription"
	}
	return outcome
}

func writeWebhook(w http.ResponseWriter, status int, resp webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
