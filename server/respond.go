package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ronakseth96/reg-pilot-api/verifier"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeMessage writes {"msg": msg}.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

// writeVerifierError relays a verifier rejection with its status and body.
// Timeouts become 504 and transport failures 502.
func writeVerifierError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := zerolog.Ctx(r.Context())

	var se *verifier.StatusError

	switch {
	case errors.As(err, &se):
		logger.Info().Str("op", op).Int("status", se.StatusCode).Msg("verifier rejected request")
		writeRaw(w, se.StatusCode, se.Body)

	case errors.Is(err, verifier.ErrTimeout):
		logger.Error().Err(err).Str("op", op).Msg("verifier timed out")
		writeMessage(w, http.StatusGatewayTimeout, "verifier timed out")

	default:
		logger.Error().Err(err).Str("op", op).Msg("verifier unavailable")
		writeMessage(w, http.StatusBadGateway, "verifier unavailable")
	}
}
