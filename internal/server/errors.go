package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gaogaogoo/sport-log/internal/auth"
	"github.com/gaogaogoo/sport-log/internal/repository"
)

const maxBodyBytes = 16 << 20

// statusEnvelope is the uniform error body. It carries the HTTP status and
// nothing else so that internal causes never leak to clients.
type statusEnvelope struct {
	Status int `json:"status"`
}

func writeStatus(w http.ResponseWriter, status int) {
	writeJSON(w, status, statusEnvelope{Status: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// errValidation marks payloads that parse but violate a constraint.
var errValidation = errors.New("validation failed")

// respondError maps an error to the uniform status envelope. Missing rows
// are reported as forbidden on authenticated paths so that responses do not
// reveal whether a row exists for another principal.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, repository.ErrNotFound):
		writeStatus(w, http.StatusForbidden)
	case errors.Is(err, repository.ErrConflict):
		writeStatus(w, http.StatusConflict)
	case errors.Is(err, errValidation):
		writeStatus(w, http.StatusBadRequest)
	default:
		s.log.Printf("internal error: %v", err)
		writeStatus(w, http.StatusInternalServerError)
	}
}

// decodeOneOrMany parses a body that holds either a single object or an
// array of them. Write endpoints accept both so clients can batch.
func decodeOneOrMany[M any](r *http.Request) ([]M, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", errValidation, err)
	}

	for _, c := range body {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			var many []M
			if err := json.Unmarshal(body, &many); err != nil {
				return nil, true, fmt.Errorf("%w: %v", errValidation, err)
			}
			return many, true, nil
		}
		break
	}

	var one M
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, false, fmt.Errorf("%w: %v", errValidation, err)
	}
	return []M{one}, false, nil
}

func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dest); err != nil {
		return fmt.Errorf("%w: %v", errValidation, err)
	}
	return nil
}
