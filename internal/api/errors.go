package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/search"
)

var (
	// errBadBody marks undecodable or invalid request bodies.
	errBadBody = errors.New("invalid request body")

	errBodyTooLarge = errors.New("request body too large")
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status, code, msg := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, code, msg)
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, errBadBody), errors.Is(err, profile.ErrBadInput), errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error()
	case errors.Is(err, profile.ErrDuplicateKeyword):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, profile.ErrProfileNotFound):
		return http.StatusNotFound, "NOT_FOUND", "user profile not found"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

// decodeBody decodes a JSON body into v and runs its validate tags.
func (s *Server) decodeBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty body", errBadBody)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			problems := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", errBadBody, strings.Join(problems, "; "))
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}
