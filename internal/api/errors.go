package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/xraph/tokenledger"
)

// badRequest marks malformed input that never reached the ledger.
type badRequest struct {
	msg    string
	status int
}

func (e *badRequest) Error() string { return e.msg }

func invalid(msg string) error { return &badRequest{msg: msg, status: http.StatusBadRequest} }

func tooLarge(limit int64) error {
	return &badRequest{
		msg:    "request body exceeds " + strconv.FormatInt(limit, 10) + " bytes",
		status: http.StatusRequestEntityTooLarge,
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// classify maps an error to an HTTP status and ledger error kind.
func classify(err error) (int, string) {
	var br *badRequest
	if errors.As(err, &br) {
		return br.status, ""
	}

	switch kind := tokenledger.KindOf(err); kind {
	case tokenledger.KindNullDestination, tokenledger.KindInvalidConstruction:
		return http.StatusBadRequest, kind.String()
	case tokenledger.KindInsufficientBalance, tokenledger.KindInsufficientAllowance:
		return http.StatusUnprocessableEntity, kind.String()
	}

	switch {
	case errors.Is(err, tokenledger.ErrNoStore):
		return http.StatusNotImplemented, ""
	case tokenledger.IsNotFound(err):
		return http.StatusNotFound, ""
	case tokenledger.IsRetryable(err):
		return http.StatusServiceUnavailable, ""
	default:
		return http.StatusInternalServerError, ""
	}
}

func writeError(w http.ResponseWriter, status int, msg, kind string) error {
	return writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
