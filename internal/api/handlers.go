package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/uptrace/bunrouter"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/types"
)

type tokenResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Symbol      string        `json:"symbol"`
	Decimals    uint8         `json:"decimals"`
	TotalSupply types.Amount  `json:"total_supply"`
	Owner       types.Address `json:"owner"`
	Sequence    uint64        `json:"sequence"`
}

type balanceResponse struct {
	Account types.Address `json:"account"`
	Balance types.Amount  `json:"balance"`
}

type allowanceResponse struct {
	Owner     types.Address `json:"owner"`
	Spender   types.Address `json:"spender"`
	Allowance types.Amount  `json:"allowance"`
}

type transferRequest struct {
	To     types.Address `json:"to"`
	Amount types.Amount  `json:"amount"`
}

type approveRequest struct {
	Spender types.Address `json:"spender"`
	Amount  types.Amount  `json:"amount"`
}

type transferFromRequest struct {
	From   types.Address `json:"from"`
	To     types.Address `json:"to"`
	Amount types.Amount  `json:"amount"`
}

func (s *Server) health(w http.ResponseWriter, _ bunrouter.Request) error {
	if err := s.ledger.Verify(); err != nil {
		return writeError(w, http.StatusServiceUnavailable, err.Error(), "")
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) token(w http.ResponseWriter, _ bunrouter.Request) error {
	meta := s.ledger.Metadata()
	return writeJSON(w, http.StatusOK, tokenResponse{
		ID:          meta.ID.String(),
		Name:        meta.Name,
		Symbol:      meta.Symbol,
		Decimals:    meta.Decimals,
		TotalSupply: meta.TotalSupply,
		Owner:       meta.Owner,
		Sequence:    s.ledger.Sequence(),
	})
}

func (s *Server) accounts(w http.ResponseWriter, _ bunrouter.Request) error {
	return writeJSON(w, http.StatusOK, s.ledger.Holders())
}

func (s *Server) account(w http.ResponseWriter, req bunrouter.Request) error {
	acct, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, balanceResponse{
		Account: acct,
		Balance: s.ledger.BalanceOf(acct),
	})
}

func (s *Server) allowance(w http.ResponseWriter, req bunrouter.Request) error {
	owner, err := pathAddress(req, "owner")
	if err != nil {
		return err
	}
	spender, err := pathAddress(req, "spender")
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, allowanceResponse{
		Owner:     owner,
		Spender:   spender,
		Allowance: s.ledger.Allowance(owner, spender),
	})
}

func (s *Server) events(w http.ResponseWriter, req bunrouter.Request) error {
	q := req.URL.Query()
	var opts event.ListOpts

	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return invalid("after must be a sequence number")
		}
		opts.AfterSeq = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return invalid("limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	switch k := event.Kind(q.Get("kind")); k {
	case "", event.KindTransfer, event.KindApproval:
		opts.Kind = k
	default:
		return invalid("kind must be transfer or approval")
	}
	if v := q.Get("account"); v != "" {
		acct, err := types.ParseAddress(v)
		if err != nil {
			return invalid("account: " + err.Error())
		}
		opts.Account = acct
	}

	records, err := s.ledger.Events(req.Context(), opts)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, records)
}

func (s *Server) transfer(w http.ResponseWriter, req bunrouter.Request) error {
	caller, err := callerOf(req)
	if err != nil {
		return err
	}
	var body transferRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	n, err := s.ledger.Transfer(req.Context(), caller, body.To, body.Amount)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, n)
}

func (s *Server) approve(w http.ResponseWriter, req bunrouter.Request) error {
	caller, err := callerOf(req)
	if err != nil {
		return err
	}
	var body approveRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	n, err := s.ledger.Approve(req.Context(), caller, body.Spender, body.Amount)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, n)
}

func (s *Server) transferFrom(w http.ResponseWriter, req bunrouter.Request) error {
	caller, err := callerOf(req)
	if err != nil {
		return err
	}
	var body transferFromRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	n, err := s.ledger.TransferFrom(req.Context(), caller, body.From, body.To, body.Amount)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, n)
}

// ──────────────────────────────────────────────────
// Request helpers
// ──────────────────────────────────────────────────

func callerOf(req bunrouter.Request) (types.Address, error) {
	v := req.Header.Get(HeaderCaller)
	if v == "" {
		return types.NullAddress, invalid("missing " + HeaderCaller + " header")
	}
	caller, err := types.ParseAddress(v)
	if err != nil {
		return types.NullAddress, invalid(HeaderCaller + ": " + err.Error())
	}
	return caller, nil
}

func pathAddress(req bunrouter.Request, name string) (types.Address, error) {
	acct, err := types.ParseAddress(req.Param(name))
	if err != nil {
		return types.NullAddress, invalid(name + ": " + err.Error())
	}
	return acct, nil
}

// maxBodyBytes caps mutation request bodies.
const maxBodyBytes = 64 << 10

func decode(w http.ResponseWriter, req bunrouter.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return tooLarge(tooBig.Limit)
		}
		return invalid("invalid request body: " + err.Error())
	}
	return nil
}
