package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"service-courier-match/internal/apperr"
	"service-courier-match/internal/domain"
	"service-courier-match/internal/service/match"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation was refused: not found, forbidden, invalid
	ExitCommandError = 2 // backend unreachable or misconfigured
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// refused maps coordinator errors onto exit codes.
func refused(message string, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrForbidden),
		errors.Is(err, apperr.ErrInvalid):
		return WrapExitError(ExitFailure, message, err)
	}
	return WrapExitError(ExitCommandError, message, err)
}

type texter interface {
	Text() string
}

type printer struct {
	format string
	w      io.Writer
}

func (p printer) print(v any) error {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	if t, ok := v.(texter); ok {
		_, err := fmt.Fprintln(p.w, t.Text())
		return err
	}
	_, err := fmt.Fprintln(p.w, v)
	return err
}

type confirmationView struct {
	Party    string    `json:"party" yaml:"party"`
	Decision string    `json:"decision" yaml:"decision"`
	At       time.Time `json:"at" yaml:"at"`
}

type matchView struct {
	MatchID        string             `json:"match_id" yaml:"match_id"`
	Status         string             `json:"status" yaml:"status"`
	OrderID        string             `json:"order_id" yaml:"order_id"`
	MatchedOrderID string             `json:"matched_order_id" yaml:"matched_order_id"`
	RequestOwner   string             `json:"request_owner" yaml:"request_owner"`
	FlightOwner    string             `json:"flight_owner" yaml:"flight_owner"`
	Confirmations  []confirmationView `json:"confirmations,omitempty" yaml:"confirmations,omitempty"`
	Deadline       time.Time          `json:"deadline" yaml:"deadline"`
	CreatedOrderID string             `json:"created_order_id,omitempty" yaml:"created_order_id,omitempty"`
	ChatID         string             `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
	Reason         string             `json:"reason,omitempty" yaml:"reason,omitempty"`
	Note           string             `json:"note,omitempty" yaml:"note,omitempty"`
	ResolvedBy     string             `json:"resolved_by,omitempty" yaml:"resolved_by,omitempty"`
	Settled        bool               `json:"settled" yaml:"settled"`
	Version        int64              `json:"version" yaml:"version"`
}

func toMatchView(rec domain.MatchRecord) matchView {
	res := rec.ResolutionOrEmpty()
	v := matchView{
		MatchID:        rec.ID,
		Status:         string(rec.Status),
		OrderID:        rec.OrderID,
		MatchedOrderID: rec.MatchedOrderID,
		RequestOwner:   rec.RequestOwner,
		FlightOwner:    rec.FlightOwner,
		Deadline:       rec.Deadline.UTC(),
		CreatedOrderID: res.OrderID,
		ChatID:         res.ChatID,
		Reason:         res.Reason,
		Note:           res.Note,
		ResolvedBy:     res.ResolvedBy,
		Settled:        rec.Settled,
		Version:        rec.Version,
	}
	for _, party := range rec.Parties() {
		if c, ok := rec.Confirmations[party]; ok {
			v.Confirmations = append(v.Confirmations, confirmationView{
				Party:    party,
				Decision: string(c.Decision),
				At:       c.At.UTC(),
			})
		}
	}
	return v
}

func (v matchView) Text() string {
	s := fmt.Sprintf("match %s  %s\n  orders   %s <-> %s\n  parties  %s, %s\n  deadline %s\n  version  %d",
		v.MatchID, v.Status, v.OrderID, v.MatchedOrderID, v.RequestOwner, v.FlightOwner,
		v.Deadline.Format(time.RFC3339), v.Version)
	for _, c := range v.Confirmations {
		s += fmt.Sprintf("\n  %s: %s", c.Party, c.Decision)
	}
	if v.ChatID != "" {
		s += "\n  chat     " + v.ChatID
	}
	if v.Reason != "" {
		s += "\n  reason   " + v.Reason
		if v.Note != "" {
			s += " (" + v.Note + ")"
		}
	}
	if v.Status != string(domain.MatchPending) && !v.Settled {
		s += "\n  side effects pending"
	}
	return s
}

type resultView struct {
	MatchID         string `json:"match_id" yaml:"match_id"`
	Status          string `json:"status" yaml:"status"`
	Reason          string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Note            string `json:"note,omitempty" yaml:"note,omitempty"`
	AlreadyResolved bool   `json:"already_resolved" yaml:"already_resolved"`
}

func toResultView(r match.Result) resultView {
	return resultView{
		MatchID:         r.MatchID,
		Status:          string(r.Status),
		Reason:          r.Reason,
		Note:            r.Note,
		AlreadyResolved: r.AlreadyResolved,
	}
}

func (v resultView) Text() string {
	if v.AlreadyResolved {
		return fmt.Sprintf("match %s was already %s", v.MatchID, v.Status)
	}
	return fmt.Sprintf("match %s %s", v.MatchID, v.Status)
}

type sweepView struct {
	Expired int `json:"expired" yaml:"expired"`
}

func (v sweepView) Text() string {
	return fmt.Sprintf("expired %d match(es)", v.Expired)
}
