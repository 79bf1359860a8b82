package rpc

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/mcdev12/planpoker/go/internal/backend"
)

// toConnectError maps backend sentinels onto connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, backend.ErrNameTaken):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, backend.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// fromConnectError restores the backend sentinel carried by a connect code so
// callers can keep using errors.Is.
func fromConnectError(procedure string, err error) error {
	var sentinel error
	switch connect.CodeOf(err) {
	case connect.CodeNotFound:
		sentinel = backend.ErrNotFound
	case connect.CodeAlreadyExists:
		sentinel = backend.ErrNameTaken
	case connect.CodeInvalidArgument:
		sentinel = backend.ErrInvalidInput
	default:
		return fmt.Errorf("%s: %w", procedure, err)
	}

	msg := err.Error()
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		msg = connectErr.Message()
	}
	return fmt.Errorf("%s: %w: %s", procedure, sentinel, msg)
}
