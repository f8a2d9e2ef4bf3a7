package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"gosim/domain/core"
)

func TestWrap_MapsDomainSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"not found", fmt.Errorf("%w %q", core.ErrUnknownGenerator, "x"), CodeNotFound, http.StatusNotFound},
		{"invalid parameter", core.NewParameterError("n", -1, "must be positive"), CodeValidationError, http.StatusBadRequest},
		{"degenerate", core.ErrDegenerate, CodeSimulationError, http.StatusUnprocessableEntity},
		{"plain", stderrors.New("disk full"), CodeInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Wrap(tt.err, "run failed")
			assert.Equal(t, tt.code, GetCode(wrapped))
			assert.Equal(t, tt.status, HTTPStatus(wrapped))
			assert.True(t, stderrors.Is(wrapped, tt.err))
		})
	}
}

func TestWrap_KeepsAppErrorCode(t *testing.T) {
	inner := DatabaseError("insert trials", stderrors.New("constraint"))
	outer := Wrapf(inner, "save run %s", "abc")
	assert.Equal(t, CodeDatabaseError, GetCode(outer))
	assert.Contains(t, outer.Error(), "save run abc")
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, stderrors.New("bad body"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.True(t, IsAppError(err))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}
