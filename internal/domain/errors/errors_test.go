package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	pkgerrors "github.com/thekiqdev/raceflow-hub-sub001/pkg/errors"
)

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("creating transfer: %w", ErrInvalidTransfer.WithCause(errors.New("same runner")))

	assert.True(t, errors.Is(wrapped, ErrInvalidTransfer))
	assert.False(t, errors.Is(wrapped, ErrTransferNotFound))

	var de *DomainError
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, ErrTypeInvalidTransfer, de.Type)
}

func TestDomainError_CodeMapsToHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrRegistrationNotFound, 404},
		{ErrForbidden, 403},
		{ErrModuleDisabled, 403},
		{ErrInvalidTransfer, 400},
		{ErrPaymentAlreadyExists, 409},
		{ErrTransferFailed, 500},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, pkgerrors.ToHTTPStatus(pkgerrors.CodeOf(tt.err)))
		})
	}
}

func TestDomainError_WithMessageDoesNotMutateSentinel(t *testing.T) {
	custom := ErrNewRunnerNotFound.WithMessage("Nenhum usuário com o e-mail %s", "a@b.com")

	assert.Equal(t, "Nenhum usuário com o e-mail a@b.com", custom.Message)
	assert.NotEqual(t, custom.Message, ErrNewRunnerNotFound.Message)
	assert.True(t, errors.Is(custom, ErrNewRunnerNotFound))
}
