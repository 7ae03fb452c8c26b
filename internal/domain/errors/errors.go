package errors

import (
	"fmt"

	pkgerrors "github.com/thekiqdev/raceflow-hub-sub001/pkg/errors"
)

// DomainError is a business rule violation surfaced to interactive callers.
// Kind is a pkg/errors code and decides the HTTP status; Type is the stable
// machine-readable code returned to clients; Message is shown to the user.
type DomainError struct {
	Kind    string
	Type    string
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s - %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Code implements pkg/errors.Error
func (e *DomainError) Code() string {
	return e.Kind
}

// Is matches any DomainError with the same Type, so wrapped copies still
// compare equal to the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithCause returns a copy of e carrying cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithMessage returns a copy of e with a more specific user message.
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

func newError(kind, typ, message string) *DomainError {
	return &DomainError{Kind: kind, Type: typ, Message: message}
}

// Error types
const (
	ErrTypeInvalidInput           = "INVALID_INPUT"
	ErrTypeForbidden              = "FORBIDDEN"
	ErrTypeRegistrationNotFound   = "REGISTRATION_NOT_FOUND"
	ErrTypeTransferNotFound       = "TRANSFER_NOT_FOUND"
	ErrTypeModuleDisabled         = "MODULE_DISABLED"
	ErrTypeInvalidTransfer        = "INVALID_TRANSFER"
	ErrTypeTransferAlreadyOpen    = "TRANSFER_ALREADY_OPEN"
	ErrTypePaymentAlreadyExists   = "PAYMENT_ALREADY_EXISTS"
	ErrTypeNoFeeRequired          = "NO_FEE_REQUIRED"
	ErrTypeNewRunnerNotFound      = "NEW_RUNNER_NOT_FOUND"
	ErrTypeNewRunnerRequired      = "NEW_RUNNER_REQUIRED"
	ErrTypeFeeNotPaid             = "FEE_NOT_PAID"
	ErrTypeTransferNotOpen        = "TRANSFER_NOT_OPEN"
	ErrTypeTransferFailed         = "TRANSFER_FAILED"
	ErrTypeInvalidTaxID           = "INVALID_TAX_ID"
	ErrTypeRegistrationNotPayable = "REGISTRATION_NOT_PAYABLE"
	ErrTypeProfileNotFound        = "PROFILE_NOT_FOUND"
	ErrTypeInvalidDecision        = "INVALID_DECISION"
)

// Sentinels. Compare with errors.Is; return a WithCause/WithMessage copy when
// extra context is useful.
var (
	ErrInvalidInput           = newError(pkgerrors.ErrInvalidArgument, ErrTypeInvalidInput, "Dados inválidos")
	ErrForbidden              = newError(pkgerrors.ErrUnauthorized, ErrTypeForbidden, "Você não tem permissão para esta ação")
	ErrRegistrationNotFound   = newError(pkgerrors.ErrNotFound, ErrTypeRegistrationNotFound, "Inscrição não encontrada")
	ErrTransferNotFound       = newError(pkgerrors.ErrNotFound, ErrTypeTransferNotFound, "Solicitação de transferência não encontrada")
	ErrProfileNotFound        = newError(pkgerrors.ErrNotFound, ErrTypeProfileNotFound, "Perfil não encontrado")
	ErrModuleDisabled         = newError(pkgerrors.ErrUnauthorized, ErrTypeModuleDisabled, "O módulo de transferências está desativado")
	ErrInvalidTransfer        = newError(pkgerrors.ErrInvalidArgument, ErrTypeInvalidTransfer, "Não é possível transferir a inscrição para o próprio titular")
	ErrTransferAlreadyOpen    = newError(pkgerrors.ErrConflict, ErrTypeTransferAlreadyOpen, "Já existe uma solicitação de transferência em aberto para esta inscrição")
	ErrPaymentAlreadyExists   = newError(pkgerrors.ErrConflict, ErrTypePaymentAlreadyExists, "O pagamento da taxa de transferência já foi gerado")
	ErrNoFeeRequired          = newError(pkgerrors.ErrInvalidArgument, ErrTypeNoFeeRequired, "Esta transferência não possui taxa")
	ErrNewRunnerNotFound      = newError(pkgerrors.ErrInvalidArgument, ErrTypeNewRunnerNotFound, "Novo titular não encontrado pelo CPF ou e-mail informado")
	ErrNewRunnerRequired      = newError(pkgerrors.ErrInvalidArgument, ErrTypeNewRunnerRequired, "Informe o novo titular da inscrição")
	ErrFeeNotPaid             = newError(pkgerrors.ErrConflict, ErrTypeFeeNotPaid, "A taxa de transferência ainda não foi paga")
	ErrTransferNotOpen        = newError(pkgerrors.ErrConflict, ErrTypeTransferNotOpen, "A solicitação de transferência já foi processada")
	ErrTransferFailed         = newError(pkgerrors.ErrInternal, ErrTypeTransferFailed, "Falha ao executar a transferência")
	ErrInvalidTaxID           = newError(pkgerrors.ErrInvalidArgument, ErrTypeInvalidTaxID, "CPF inválido. Atualize seu CPF no perfil para gerar o pagamento")
	ErrRegistrationNotPayable = newError(pkgerrors.ErrConflict, ErrTypeRegistrationNotPayable, "Esta inscrição não aguarda pagamento")
	ErrInvalidDecision        = newError(pkgerrors.ErrInvalidArgument, ErrTypeInvalidDecision, "Status deve ser approved ou rejected")
)
