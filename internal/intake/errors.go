package intake

import (
	"fmt"

	"diagnostico_backend/platform/apperr"
)

// Messages returned to the submitter.
const (
	msgRateLimited   = "Demasiados intentos. Intenta más tarde."
	msgInvalidBody   = "Solicitud inválida"
	msgMissingFields = "Nombre y email son obligatorios"
	msgInvalidEmail  = "Email inválido"
	msgCorporate     = "Usa tu correo corporativo"
	msgCaptcha       = "No pudimos verificar que no eres un robot"
	msgNoAnswers     = "Faltan las respuestas del diagnóstico"
	msgDealFailed    = "No pudimos registrar tu diagnóstico. Intenta de nuevo más tarde."
	msgAccepted      = "Diagnóstico recibido"
)

// Outcomes reported in metrics.
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeDealFailed  = "deal_failed"
	outcomeRateLimited = "rate_limited"
)

// NotificationError wraps a failed confirmation email. It never fails the submission.
type NotificationError struct {
	Email string
	Err   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Email, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

func validationError(msg string) *apperr.Error {
	return apperr.Validation(msg).WithOp("intake.Validate")
}
