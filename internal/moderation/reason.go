package moderation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ReasonValidator checks free-text reasons collected from operators.
type ReasonValidator struct {
	validate *validator.Validate
	tag      string
}

// NewReasonValidator accepts non-blank reasons of at most maxLength characters.
func NewReasonValidator(maxLength int) *ReasonValidator {
	return &ReasonValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tag:      fmt.Sprintf("required,max=%d", maxLength),
	}
}

// Check returns the trimmed reason or ErrInvalidReason.
func (v *ReasonValidator) Check(reason string) (string, error) {
	reason = strings.TrimSpace(reason)

	if err := v.validate.Var(reason, v.tag); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidReason, err)
	}

	return reason, nil
}
