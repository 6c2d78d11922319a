package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
)

// ContactRequest is a message sent from the contact form.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`

	// Raw is the body as the client sent it. When set it is forwarded
	// unchanged instead of re-encoding the fields above.
	Raw json.RawMessage `json:"-"`
}

func (r ContactRequest) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(r.Email) == "" {
		errs = append(errs, errors.New("email is required"))
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errs = append(errs, fmt.Errorf("email %q is not a valid address", r.Email))
	}
	if strings.TrimSpace(r.Message) == "" {
		errs = append(errs, errors.New("message is required"))
	}
	return errors.Join(errs...)
}

// PaymentRequest pays part or all of the outstanding balance.
type PaymentRequest struct {
	CustomerID *CustomerID `json:"customer_id,omitempty"`
	Amount     float64     `json:"amount"`

	Raw json.RawMessage `json:"-"`
}

func (r PaymentRequest) Validate() error {
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return errors.New("amount must be a finite number")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be greater than zero")
	}
	return nil
}
