package checkout

import "time"

// State is the checkout session's position in the order → payment → confirmation protocol.
type State string

const (
	StateIdle                        State = "IDLE"
	StateValidatingInput             State = "VALIDATING_INPUT"
	StateCreatingOrder               State = "CREATING_ORDER"
	StateInitiatingPayment           State = "INITIATING_PAYMENT"
	StateAwaitingPaymentConfirmation State = "AWAITING_PAYMENT_CONFIRMATION"
	StateVerifyingPayment            State = "VERIFYING_PAYMENT"
	StateCompleted                   State = "COMPLETED"
	StateFailed                      State = "FAILED"
	StateCancelled                   State = "CANCELLED"
)

// IsTerminal reports whether no further transition is possible without Reset.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

func (s State) String() string { return string(s) }

// Reason names why a session is in StateFailed.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonEmptyCart           Reason = "EmptyCart"
	ReasonMissingName         Reason = "MissingName"
	ReasonMissingPhone        Reason = "MissingPhone"
	ReasonMissingAddress      Reason = "MissingAddress"
	ReasonAuthRequired        Reason = "AuthRequired"
	ReasonOrderCreationFailed Reason = "OrderCreationFailed"
	ReasonCheckoutFailed      Reason = "CheckoutFailed"
	ReasonVerificationError   Reason = "VerificationError"
	ReasonPaymentRejected     Reason = "PaymentRejected"
	ReasonCartClearFailed     Reason = "CartClearFailed"
)

// Step identifies which remote step failed, so Retry can resume exactly there.
type Step string

const (
	StepNone            Step = ""
	StepValidate        Step = "validate"
	StepCreateOrder     Step = "create_order"
	StepInitiatePayment Step = "initiate_payment"
	StepVerifyPayment   Step = "verify_payment"
	StepClearCart       Step = "clear_cart"
)

// Status is a read-only snapshot of a checkout session.
type Status struct {
	SessionID        string    `json:"session_id"`
	State            State     `json:"state"`
	Reason           Reason    `json:"reason,omitempty"`
	Message          string    `json:"message,omitempty"`
	FailedStep       Step      `json:"failed_step,omitempty"`
	Retryable        bool      `json:"retryable"`
	OrderID          string    `json:"order_id,omitempty"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	Reference        string    `json:"reference,omitempty"`
	AuthorizationURL string    `json:"authorization_url,omitempty"`
	AccessCode       string    `json:"access_code,omitempty"`
	VerifyAttempts   int       `json:"verify_attempts"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Transition is delivered to observers after every state change.
type Transition struct {
	SessionID string
	From      State
	To        State
	Reason    Reason
	OrderID   string
	Reference string
	At        time.Time
}
