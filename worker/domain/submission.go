package domain

// Submission é o envio do formulário de contato. Não é persistido.
//
// Website é o campo honeypot: humanos não o veem, bots o preenchem.
type Submission struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Message string `json:"message" form:"message"`
	Website string `json:"website" form:"website"`
}

// RejectReason identifica por que o gate recusou um envio.
type RejectReason string

const (
	ReasonSpamDetected   RejectReason = "spam_detected"
	ReasonMissingFields  RejectReason = "missing_fields"
	ReasonInvalidEmail   RejectReason = "invalid_email"
	ReasonRateLimited    RejectReason = "rate_limited"
	ReasonDispatchFailed RejectReason = "dispatch_failed"
)

// Result é o resultado marcado de Gate.Submit.
//
// Reason vazio significa aceito. Err carrega a causa quando Reason é
// ReasonDispatchFailed.
type Result struct {
	Reason RejectReason
	Err    error
}

func (r Result) Accepted() bool { return r.Reason == "" }

// Outcome devolve o rótulo usado em estatísticas e logs.
func (r Result) Outcome() string {
	if r.Accepted() {
		return "accepted"
	}
	return string(r.Reason)
}
