package services

import "errors"

// Validation errors returned by the ledger service. The ledger is left
// untouched whenever one of these is returned.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrPriceNotSet          = errors.New("price per gram not set")
	ErrMissingDescription   = errors.New("trade description missing")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrNoTransactionToUndo  = errors.New("no transaction to undo")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrProfileNotActive     = errors.New("profile not active")
)

// UserMessage maps a service error to the title/detail pair shown to the
// operator. The HTTP layer adds status codes; it never rewrites these texts.
func UserMessage(err error) (title, detail string) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "Valor inválido", "Por favor, insira um número positivo."
	case errors.Is(err, ErrInsufficientStock):
		return "Estoque insuficiente", "Você não pode vender mais do que tem."
	case errors.Is(err, ErrPriceNotSet):
		return "Preço por grama não definido", "Por favor, defina um preço por grama nas configurações antes de vender."
	case errors.Is(err, ErrMissingDescription):
		return "Descrição necessária", "Por favor, descreva o objeto trocado."
	case errors.Is(err, ErrInvalidPrice):
		return "Preço inválido", "Por favor, insira um número não negativo."
	case errors.Is(err, ErrNoTransactionToUndo):
		return "Nenhuma transação para desfazer", "Não há transação recente para desfazer."
	case errors.Is(err, ErrInvalidPaymentMethod):
		return "Forma de pagamento inválida", "Escolha uma forma de pagamento aceita."
	default:
		return "Erro interno", "Tente novamente."
	}
}
