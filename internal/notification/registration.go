package notification

import (
	"context"

	"github.com/tendant/portal-auth/pkg/domain"
)

// RegistrationNotifier turns registration events into confirmation messages.
type RegistrationNotifier struct {
	sink Sink
}

func NewRegistrationNotifier(sink Sink) *RegistrationNotifier {
	return &RegistrationNotifier{sink: sink}
}

// NotifyRegistration enqueues the confirmation email for account.
func (n *RegistrationNotifier) NotifyRegistration(ctx context.Context, account *domain.Account, token *domain.ConfirmationToken) error {
	return n.sink.Enqueue(ctx, Message{
		Kind:      KindConfirmation,
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Token:     token.Token,
	})
}
