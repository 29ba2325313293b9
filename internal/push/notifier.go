// Package push delivers best-effort notifications to household members'
// devices and runs the periodic overdue sweep.
package push

import (
	"context"
	"fmt"

	"github.com/dukerupert/pacto/internal/model"
)

// Message is a notification addressed to one or more users.
type Message struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Notifier sends a message to every device of the given users. Delivery is
// best effort: implementations log failures and never report them.
type Notifier interface {
	Notify(ctx context.Context, userIDs []string, msg Message)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, userIDs []string, msg Message)

func (f NotifierFunc) Notify(ctx context.Context, userIDs []string, msg Message) {
	f(ctx, userIDs, msg)
}

// Nop drops every message.
var Nop Notifier = NotifierFunc(func(context.Context, []string, Message) {})

func AssignedMessage(p *model.Pact) Message {
	return Message{
		Title: "Nuevo pacto asignado",
		Body:  fmt.Sprintf("Se te asignó: %s", p.Title),
		Data:  map[string]any{"pactId": p.ID},
	}
}

func NeedsConfirmationMessage(p *model.Pact) Message {
	return Message{
		Title: "Confirmación requerida",
		Body:  fmt.Sprintf("Confirma: %s", p.Title),
		Data:  map[string]any{"pactId": p.ID},
	}
}

func OverdueMessage(p *model.Pact) Message {
	return Message{
		Title: "Pacto vencido",
		Body:  fmt.Sprintf("Está vencido: %s", p.Title),
		Data:  map[string]any{"pactId": p.ID},
	}
}
