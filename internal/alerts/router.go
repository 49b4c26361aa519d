package alerts

import (
	"fmt"

	"github.com/pedro-hbl/fraudshield-stream/internal/stream"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// DesktopTitle is the title of fraud desktop notifications
const DesktopTitle = "Fraud Alert - FraudShield"

// Registrar accepts fraud and warning handlers; both stream.Monitor and
// stream.Dispatcher satisfy it
type Registrar interface {
	OnFraud(h stream.Handler) *stream.Subscription
	OnWarning(h stream.Handler) *stream.Subscription
}

// Router turns classified transactions into port calls. Each port is a
// separate handler so one failing port does not starve the others.
type Router struct {
	sound   *Sound
	desktop *Desktop
	toaster Toaster
}

// NewRouter creates a router over the three ports
func NewRouter(sound *Sound, desktop *Desktop, toaster Toaster) *Router {
	return &Router{sound: sound, desktop: desktop, toaster: toaster}
}

// Attach registers every port handler and returns the subscriptions
func (r *Router) Attach(reg Registrar) []*stream.Subscription {
	var subs []*stream.Subscription
	for _, h := range r.FraudHandlers() {
		subs = append(subs, reg.OnFraud(h))
	}
	for _, h := range r.WarningHandlers() {
		subs = append(subs, reg.OnWarning(h))
	}
	return subs
}

// FraudHandlers returns the handlers to register for fraudulent transactions
func (r *Router) FraudHandlers() []stream.Handler {
	return []stream.Handler{
		r.fraudSound,
		r.fraudToast,
		r.fraudDesktop,
	}
}

// WarningHandlers returns the handlers to register for pending transactions
func (r *Router) WarningHandlers() []stream.Handler {
	return []stream.Handler{
		r.warningSound,
	}
}

func (r *Router) fraudSound(tx transactions.Transaction) error {
	return r.sound.PlayAlert(transactions.AlertFraud)
}

func (r *Router) warningSound(tx transactions.Transaction) error {
	return r.sound.PlayAlert(transactions.AlertWarning)
}

func (r *Router) fraudToast(tx transactions.Transaction) error {
	r.toaster.Toast(NewToast(ToastDestructive, "Fraud Detected",
		fmt.Sprintf("Transaction %s flagged with %d%% risk score", tx.ID, tx.RiskScore)))
	return nil
}

func (r *Router) fraudDesktop(tx transactions.Transaction) error {
	_, err := r.desktop.Notify(DesktopTitle, FraudBody(transactions.NewAlert(transactions.AlertFraud, tx)), tx.ID)
	return err
}

// FraudBody renders the desktop notification body for an alert
func FraudBody(a transactions.Alert) string {
	return fmt.Sprintf("Transaction %s flagged!\nAmount: $%s\nLocation: %s\nRisk Score: %d%%",
		a.ID, a.Amount.StringFixed(2), a.Location, a.RiskScore)
}
