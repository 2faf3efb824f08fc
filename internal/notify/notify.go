// Package notify delivers human-facing alerts. Delivery is best effort,
// failures are logged and never propagate into the trading path.
package notify

import "log"

// Notifier receives human-readable engine messages.
type Notifier interface {
	Notify(message string)
}

// Func adapts a plain function to the Notifier interface.
type Func func(message string)

func (f Func) Notify(message string) { f(message) }

// LogNotifier writes messages to the process log. Used when no Telegram
// credentials are configured.
type LogNotifier struct{}

func (LogNotifier) Notify(message string) {
	log.Printf("📢 %s", message)
}
