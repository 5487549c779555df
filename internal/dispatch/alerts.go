package dispatch

import (
	"context"
	"log"

	"github.com/burjnawas/sitecoord/internal/models"
)

// DestinationResolver maps a site to its configured alert chat.
type DestinationResolver interface {
	AlertDestination(ctx context.Context, siteID string) (string, error)
}

// AlertNotifier routes alerts to their configured destination, falling
// back to the admin chat when none is set. De-duplication lives in the
// alerting engine; every alert that reaches here is delivered.
type AlertNotifier struct {
	dispatcher *Dispatcher
	resolver   DestinationResolver
	formatter  Formatter
	fallback   string
}

// NewAlertNotifier creates an alert notifier. fallback may be empty, in
// which case alerts for sites without a destination are dropped with a
// logged failure.
func NewAlertNotifier(d *Dispatcher, resolver DestinationResolver, formatter Formatter, fallback string) *AlertNotifier {
	return &AlertNotifier{
		dispatcher: d,
		resolver:   resolver,
		formatter:  formatter,
		fallback:   fallback,
	}
}

// NotifyAlert formats and enqueues one alert.
func (n *AlertNotifier) NotifyAlert(ctx context.Context, alert models.Alert) {
	target, err := n.resolver.AlertDestination(ctx, alert.SiteID)
	if err != nil {
		if n.fallback == "" {
			log.Printf("dispatch: no alert destination for site %s, dropping %s alert", alert.SiteID, alert.Kind)
			return
		}
		target = n.fallback
	}
	n.dispatcher.Dispatch(target, Message{Text: n.formatter.FormatAlert(alert)}, alert.Severity)
}
