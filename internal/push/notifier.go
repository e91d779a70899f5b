package push

import (
	"errors"
	"log/slog"

	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/store"
)

// Notifier fans a notification out to every parent device of a household.
// Expired subscriptions are dropped as they are discovered.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{service: service, subs: subs, logger: logger}
}

// NotifyParents pushes the payload to all parent subscriptions. Failures are
// logged per device; one dead device never blocks the rest.
func (n *Notifier) NotifyParents(householdID int64, payload Payload) {
	if !n.service.Configured() {
		return
	}

	subs, err := n.subs.ListParentSubscriptions(householdID)
	if err != nil {
		n.logger.Error("list parent subscriptions", "household_id", householdID, "error", err)
		return
	}
	n.send(subs, payload)
}

// NotifyProfile pushes the payload to the devices of the user linked to the
// profile. Unlinked child profiles have no devices and this is a no-op.
func (n *Notifier) NotifyProfile(profileID int64, payload Payload) {
	if !n.service.Configured() {
		return
	}

	subs, err := n.subs.ListProfileSubscriptions(profileID)
	if err != nil {
		n.logger.Error("list profile subscriptions", "profile_id", profileID, "error", err)
		return
	}
	n.send(subs, payload)
}

func (n *Notifier) send(subs []model.PushSubscription, payload Payload) {
	for i := range subs {
		sub := &subs[i]
		err := n.service.Send(sub, payload)
		switch {
		case errors.Is(err, ErrExpired):
			if derr := n.subs.Delete(sub.ID); derr != nil {
				n.logger.Warn("drop expired subscription", "id", sub.ID, "error", derr)
			}
		case err != nil:
			n.logger.Warn("push failed", "id", sub.ID, "error", err)
		}
	}
}
