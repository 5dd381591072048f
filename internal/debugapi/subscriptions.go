package debugapi

import (
	"net/http"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/untreu2/divinefeed/internal/subscription"
)

// SubscriptionsView is the read-only slice of *subscription.Manager this
// package depends on.
type SubscriptionsView interface {
	Snapshot() []subscription.ActiveSubscription
}

// SubscriptionView is the JSON projection of one active subscription. Ids
// are encoded as openapi_types.UUID — the Subscription Manager mints ids
// via google/uuid, so this is a lossless reparse rather than a new
// generator.
type SubscriptionView struct {
	ID       openapi_types.UUID `json:"id"`
	Name     string             `json:"name"`
	Priority int                `json:"priority"`
}

// WithSubscriptions mounts the /debug/subscriptions route backed by mgr.
// Kept as an opt-in method rather than a constructor field so callers that
// don't wire a Subscription Manager (e.g. unit tests of the pool routes
// alone) don't need a fake one.
func (s *Server) WithSubscriptions(mgr SubscriptionsView) *Server {
	s.subs = mgr
	return s
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	if s.subs == nil {
		respondJSON(w, http.StatusOK, []SubscriptionView{})
		return
	}
	snap := s.subs.Snapshot()
	out := make([]SubscriptionView, 0, len(snap))
	for _, a := range snap {
		parsed, err := uuid.Parse(a.ID)
		if err != nil {
			continue
		}
		out = append(out, SubscriptionView{ID: openapi_types.UUID(parsed), Name: a.Name, Priority: a.Priority})
	}
	respondJSON(w, http.StatusOK, out)
}
