package nostrwire

// Client→server and server→client frame kinds (spec.md §6). Frames are
// modeled as tagged structs rather than raw JSON arrays so transport
// implementations (out of scope per spec.md §1) can marshal/unmarshal them
// without repeating the `["TYPE", ...]` indexing throughout the codebase.

type ReqFrame struct {
	SubscriptionID string
	Filters        []*Filter
}

type CloseFrame struct {
	SubscriptionID string
}

type ClientEventFrame struct {
	Event *Event
}

type ServerEventFrame struct {
	SubscriptionID string
	Event          *Event
}

type EOSEFrame struct {
	SubscriptionID string
}

type NoticeFrame struct {
	Text string
}

// OKFrame acknowledges a published event (used by the publish pipeline's
// broadcast step).
type OKFrame struct {
	EventID string
	Accepted bool
	Reason   string
}
