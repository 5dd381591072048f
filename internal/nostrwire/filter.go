package nostrwire

import "encoding/json"

// Filter mirrors the event-stream protocol's filter object (spec.md §6).
// Tag selectors use the bracketed key form (`#e`, `#p`, `#t`, `#h`).
type Filter struct {
	IDs     []string            `json:"ids,omitempty"`
	Kinds   []int               `json:"kinds,omitempty"`
	Authors []string            `json:"authors,omitempty"`
	Since   *int64              `json:"since,omitempty"`
	Until   *int64              `json:"until,omitempty"`
	Limit   int                 `json:"limit,omitempty"`
	Search  string              `json:"search,omitempty"`
	Tags    map[string][]string `json:"-"` // e.g. Tags["#t"] = []string{"nostr"}
}

// MaxLimit is the relay-friendliness ceiling (spec.md §4.3, §6).
const MaxLimit = 100

// NormalizeLimit reduces Limit to MaxLimit if it exceeds it, and leaves a
// zero/negative Limit untouched (meaning "relay default").
func (f *Filter) NormalizeLimit() {
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}

// Clone returns a deep-enough copy safe for independent mutation (used when
// splitting a filter into cached/missing legs).
func (f *Filter) Clone() *Filter {
	c := *f
	c.IDs = append([]string(nil), f.IDs...)
	c.Kinds = append([]int(nil), f.Kinds...)
	c.Authors = append([]string(nil), f.Authors...)
	if f.Tags != nil {
		c.Tags = make(map[string][]string, len(f.Tags))
		for k, v := range f.Tags {
			c.Tags[k] = append([]string(nil), v...)
		}
	}
	return &c
}

// MarshalJSON flattens Tags into the bracketed-key form (`"#e": [...]`)
// alongside the struct's other fields, the on-wire shape a relay expects.
func (f *Filter) MarshalJSON() ([]byte, error) {
	type alias Filter
	base, err := json.Marshal((*alias)(f))
	if err != nil {
		return nil, err
	}
	if len(f.Tags) == 0 {
		return base, nil
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range f.Tags {
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = encoded
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reverses MarshalJSON: known fields populate their struct
// slots, and any remaining `#`-prefixed key becomes a Tags entry.
func (f *Filter) UnmarshalJSON(data []byte) error {
	type alias Filter
	if err := json.Unmarshal(data, (*alias)(f)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if len(k) == 0 || k[0] != '#' {
			continue
		}
		var vals []string
		if err := json.Unmarshal(v, &vals); err != nil {
			return err
		}
		if f.Tags == nil {
			f.Tags = make(map[string][]string)
		}
		f.Tags[k] = vals
	}
	return nil
}

// IsProfileMetadataFilter reports whether this filter targets kind-0 events,
// the cache-interception leg relevant to authors (spec.md §4.3).
func (f *Filter) IsProfileMetadataFilter() bool {
	for _, k := range f.Kinds {
		if k == KindProfileMetadata {
			return true
		}
	}
	return false
}
