package nostrwire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit_CapsAtMaxLimit(t *testing.T) {
	f := &Filter{Limit: 500}
	f.NormalizeLimit()
	require.Equal(t, MaxLimit, f.Limit)

	f2 := &Filter{Limit: 0}
	f2.NormalizeLimit()
	require.Equal(t, 0, f2.Limit)
}

func TestClone_DeepCopiesSlicesAndTags(t *testing.T) {
	f := &Filter{
		Kinds: []int{KindShortVideo},
		Tags:  map[string][]string{"#d": {"vid-1"}},
	}
	c := f.Clone()
	c.Kinds[0] = KindNote
	c.Tags["#d"][0] = "mutated"

	require.Equal(t, KindShortVideo, f.Kinds[0])
	require.Equal(t, "vid-1", f.Tags["#d"][0])
}

func TestIsProfileMetadataFilter(t *testing.T) {
	require.True(t, (&Filter{Kinds: []int{KindProfileMetadata}}).IsProfileMetadataFilter())
	require.False(t, (&Filter{Kinds: []int{KindNote}}).IsProfileMetadataFilter())
}

func TestFilterJSONRoundTrip_MergesBracketedTagSelectors(t *testing.T) {
	f := &Filter{
		Kinds: []int{KindShortVideo},
		Limit: 20,
		Tags:  map[string][]string{"#d": {"vid-1"}, "#t": {"bitcoin"}},
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	require.Contains(t, string(data), `"#d":["vid-1"]`)
	require.Contains(t, string(data), `"#t":["bitcoin"]`)

	var got Filter
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, []int{KindShortVideo}, got.Kinds)
	require.Equal(t, 20, got.Limit)
	require.Equal(t, []string{"vid-1"}, got.Tags["#d"])
	require.Equal(t, []string{"bitcoin"}, got.Tags["#t"])
}
