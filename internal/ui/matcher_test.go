package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind_FragmentPriorityOverPosition(t *testing.T) {
	elements := []Element{
		{Handle: "a", Kind: KindNumber, Placeholder: "Number of requests"},
		{Handle: "b", Kind: KindNumber, Placeholder: "Memory (MB)"},
		{Handle: "c", Kind: KindNumber, Placeholder: "記憶體"},
	}

	got, ok := Find(elements, Descriptor{Kind: KindNumber, Fragments: []string{"記憶體", "Memory"}})
	require.True(t, ok)
	assert.Equal(t, Handle("c"), got.Handle)

	got, ok = Find(elements, Descriptor{Kind: KindNumber, Fragments: []string{"Memory", "記憶體"}})
	require.True(t, ok)
	assert.Equal(t, Handle("b"), got.Handle)
}

func TestFind_DocumentOrderWithinFragment(t *testing.T) {
	elements := []Element{
		{Handle: "first", Kind: KindButton, Text: "Configure Amazon S3"},
		{Handle: "second", Kind: KindButton, Text: "Configure"},
	}
	got, ok := Find(elements, Descriptor{Kind: KindButton, Fragments: []string{"Configure"}})
	require.True(t, ok)
	assert.Equal(t, Handle("first"), got.Handle)
}

func TestFind_Filters(t *testing.T) {
	elements := []Element{
		{Handle: "in", Kind: KindInput, Placeholder: "storage"},
		{Handle: "card-win", Kind: KindCard, Text: "Amazon EC2 Windows Server"},
		{Handle: "card", Kind: KindCard, Text: "Amazon EC2"},
		{Handle: "btn-win", Kind: KindButton, Text: "Configure", Container: "card-win"},
		{Handle: "btn", Kind: KindButton, Text: "Configure", Container: "card"},
		{Handle: "num", Kind: KindNumber, ID: "storage-size"},
		{Handle: "qty", Kind: KindNumber, Value: "1"},
		{Handle: "qty10", Kind: KindNumber, Value: "10"},
	}
	tests := []struct {
		name string
		d    Descriptor
		want Handle
		ok   bool
	}{
		{"kind filter", Descriptor{Kind: KindNumber, Fragments: []string{"storage"}}, "", false},
		{"id source", Descriptor{Kind: KindNumber, Fragments: []string{"storage"}, Sources: []Source{SourceID}}, "num", true},
		{"exclusion", Descriptor{Kind: KindCard, Fragments: []string{"Amazon EC2"}, Exclude: []string{"Windows Server"}}, "card", true},
		{"container", Descriptor{Kind: KindButton, Fragments: []string{"Configure"}, Within: "card"}, "btn", true},
		{"exact value", Descriptor{Kind: KindNumber, Fragments: []string{"1"}, Sources: []Source{SourceValue}, Exact: true}, "qty", true},
		{"contains value", Descriptor{Kind: KindNumber, Fragments: []string{"10"}, Sources: []Source{SourceValue}}, "qty10", true},
		{"any of kind", Descriptor{Kind: KindCard}, "card-win", true},
		{"no match", Descriptor{Fragments: []string{"Glacier"}}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Find(elements, tt.d)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.Handle)
		})
	}
}

func TestFind_EmptyFragmentNeverMatches(t *testing.T) {
	_, ok := Find([]Element{{Handle: "x", Text: "anything"}}, Descriptor{Fragments: []string{""}})
	assert.False(t, ok)
}

func TestStrategies_FirstMatchingDescriptorWins(t *testing.T) {
	elements := []Element{
		{Handle: "default", Kind: KindNumber, Value: "1"},
		{Handle: "labelled", Kind: KindNumber, Placeholder: "Enter quantity"},
	}
	strategies := Strategies{
		{Kind: KindNumber, Fragments: []string{"quantity", "數量"}},
		{Kind: KindNumber, Fragments: []string{"1"}, Sources: []Source{SourceValue}, Exact: true},
	}

	got, ok := strategies.Find(elements)
	require.True(t, ok)
	assert.Equal(t, Handle("labelled"), got.Handle)

	got, ok = strategies.Find(elements[:1])
	require.True(t, ok)
	assert.Equal(t, Handle("default"), got.Handle)

	_, ok = Strategies{}.Find(elements)
	assert.False(t, ok)
}

func TestFind_Deterministic(t *testing.T) {
	elements := []Element{
		{Handle: "s1", Kind: KindSelect, Text: "ap-northeast-1 東京"},
		{Handle: "s2", Kind: KindSelect, Text: "東京 only"},
	}
	d := Descriptor{Kind: KindSelect, Fragments: []string{"ap-northeast-1", "東京"}}
	first, _ := Find(elements, d)
	for i := 0; i < 10; i++ {
		again, _ := Find(elements, d)
		assert.Equal(t, first, again)
	}
}
