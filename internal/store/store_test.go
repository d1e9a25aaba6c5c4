package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextRev(t *testing.T) {
	first := NextRev("")
	assert.True(t, strings.HasPrefix(first, "1-"), first)

	second := NextRev(first)
	assert.True(t, strings.HasPrefix(second, "2-"), second)
	assert.NotEqual(t, NextRev(first), second)
}

func TestSelectorMatches(t *testing.T) {
	yes, no := true, false
	doc := &Document{
		Type:       TypeTransaction,
		Checksum:   "abc",
		AccountID:  "acct-1",
		Date:       "2017-06-15",
		Amount:     "-10",
		CategoryID: "",
	}

	tests := []struct {
		name string
		sel  Selector
		want bool
	}{
		{"empty selector", Selector{}, true},
		{"type", Selector{Type: TypeTransaction}, true},
		{"other type", Selector{Type: TypeAccount}, false},
		{"checksum", Selector{Checksum: "abc"}, true},
		{"other checksum", Selector{Checksum: "abd"}, false},
		{"account", Selector{AccountID: "acct-2"}, false},
		{"amount", Selector{Amount: "-10"}, true},
		{"date in range", Selector{DateFrom: "2017-01-01", DateTo: "2017-12-31"}, true},
		{"date bounds inclusive", Selector{DateFrom: "2017-06-15", DateTo: "2017-06-15"}, true},
		{"date before range", Selector{DateFrom: "2017-06-16"}, false},
		{"date after range", Selector{DateTo: "2017-06-14"}, false},
		{"uncategorized", Selector{Categorized: &no}, true},
		{"categorized", Selector{Categorized: &yes}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.Matches(doc))
		})
	}
}

func TestDocumentClone(t *testing.T) {
	d := &Document{ID: "1", Body: []byte(`{"a":1}`)}
	c := d.Clone()
	c.Body[0] = 'x'
	assert.Equal(t, byte('{'), d.Body[0])
}
