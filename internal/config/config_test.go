package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAdminIDs(t *testing.T) {
	tests := []struct {
		name   string
		single string
		list   string
		want   []int64
	}{
		{name: "single only", single: "111", want: []int64{111}},
		{name: "list only", list: "111,222,333", want: []int64{111, 222, 333}},
		{name: "list with spaces", list: " 111 , 222 ", want: []int64{111, 222}},
		{name: "single merged with list", single: "111", list: "222,333", want: []int64{111, 222, 333}},
		{name: "duplicates collapsed", single: "111", list: "111,222,222", want: []int64{111, 222}},
		{name: "non numeric entries skipped", list: "111,abc,222", want: []int64{111, 222}},
		{name: "empty entries skipped", list: "111,,222,", want: []int64{111, 222}},
		{name: "both empty", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAdminIDs(tt.single, tt.list))
		})
	}
}
