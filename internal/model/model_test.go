package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Run", &Run{}, "runs"},
		{"Vehicle", &Vehicle{}, "vehicles"},
		{"TollPass", &TollPass{}, "toll_passes"},
		{"Boarding", &Boarding{}, "boardings"},
		{"Skip", &Skip{}, "skips"},
		{"Voyage", &Voyage{}, "voyages"},
		{"Completion", &Completion{}, "completions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModelsCoversEveryTable(t *testing.T) {
	assert.Len(t, DatabaseModels, 7)
	for _, m := range DatabaseModels {
		_, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "%T has no TableName", m)
	}
}
