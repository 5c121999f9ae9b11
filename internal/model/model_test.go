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
		{"Performance", &Performance{}, "performances"},
		{"Run", &Run{}, "runs"},
		{"Vessel", &Vessel{}, "vessels"},
		{"VesselState", &VesselState{}, "vessel_states"},
		{"RunEvent", &RunEvent{}, "run_events"},
		{"PathPlan", &PathPlan{}, "path_plans"},
		{"RaidResult", &RaidResult{}, "raid_results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_AllNamed(t *testing.T) {
	assert.Len(t, DatabaseModels, 7)
	for _, m := range DatabaseModels {
		_, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "%T has no table name", m)
	}
}
