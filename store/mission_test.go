package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissionStatusValidate(t *testing.T) {
	tests := []struct {
		status  MissionStatus
		wantErr bool
	}{
		{MissionInitializing, false},
		{MissionCompleted, false},
		{MissionDemoMode, false},
		{MissionFailed, false},
		{MissionStatus(""), true},
		{MissionStatus("Running"), true},
		{MissionStatus("completed"), true},
	}
	for _, tt := range tests {
		err := tt.status.Validate()
		if tt.wantErr {
			assert.Error(t, err, "status %q", tt.status)
		} else {
			assert.NoError(t, err, "status %q", tt.status)
		}
	}
}

func TestMissionStatusIsTerminal(t *testing.T) {
	assert.False(t, MissionInitializing.IsTerminal())
	assert.True(t, MissionCompleted.IsTerminal())
	assert.True(t, MissionDemoMode.IsTerminal())
	assert.True(t, MissionFailed.IsTerminal())
}

func TestFinishMissionValidate(t *testing.T) {
	vector := []float32{0.1, 0.2, 0.3}

	tests := []struct {
		name    string
		finish  FinishMission
		wantErr string
	}{
		{
			name:   "completed with report and embedding",
			finish: FinishMission{ID: 1, Status: MissionCompleted, Report: "report", Embedding: vector},
		},
		{
			name:   "demo mode with report and embedding",
			finish: FinishMission{ID: 1, Status: MissionDemoMode, Report: "sample", Embedding: vector},
		},
		{
			name:   "failed with report only",
			finish: FinishMission{ID: 1, Status: MissionFailed, Report: "gave up"},
		},
		{
			name:    "non-terminal status",
			finish:  FinishMission{ID: 1, Status: MissionInitializing, Report: "report"},
			wantErr: "terminal status",
		},
		{
			name:    "unknown status",
			finish:  FinishMission{ID: 1, Status: "Done", Report: "report"},
			wantErr: "invalid mission status",
		},
		{
			name:    "missing report",
			finish:  FinishMission{ID: 1, Status: MissionCompleted, Embedding: vector},
			wantErr: "requires a report",
		},
		{
			name:    "failed with embedding",
			finish:  FinishMission{ID: 1, Status: MissionFailed, Report: "gave up", Embedding: vector},
			wantErr: "must not carry an embedding",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.finish.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMissionSearchOptionsValidate(t *testing.T) {
	vector := []float32{0.1, 0.2}

	t.Run("defaults", func(t *testing.T) {
		opts := &MissionSearchOptions{CreatorID: 1, Search: "quantum", Vector: vector}
		require.NoError(t, opts.Validate())
		assert.Equal(t, 0.5, opts.Threshold)
		assert.Equal(t, 5, opts.Limit)
		assert.Equal(t, 0, opts.Offset)
	})

	t.Run("explicit values kept", func(t *testing.T) {
		opts := &MissionSearchOptions{CreatorID: 1, Search: "quantum", Vector: vector, Threshold: 0.3, Limit: 20, Offset: 40}
		require.NoError(t, opts.Validate())
		assert.Equal(t, 0.3, opts.Threshold)
		assert.Equal(t, 20, opts.Limit)
		assert.Equal(t, 40, opts.Offset)
	})

	tests := []struct {
		name string
		opts MissionSearchOptions
	}{
		{"missing creator", MissionSearchOptions{Search: "q", Vector: vector}},
		{"blank search", MissionSearchOptions{CreatorID: 1, Search: "   ", Vector: vector}},
		{"empty vector", MissionSearchOptions{CreatorID: 1, Search: "q"}},
		{"negative limit", MissionSearchOptions{CreatorID: 1, Search: "q", Vector: vector, Limit: -1}},
		{"limit too large", MissionSearchOptions{CreatorID: 1, Search: "q", Vector: vector, Limit: 1001}},
		{"negative offset", MissionSearchOptions{CreatorID: 1, Search: "q", Vector: vector, Offset: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.opts.Validate())
		})
	}
}
