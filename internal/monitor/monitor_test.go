package monitor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatchsim/engine/internal/config"
	"github.com/dispatchsim/engine/internal/model"
	"github.com/dispatchsim/engine/internal/store/memory"
)

type instrumentedBackend struct {
	*memory.Backend
}

func (instrumentedBackend) QueueLength() int                { return 7 }
func (instrumentedBackend) GetLastWriteDurationMs() float32 { return 12.5 }

func TestRecordTick_EnrichesWithPersistenceMetrics(t *testing.T) {
	s := NewService(Dependencies{
		Backend: instrumentedBackend{memory.New(config.MemoryConfig{})},
	})

	s.RecordTick(model.SimPerformance{
		Time:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		TickDurationMs: 1.5,
		MovingUnits:    3,
		TrackedUnits:   9,
	})

	st := s.ProgramStatus()
	assert.Equal(t, float32(1.5), st.TickDurationMs)
	assert.Equal(t, uint16(3), st.MovingUnits)
	assert.Equal(t, uint16(7), st.PersistQueueLength)
	assert.Equal(t, float32(12.5), st.LastWriteDurationMs)
	assert.False(t, st.Running)
}

func TestRecordTick_PlainBackend(t *testing.T) {
	s := NewService(Dependencies{Backend: memory.New(config.MemoryConfig{})})

	s.RecordTick(model.SimPerformance{TrackedUnits: 2})

	st := s.ProgramStatus()
	assert.Equal(t, uint16(2), st.TrackedUnits)
	assert.Zero(t, st.PersistQueueLength)
}

func TestProgramStatusJSON(t *testing.T) {
	s := NewService(Dependencies{Backend: memory.New(config.MemoryConfig{})})
	s.RecordTick(model.SimPerformance{MovingUnits: 1})

	var st Status
	require.NoError(t, json.Unmarshal([]byte(s.ProgramStatusJSON()), &st))
	assert.Equal(t, uint16(1), st.MovingUnits)
}
