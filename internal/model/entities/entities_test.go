package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

func ptr(t time.Time) *time.Time { return &t }

func TestParseZone(t *testing.T) {
	cases := map[string]Zone{
		"Alta":  ZoneUpperHalf,
		"ALTA":  ZoneUpperHalf,
		"":      ZoneUpperHalf,
		"baixa": ZoneLowerHalf,
		"TOTAL": ZoneFull,
		"full":  ZoneFull,
	}
	for in, want := range cases {
		got, ok := ParseZone(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseZone("meia")
	assert.False(t, ok)
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"Pendente":     StatusPending,
		"Em Andamento": StatusInProgress,
		"EM_ANDAMENTO": StatusInProgress,
		"Interrompida": StatusInterrupted,
		"Concluída":    StatusCompleted,
		"CONCLUIDA":    StatusCompleted,
		"COMPLETED":    StatusCompleted,
	}
	for in, want := range cases {
		got, ok := ParseStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseStatus("cancelada")
	assert.False(t, ok)
}

func TestParseStageAndLabels(t *testing.T) {
	for _, s := range []Stage{StageStart, StageMiddle, StageEnd} {
		got, ok := ParseStage(s.Label())
		require.True(t, ok)
		assert.Equal(t, s, got)
	}
	got, ok := ParseStage("inicio")
	assert.True(t, ok)
	assert.Equal(t, StageStart, got)
	_, ok = ParseStage("quase")
	assert.False(t, ok)
}

func TestParseReason(t *testing.T) {
	r, ok := ParseReason("falha mecanica")
	assert.True(t, ok)
	assert.Equal(t, ReasonMechanical, r)
	_, ok = ParseReason("gafanhotos")
	assert.False(t, ok)
}

func TestNormalizeAngle(t *testing.T) {
	assert.Equal(t, 0, NormalizeAngle(360))
	assert.Equal(t, 359, NormalizeAngle(-1))
	assert.Equal(t, 90, NormalizeAngle(450))
	assert.Equal(t, 180, NormalizeAngle(180))
}

func TestLifecycle(t *testing.T) {
	o := ServiceOrder{ID: "os-1", Status: StatusPending, Zone: ZoneFull}

	o, err := Start(o, at(0))
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, o.Status)

	paused, err := Pause(o, at(10), "FALTA DE ENERGIA", "")
	require.NoError(t, err)
	assert.Equal(t, StatusInterrupted, paused.Status)
	assert.Empty(t, o.Interruptions, "input must not be mutated")
	assert.Equal(t, ReasonPowerOutage, paused.Interruptions[0].Reason)

	_, err = Pause(paused, at(11), ReasonOther, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Resume(paused, at(5), "ana")
	assert.ErrorIs(t, err, ErrInvalidInterval)

	resumed, err := Resume(paused, at(25), "ana")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, resumed.Status)
	require.NotNil(t, resumed.Interruptions[0].ResumedAt)
	assert.Equal(t, at(25), *resumed.Interruptions[0].ResumedAt)
	assert.True(t, paused.Interruptions[0].Open(), "resume must copy the record")

	done, err := Complete(resumed, at(60))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.NoError(t, done.Validate())

	_, err = Complete(done, at(61))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidate(t *testing.T) {
	o := ServiceOrder{
		Status:       StatusInterrupted,
		Zone:         ZoneUpperHalf,
		CurrentAngle: 400,
		Interruptions: []InterruptionRecord{
			{StoppedAt: at(10)},
			{StoppedAt: at(30), ResumedAt: ptr(at(20))},
		},
	}
	err := o.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingStart)
	assert.ErrorIs(t, err, ErrAngleOutOfRange)
	assert.ErrorIs(t, err, ErrOpenInterruption)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	ok := ServiceOrder{Status: StatusPending, Zone: ZoneLowerHalf, CurrentAngle: 200}
	assert.NoError(t, ok.Validate())
}

func TestOpenInterruption(t *testing.T) {
	o := ServiceOrder{Interruptions: []InterruptionRecord{
		{StoppedAt: at(1), ResumedAt: ptr(at(2))},
		{StoppedAt: at(3)},
	}}
	rec, open := o.OpenInterruption()
	assert.True(t, open)
	assert.Equal(t, at(3), rec.StoppedAt)

	o.Interruptions = o.Interruptions[:1]
	_, open = o.OpenInterruption()
	assert.False(t, open)
}
