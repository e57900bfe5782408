package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() *ChannelDescriptor {
	return &ChannelDescriptor{
		ControllerName: "awg-1",
		Config:         IQConfig{SampleRate: 2.0e9},
		Waveforms: []Waveform{
			Constant{NSamples: 8, Amplitude: 0.5},
			Gaussian{NSamples: 16, Sigma: 4, Center: 8},
		},
		Instructions: []Instruction{
			Wait{DurationSamples: 8},
			IQPulse{DurationSamples: 16, WaveformI: 1, WaveformQ: 0, ScaleI: 1, ScaleQ: 1},
			VirtualRZ{PhaseIncrement: 0.25},
		},
	}
}

func TestResolveInstructionInRange(t *testing.T) {
	d := testDescriptor()

	in, ok := d.Instruction(1)
	require.True(t, ok)
	assert.Equal(t, "IQPulse", InstructionKind(in))
	assert.Equal(t, int64(16), in.Duration())
}

func TestResolveOutOfRange(t *testing.T) {
	d := testDescriptor()

	_, ok := d.Instruction(3)
	assert.False(t, ok, "index past table end must not resolve")

	_, ok = d.Instruction(-1)
	assert.False(t, ok, "negative index must not resolve")

	_, ok = d.Waveform(2)
	assert.False(t, ok)

	_, ok = d.Acquisition(0)
	assert.False(t, ok, "empty acquisition table resolves nothing")
}

func TestScheduleSegmentDuration(t *testing.T) {
	d := testDescriptor()
	sched := Schedule{Segments: map[string][]InstructionRef{
		"drive": {0, 1, 2},
	}}

	dur, ok := sched.SegmentDuration("drive", d)
	require.True(t, ok)
	assert.Equal(t, int64(24), dur, "8 + 16 + 0 samples")
}

func TestScheduleSegmentDurationDanglingRef(t *testing.T) {
	d := testDescriptor()
	sched := Schedule{Segments: map[string][]InstructionRef{
		"drive": {0, 9},
	}}

	_, ok := sched.SegmentDuration("drive", d)
	assert.False(t, ok)
}

func TestScheduleDurationIsBarrierMax(t *testing.T) {
	long := &ChannelDescriptor{
		ControllerName: "awg-1",
		Config:         RealConfig{SampleRate: 1e9},
		Instructions:   []Instruction{Wait{DurationSamples: 100}},
	}
	short := &ChannelDescriptor{
		ControllerName: "awg-2",
		Config:         RealConfig{SampleRate: 1e9},
		Instructions:   []Instruction{Wait{DurationSamples: 60}},
	}
	p := &Playlist{
		Channels: map[string]*ChannelDescriptor{"a": long, "b": short},
		Schedules: []Schedule{
			{Segments: map[string][]InstructionRef{"a": {0}, "b": {0}}},
		},
	}

	dur, ok := p.ScheduleDuration(0)
	require.True(t, ok)
	assert.Equal(t, int64(100), dur, "barrier is the max over channels")
}

func TestChannelNamesSorted(t *testing.T) {
	p := &Playlist{Channels: map[string]*ChannelDescriptor{
		"readout.q1": nil, "drive.q0": nil, "flux.q2": nil,
	}}

	assert.Equal(t, []string{"drive.q0", "flux.q2", "readout.q1"}, p.ChannelNames())
}

func TestBuilderAddChannelIdempotent(t *testing.T) {
	b := NewBuilder()
	d := testDescriptor()

	name, err := b.AddChannel("drive.q0", d)
	require.NoError(t, err)
	assert.Equal(t, "drive.q0", name)

	// Same descriptor again is a no-op.
	name, err = b.AddChannel("drive.q0", testDescriptor())
	require.NoError(t, err)
	assert.Equal(t, "drive.q0", name)

	assert.Equal(t, []string{"drive.q0"}, b.ChannelNames())
}

func TestBuilderAddChannelConflict(t *testing.T) {
	b := NewBuilder()

	_, err := b.AddChannel("drive.q0", testDescriptor())
	require.NoError(t, err)

	other := testDescriptor()
	other.ControllerName = "awg-9"
	_, err = b.AddChannel("drive.q0", other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different descriptor")
}

func TestBuilderNormalizesNames(t *testing.T) {
	// "e" + combining acute (NFD) must collapse to the precomposed form.
	decomposed := "drive.qé"
	precomposed := "drive.qé"

	b := NewBuilder()
	name, err := b.AddChannel(decomposed, testDescriptor())
	require.NoError(t, err)
	assert.Equal(t, precomposed, name)

	// The same channel under the precomposed spelling is the same channel.
	_, err = b.AddChannel(precomposed, testDescriptor())
	require.NoError(t, err)
	assert.Len(t, b.ChannelNames(), 1)
}

func TestBuilderNormalizesLabels(t *testing.T) {
	weights := IQPulse{DurationSamples: 4, WaveformI: 0, WaveformQ: 0, ScaleI: 1, ScaleQ: 1}
	d := &ChannelDescriptor{
		ControllerName: "digi-1",
		Config:         ReadoutConfig{SampleRate: 1e9},
		Waveforms:      []Waveform{Constant{NSamples: 4, Amplitude: 1}},
		Instructions: []Instruction{
			ConditionalInstruction{DurationSamples: 4, Condition: "qé", IfTrue: 0, IfFalse: 0},
		},
		Acquisitions: []Acquisition{
			{Label: "mé", Method: ThresholdStateDiscrimination{
				Weights: weights, Threshold: 0.1, FeedbackSignalLabel: "qé",
			}},
		},
	}

	b := NewBuilder()
	_, err := b.AddChannel("readout", d)
	require.NoError(t, err)
	p := b.Build()

	got := p.Channels["readout"]
	assert.Equal(t, "mé", got.Acquisitions[0].Label)
	tsd := got.Acquisitions[0].Method.(ThresholdStateDiscrimination)
	assert.Equal(t, "qé", tsd.FeedbackSignalLabel)
	cond := got.Instructions[0].(ConditionalInstruction)
	assert.Equal(t, "qé", cond.Condition)
}

func TestBuilderBuildIsIndependent(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddChannel("drive", testDescriptor())
	require.NoError(t, err)
	b.AddSchedule(map[string][]InstructionRef{"drive": {0}})

	first := b.Build()
	b.AddSchedule(map[string][]InstructionRef{"drive": {1}})
	second := b.Build()

	assert.Len(t, first.Schedules, 1)
	assert.Len(t, second.Schedules, 2)
}

func TestFingerprintDeterministic(t *testing.T) {
	data := []byte{0x50, 0x44, 0x4b, 0x31, 0x00, 0x01}

	fp1 := Fingerprint(data)
	fp2 := Fingerprint(data)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
	assert.NotEqual(t, fp1, Fingerprint(append(data, 0x00)), "different bytes, different digest")
}

func TestKindNames(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{Wait{}, "Wait"},
		{RealPulse{}, "RealPulse"},
		{IQPulse{}, "IQPulse"},
		{VirtualRZ{}, "VirtualRZ"},
		{MultiplexedRealPulse{}, "MultiplexedRealPulse"},
		{MultiplexedIQPulse{}, "MultiplexedIQPulse"},
		{ConditionalInstruction{}, "ConditionalInstruction"},
		{ReadoutTrigger{}, "ReadoutTrigger"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InstructionKind(tt.in))
	}

	assert.Equal(t, "Gaussian", WaveformKind(Gaussian{}))
	assert.Equal(t, "TimeTrace", MethodKind(TimeTrace{}))
	assert.Equal(t, "Readout", ConfigKind(ReadoutConfig{}))
}

func TestSummary(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddChannel("drive.q0", testDescriptor())
	require.NoError(t, err)
	b.AddSchedule(map[string][]InstructionRef{"drive.q0": {0, 1}})
	p := b.Build()

	s := p.Summary()
	assert.Contains(t, s, "Playlist with 1 channel(s) and 1 schedule(s)")
	assert.Contains(t, s, `channel "drive.q0": controller awg-1, IQ @ 2e+09 S/s`)
	assert.Contains(t, s, "schedule 0: 1 channel(s), 24 sample(s)")
}
