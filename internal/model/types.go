package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Phase is one of the three mutually exclusive content-engagement states.
// The enumeration is closed; out-of-range values only ever arrive from
// external input and every lookup falls back to the Latent defaults.
type Phase int

const (
	PhaseLatent Phase = iota
	PhaseViral
	PhaseDecaying
)

// PhaseCount is the size of the phase enumeration.
const PhaseCount = 3

var phaseNames = [PhaseCount]string{"Latent", "Viral", "Decaying"}

var phaseColors = [PhaseCount]string{"#808080", "#FF6B2B", "#2C3E50"}

func (p Phase) Valid() bool {
	return p >= 0 && p < PhaseCount
}

// String returns the display name, falling back to the Latent name for
// out-of-range values so render paths never fail.
func (p Phase) String() string {
	if !p.Valid() {
		return phaseNames[PhaseLatent]
	}
	return phaseNames[p]
}

// Color returns the display color as a hex string, falling back to gray
// for out-of-range values.
func (p Phase) Color() string {
	if !p.Valid() {
		return phaseColors[PhaseLatent]
	}
	return phaseColors[p]
}

// StepSnapshot is the per-step result record returned by the engine.
type StepSnapshot struct {
	TimeIndex        int     `json:"time_index"`
	Phase            Phase   `json:"phase"`
	PhaseName        string  `json:"phase_name"`
	Events           int     `json:"events"`
	CumulativeEvents int     `json:"cumulative_events"`
	EffectiveRate    float64 `json:"effective_rate"`
	Multiplier       float64 `json:"multiplier"`
}

// RunMetrics aggregates a whole run. A run with zero steps reports the
// zero value with CurrentPhaseName set to the current phase's display name.
type RunMetrics struct {
	TotalEvents       int     `json:"total_events"`
	MeanEventsPerStep float64 `json:"mean_events_per_step"`
	MaxEventsPerStep  int     `json:"max_events_per_step"`
	StepsInViralPhase int     `json:"steps_in_viral_phase"`
	CurrentPhaseName  string  `json:"current_phase_name"`
}

// PhaseBreakdown holds one indicator sequence per phase, aligned to the
// time-index history. Entry i is 1 when the phase history at i matches.
type PhaseBreakdown struct {
	Latent   []int `json:"latent"`
	Viral    []int `json:"viral"`
	Decaying []int `json:"decaying"`
}

// NodePosition is a fixed 2-D layout coordinate for one graph node.
type NodePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphSnapshot is the renderable view of the population graph.
type GraphSnapshot struct {
	VersionedRecord
	Nodes  int            `json:"nodes"`
	Edges  [][2]int       `json:"edges"`
	Layout []NodePosition `json:"layout"`
	Phases []Phase        `json:"phases"`
	Colors []string       `json:"colors"`
}

// RunRecord is the persisted configuration and outcome of one run.
type RunRecord struct {
	VersionedRecord
	RunID                 string      `json:"run_id"`
	CreatedAtUTC          string      `json:"created_at_utc"`
	Seed                  int64       `json:"seed"`
	LayoutSeed            int64       `json:"layout_seed"`
	BaseRate              float64     `json:"base_rate"`
	Steps                 int         `json:"steps"`
	Nodes                 int         `json:"nodes"`
	ConnectionProbability float64     `json:"connection_probability"`
	Matrix                [][]float64 `json:"matrix"`
	Metrics               RunMetrics  `json:"metrics"`
}

// RunSeries holds the four parallel per-step histories of one run. Times
// and Phases carry the initial entry and are one longer than Events and
// Cumulative.
type RunSeries struct {
	VersionedRecord
	Times      []int   `json:"times"`
	Events     []int   `json:"events"`
	Phases     []Phase `json:"phases"`
	Cumulative []int   `json:"cumulative"`
}
