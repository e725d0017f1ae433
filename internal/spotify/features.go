package spotify

import "sort"

// TimeInterval is a bar/beat/tatum entry in an AudioAnalysis; unused by
// the feature reducer but kept for wire-format fidelity.
type TimeInterval struct {
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// Section is one segment-grouping interval of an audio analysis, keyed
// by its detected musical key (0-11).
type Section struct {
	Start             float64 `json:"start"`
	Duration          float64 `json:"duration"`
	Confidence        float64 `json:"confidence"`
	Loudness          float64 `json:"loudness"`
	Tempo             float64 `json:"tempo"`
	TempoConfidence   float64 `json:"tempo_confidence"`
	Key               int     `json:"key"`
	KeyConfidence     float64 `json:"key_confidence"`
	Mode              int     `json:"mode"`
	ModeConfidence    float64 `json:"mode_confidence"`
	TimeSignature     int     `json:"time_signature"`
	TimeSigConfidence float64 `json:"time_signature_confidence"`
}

// Segment is one pitch/timbre sample of an audio analysis.
type Segment struct {
	Start           float64   `json:"start"`
	Duration        float64   `json:"duration"`
	Confidence      float64   `json:"confidence"`
	LoudnessStart   float64   `json:"loudness_start"`
	LoudnessMax     float64   `json:"loudness_max"`
	LoudnessMaxTime float64   `json:"loudness_max_time"`
	LoudnessEnd     float64   `json:"loudness_end"`
	Pitches         []float64 `json:"pitches"`
	Timbre          []float64 `json:"timbre"`
}

// AudioAnalysis is the /v1/audio-analysis/{id} response, trimmed to the
// fields the feature reducer consumes.
type AudioAnalysis struct {
	Bars     []TimeInterval `json:"bars"`
	Beats    []TimeInterval `json:"beats"`
	Sections []Section      `json:"sections"`
	Segments []Segment      `json:"segments"`
	Tatums   []TimeInterval `json:"tatums"`
}

// AudioFeatures is the /v1/audio-features/{id} response.
type AudioFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	AnalysisURL      string  `json:"analysis_url"`
	Danceability     float64 `json:"danceability"`
	DurationMs       int     `json:"duration_ms"`
	Energy           float64 `json:"energy"`
	ID               string  `json:"id"`
	Instrumentalness float64 `json:"instrumentalness"`
	Key              int     `json:"key"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	TimeSignature    int     `json:"time_signature"`
	TrackHref        string  `json:"track_href"`
	URI              string  `json:"uri"`
	Valence          float64 `json:"valence"`
	ObjectType       string  `json:"type"`
}

// FeaturesCsv is the fixed 112-column feature row: the track id, 13
// scalar audio features, the section and segment counts, plus 4
// statistics (median, mean, stdev, range) across 12 key-adjusted-pitch
// dimensions and 12 timbre dimensions (96 columns).
type FeaturesCsv struct {
	TrackID          string  `csv:"track_id"`
	DurationMs       int     `csv:"duration_ms"`
	Key              int     `csv:"key"`
	Mode             int     `csv:"mode"`
	TimeSignature    int     `csv:"time_signature"`
	Acousticness     float64 `csv:"acousticness"`
	Danceability     float64 `csv:"danceability"`
	Energy           float64 `csv:"energy"`
	Instrumentalness float64 `csv:"instrumentalness"`
	Liveness         float64 `csv:"liveness"`
	Loudness         float64 `csv:"loudness"`
	Speechiness      float64 `csv:"speechiness"`
	Valence          float64 `csv:"valence"`
	Tempo            float64 `csv:"tempo"`
	NumSections      int     `csv:"num_sections"`
	NumSegments      int     `csv:"num_segments"`

	MedianAdjPitch [12]float64 `csv:"median_adj_pitch"`
	MedianTimbre   [12]float64 `csv:"median_timbre"`
	MeanAdjPitch   [12]float64 `csv:"mean_adj_pitch"`
	MeanTimbre     [12]float64 `csv:"mean_timbre"`
	// StdevAdjPitch/StdevTimbre are biased variance (Σ(x-mean)²/n), not
	// the square-rooted standard deviation the field name implies. Kept
	// verbatim rather than "fixed" since downstream consumers depend on
	// the existing values.
	StdevAdjPitch [12]float64 `csv:"stdev_adj_pitch"`
	StdevTimbre   [12]float64 `csv:"stdev_timbre"`
	RangeAdjPitch [12]float64 `csv:"range_adj_pitch"`
	RangeTimbre   [12]float64 `csv:"range_timbre"`
}

// sectionKey returns the key (0-11) of the section with maximum overlap
// with the segment's [start, start+duration) interval; first section
// wins ties, so a segment that overlaps no section takes the first
// section's key. With no sections at all the key is 0.
func sectionKey(seg Segment, sections []Section) int {
	segStart := seg.Start
	segEnd := seg.Start + seg.Duration

	bestOverlap := 0.0
	bestKey := 0
	haveBest := false
	for _, sec := range sections {
		secStart := sec.Start
		secEnd := sec.Start + sec.Duration
		overlap := min(segEnd, secEnd) - max(segStart, secStart)
		if overlap < 0 {
			overlap = 0
		}
		if !haveBest || overlap > bestOverlap {
			bestOverlap = overlap
			bestKey = sec.Key
			haveBest = true
		}
	}
	return bestKey
}

// rotateLeft12 rotates a 12-element pitch vector left by n positions so
// each segment's pitch class vector is re-keyed to its section's tonic.
func rotateLeft12(pitches []float64, n int) [12]float64 {
	var out [12]float64
	if len(pitches) == 0 {
		return out
	}
	n = ((n % 12) + 12) % 12
	for i := 0; i < 12; i++ {
		src := (i + n) % len(pitches)
		if src < len(pitches) {
			out[i] = pitches[src]
		}
	}
	return out
}

// dozenStats collects the 12 dimension-wise value slices (sorted
// ascending) and derives the four statistics per dimension.
type dozenStats struct {
	median [12]float64
	mean   [12]float64
	stdev  [12]float64
	rng    [12]float64
}

func computeDozenStats(dimValues [12][]float64) dozenStats {
	var s dozenStats
	for d := 0; d < 12; d++ {
		vals := append([]float64(nil), dimValues[d]...)
		sort.Float64s(vals)
		s.median[d] = medianSorted(vals)
		s.mean[d] = meanSorted(vals)
		s.stdev[d] = stdevSorted(vals)
		s.rng[d] = rangeSorted(vals)
	}
	return s
}

func medianSorted(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)/2]
}

func meanSorted(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// stdevSorted is biased variance, not standard deviation — see the
// doc comment on FeaturesCsv.StdevAdjPitch.
func stdevSorted(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	mean := meanSorted(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(vals))
}

func rangeSorted(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1] - vals[0]
}

// ExtractFeaturesCsv reduces (AudioAnalysis, AudioFeatures) to the fixed
// FeaturesCsv row: deterministic, side-effect free.
func ExtractFeaturesCsv(analysis AudioAnalysis, features AudioFeatures) FeaturesCsv {
	var adjPitchDims, timbreDims [12][]float64

	for _, seg := range analysis.Segments {
		key := sectionKey(seg, analysis.Sections)
		adjPitches := rotateLeft12(seg.Pitches, key)
		for d := 0; d < 12; d++ {
			adjPitchDims[d] = append(adjPitchDims[d], adjPitches[d])
			var t float64
			if d < len(seg.Timbre) {
				t = seg.Timbre[d]
			}
			timbreDims[d] = append(timbreDims[d], t)
		}
	}

	pitchStats := computeDozenStats(adjPitchDims)
	timbreStats := computeDozenStats(timbreDims)

	return FeaturesCsv{
		TrackID:          features.ID,
		DurationMs:       features.DurationMs,
		Key:              features.Key,
		Mode:             features.Mode,
		TimeSignature:    features.TimeSignature,
		Acousticness:     features.Acousticness,
		Danceability:     features.Danceability,
		Energy:           features.Energy,
		Instrumentalness: features.Instrumentalness,
		Liveness:         features.Liveness,
		Loudness:         features.Loudness,
		Speechiness:      features.Speechiness,
		Valence:          features.Valence,
		Tempo:            features.Tempo,
		NumSections:      len(analysis.Sections),
		NumSegments:      len(analysis.Segments),

		MedianAdjPitch: pitchStats.median,
		MedianTimbre:   timbreStats.median,
		MeanAdjPitch:   pitchStats.mean,
		MeanTimbre:     timbreStats.mean,
		StdevAdjPitch:  pitchStats.stdev,
		StdevTimbre:    timbreStats.stdev,
		RangeAdjPitch:  pitchStats.rng,
		RangeTimbre:    timbreStats.rng,
	}
}
