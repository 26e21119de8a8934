package core

// TaintInfo records one tainted value: where it came from, where (if
// anywhere) it reached a sink, and a confidence score for the propagation.
// No code in this module fills one in; analysis/taint's engine reports
// boolean source-to-sink flows (taint.Flow) instead.
type TaintInfo struct {
	SourceLine      uint32
	SourceVar       string
	SinkLine        uint32
	SinkVar         string
	SinkCall        string
	PropagationPath []string
	Confidence      float64
	Sanitized       bool
}

const (
	highConfidenceThreshold   = 0.8
	mediumConfidenceThreshold = 0.5
)

// IsTainted reports whether this info represents a live taint: some
// nonzero confidence and not sanitized away.
func (t *TaintInfo) IsTainted() bool {
	return !t.Sanitized && t.Confidence > 0
}

func (t *TaintInfo) IsHighConfidence() bool {
	return t.Confidence >= highConfidenceThreshold
}

func (t *TaintInfo) IsMediumConfidence() bool {
	return t.Confidence >= mediumConfidenceThreshold && t.Confidence < highConfidenceThreshold
}

func (t *TaintInfo) IsLowConfidence() bool {
	return t.Confidence > 0 && t.Confidence < mediumConfidenceThreshold
}

// TaintSummary is the shape of a per-function taint result, as held in
// CallGraph.Summaries: which locals ended up tainted, which parameters were
// tainted on entry, whether the return value is tainted, and every
// source-to-sink detection found along the way. Nothing in this module
// produces one.
type TaintSummary struct {
	FunctionFQN     string
	TaintedVars     map[string][]*TaintInfo
	TaintedParams   []string
	TaintedReturn   bool
	ReturnTaintInfo *TaintInfo
	Detections      []*TaintInfo
	AnalysisError   bool
	ErrorMessage    string
}

// NewTaintSummary creates an empty summary for functionFQN.
func NewTaintSummary(functionFQN string) *TaintSummary {
	return &TaintSummary{
		FunctionFQN:   functionFQN,
		TaintedVars:   make(map[string][]*TaintInfo),
		TaintedParams: []string{},
		Detections:    []*TaintInfo{},
	}
}

// AddTaintedVar records one more taint path reaching variable. No-op for an
// empty variable name or nil info.
func (s *TaintSummary) AddTaintedVar(variable string, info *TaintInfo) {
	if variable == "" || info == nil {
		return
	}
	s.TaintedVars[variable] = append(s.TaintedVars[variable], info)
}

// GetTaintInfo returns every taint path recorded for variable, or nil.
func (s *TaintSummary) GetTaintInfo(variable string) []*TaintInfo {
	return s.TaintedVars[variable]
}

// IsTainted reports whether any recorded path for variable is still live
// (unsanitized).
func (s *TaintSummary) IsTainted(variable string) bool {
	for _, info := range s.TaintedVars[variable] {
		if info.IsTainted() {
			return true
		}
	}
	return false
}

// AddDetection records a source-reached-sink finding. No-op for nil.
func (s *TaintSummary) AddDetection(detection *TaintInfo) {
	if detection == nil {
		return
	}
	s.Detections = append(s.Detections, detection)
}

func (s *TaintSummary) HasDetections() bool { return len(s.Detections) > 0 }

func (s *TaintSummary) GetHighConfidenceDetections() []*TaintInfo {
	return filterDetections(s.Detections, (*TaintInfo).IsHighConfidence)
}

func (s *TaintSummary) GetMediumConfidenceDetections() []*TaintInfo {
	return filterDetections(s.Detections, (*TaintInfo).IsMediumConfidence)
}

func (s *TaintSummary) GetLowConfidenceDetections() []*TaintInfo {
	return filterDetections(s.Detections, (*TaintInfo).IsLowConfidence)
}

func filterDetections(detections []*TaintInfo, keep func(*TaintInfo) bool) []*TaintInfo {
	var out []*TaintInfo
	for _, d := range detections {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// MarkTaintedParam records that a parameter was tainted on function entry
// (by the call graph, from a tainted argument at a call site). Ignores
// empty names and duplicates.
func (s *TaintSummary) MarkTaintedParam(param string) {
	if param == "" || s.IsParamTainted(param) {
		return
	}
	s.TaintedParams = append(s.TaintedParams, param)
}

func (s *TaintSummary) IsParamTainted(param string) bool {
	for _, p := range s.TaintedParams {
		if p == param {
			return true
		}
	}
	return false
}

// MarkReturnTainted records that the function's return value is tainted,
// for callers' interprocedural propagation.
func (s *TaintSummary) MarkReturnTainted(info *TaintInfo) {
	s.TaintedReturn = true
	s.ReturnTaintInfo = info
}

// SetError records that the analysis could not complete for this function
// (§7: a resource-exhaustion or invariant failure truncates, never panics).
func (s *TaintSummary) SetError(message string) {
	s.AnalysisError = true
	s.ErrorMessage = message
}

func (s *TaintSummary) IsComplete() bool { return !s.AnalysisError }

func (s *TaintSummary) GetTaintedVarCount() int {
	count := 0
	for _, infos := range s.TaintedVars {
		for _, info := range infos {
			if info.IsTainted() {
				count++
				break
			}
		}
	}
	return count
}

func (s *TaintSummary) GetDetectionCount() int { return len(s.Detections) }
