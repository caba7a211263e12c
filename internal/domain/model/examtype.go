package model

// ExamType is a partition of monitored locations and stored slots. Each exam
// type is polled, persisted, and diffed independently.
type ExamType string

// The two exam types offered by the booking service.
const (
	ExamTypeKunskapsprov ExamType = "Kunskapsprov"
	ExamTypeKorprov      ExamType = "Körprov"
)

// examTypeIDs maps exam types to the numeric examinationTypeId selector the
// booking API expects.
var examTypeIDs = map[ExamType]int{
	ExamTypeKunskapsprov: 3,
	ExamTypeKorprov:      12,
}

// SelectorID returns the numeric examinationTypeId for the exam type, or 0 if
// the exam type is unknown.
func (e ExamType) SelectorID() int {
	return examTypeIDs[e]
}

// Valid reports whether the exam type is one of the known kinds.
func (e ExamType) Valid() bool {
	_, ok := examTypeIDs[e]
	return ok
}
