package model

// Grade is the five-level ordinal scale used for every assignment.
type Grade string

const (
	GradeExcellent  Grade = "EXCELLENT"
	GradeVeryGood   Grade = "VERY_GOOD"
	GradeGood       Grade = "GOOD"
	GradeAcceptable Grade = "ACCEPTABLE"
	GradeNeedsWork  Grade = "NEEDS_WORK"
)

var gradeRank = map[Grade]int{
	GradeExcellent:  5,
	GradeVeryGood:   4,
	GradeGood:       3,
	GradeAcceptable: 2,
	GradeNeedsWork:  1,
}

var gradeLabels = map[Grade]string{
	GradeExcellent:  "ممتاز",
	GradeVeryGood:   "جيد جداً",
	GradeGood:       "جيد",
	GradeAcceptable: "مقبول",
	GradeNeedsWork:  "يحتاج إلى تحسين",
}

// Valid reports whether g is one of the five grades. The empty grade
// (ungraded) is not valid.
func (g Grade) Valid() bool {
	_, ok := gradeRank[g]
	return ok
}

func (g Grade) Label() string {
	return gradeLabels[g]
}

// CompareGrades orders grades: positive when a is better than b, zero when
// equal. Ungraded sorts below every grade.
func CompareGrades(a, b Grade) int {
	return gradeRank[a] - gradeRank[b]
}
