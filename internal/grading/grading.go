// Package grading computes the derived report fields from six subject scores.
package grading

import (
	"math"

	"github.com/noah-isme/sma-teacher-portal/internal/models"
)

// Letter grades.
const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeBPlus = "B+"
	GradeB     = "B"
	GradeC     = "C"
	GradeD     = "D"
	GradeF     = "F"
)

type bucket struct {
	min   int
	grade string
}

// buckets are checked top-down. [60,70) and [70,80) both map to B+.
var buckets = []bucket{
	{90, GradeAPlus},
	{80, GradeA},
	{70, GradeBPlus},
	{60, GradeBPlus},
	{50, GradeB},
	{40, GradeC},
	{35, GradeD},
}

// Grades lists every letter Letter can return, best first.
var Grades = []string{GradeAPlus, GradeA, GradeBPlus, GradeB, GradeC, GradeD, GradeF}

// Total sums the scores.
func Total(m models.Marks) float64 {
	var total float64
	for _, v := range m.Values() {
		total += v
	}
	return total
}

// Average returns the mean of the six scores rounded half up.
func Average(total float64) int {
	return int(math.Floor(total/float64(len(models.Subjects)) + 0.5))
}

// Letter buckets a rounded average.
func Letter(average int) string {
	for _, b := range buckets {
		if average >= b.min {
			return b.grade
		}
	}
	return GradeF
}

// Compute returns total, rounded average and letter grade for the marks.
func Compute(m models.Marks) models.Derived {
	total := Total(m)
	avg := Average(total)
	return models.Derived{TotalMarks: total, Average: avg, Grade: Letter(avg)}
}

// Rank orders letters from best (0) to worst; unknown letters rank after F.
func Rank(grade string) int {
	for i, g := range Grades {
		if g == grade {
			return i
		}
	}
	return len(Grades)
}
