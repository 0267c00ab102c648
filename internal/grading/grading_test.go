package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-teacher-portal/internal/models"
)

func uniform(v float64) models.Marks {
	return models.Marks{Math: v, English: v, Science: v, SocialStudies: v, Computer: v, Hindi: v}
}

func TestComputeExamples(t *testing.T) {
	tests := []struct {
		name  string
		marks models.Marks
		want  models.Derived
	}{
		{
			name:  "mixed scores",
			marks: models.Marks{Math: 95, English: 88, Science: 92, SocialStudies: 91, Computer: 89, Hindi: 85},
			want:  models.Derived{TotalMarks: 540, Average: 90, Grade: GradeAPlus},
		},
		{name: "all sixty", marks: uniform(60), want: models.Derived{TotalMarks: 360, Average: 60, Grade: GradeBPlus}},
		{name: "all thirty", marks: uniform(30), want: models.Derived{TotalMarks: 180, Average: 30, Grade: GradeF}},
		{name: "all zero", marks: uniform(0), want: models.Derived{TotalMarks: 0, Average: 0, Grade: GradeF}},
		{name: "all hundred", marks: uniform(100), want: models.Derived{TotalMarks: 600, Average: 100, Grade: GradeAPlus}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.marks))
		})
	}
}

func TestAverageRoundsHalfUp(t *testing.T) {
	assert.Equal(t, 90, Average(537))   // 89.5
	assert.Equal(t, 89, Average(536))   // 89.33
	assert.Equal(t, 35, Average(207))   // 34.5
	assert.Equal(t, 34, Average(206.9)) // 34.48
}

func TestLetterThresholds(t *testing.T) {
	cases := map[int]string{
		100: GradeAPlus, 90: GradeAPlus, 89: GradeA, 80: GradeA,
		79: GradeBPlus, 70: GradeBPlus, 69: GradeBPlus, 60: GradeBPlus,
		59: GradeB, 50: GradeB, 49: GradeC, 40: GradeC,
		39: GradeD, 35: GradeD, 34: GradeF, 0: GradeF,
	}
	for avg, want := range cases {
		assert.Equal(t, want, Letter(avg), "average %d", avg)
	}
}

func TestLetterIsMonotonic(t *testing.T) {
	prev := Rank(Letter(0))
	for avg := 1; avg <= 100; avg++ {
		rank := Rank(Letter(avg))
		assert.LessOrEqual(t, rank, prev, "average %d got a worse letter than %d", avg, avg-1)
		assert.Contains(t, Grades, Letter(avg))
		prev = rank
	}
}

func TestAverageMatchesRoundedMean(t *testing.T) {
	for total := 0.0; total <= 600; total++ {
		avg := Average(total)
		mean := total / 6
		assert.True(t, float64(avg)-0.5 <= mean && mean < float64(avg)+0.5, "total %v", total)
	}
}
