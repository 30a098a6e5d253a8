package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGrade(t *testing.T) {
	tests := []struct {
		in      string
		want    Grade
		wantErr bool
	}{
		{in: "7", want: Grade7},
		{in: " 10 ", want: Grade10},
		{in: "Grade 8", want: Grade8},
		{in: "9.0", want: Grade9},
		{in: "6", wantErr: true},
		{in: "9.5", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGrade(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSex(t *testing.T) {
	for in, want := range map[string]Sex{"Male": Male, "female": Female, " M ": Male, "f": Female} {
		got, err := ParseSex(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSex("other")
	assert.Error(t, err)
}

func TestGrade_Next(t *testing.T) {
	next, ok := Grade7.Next()
	assert.True(t, ok)
	assert.Equal(t, Grade8, next)

	next, ok = Grade9.Next()
	assert.True(t, ok)
	assert.Equal(t, Grade10, next)

	_, ok = Grade10.Next()
	assert.False(t, ok)
	assert.True(t, Grade10.IsTop())

	_, ok = Grade("5").Next()
	assert.False(t, ok)
}

func TestStudent_DisplayName(t *testing.T) {
	tests := []struct {
		mi   string
		want string
	}{
		{mi: "B", want: "Cruz, Alice B"},
		{mi: "N/A", want: "Cruz, Alice"},
		{mi: "", want: "Cruz, Alice"},
	}
	for _, tt := range tests {
		s := Student{FirstName: "Alice", MiddleInitial: tt.mi, LastName: "Cruz"}
		assert.Equal(t, tt.want, s.DisplayName())
	}
}
