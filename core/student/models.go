package student

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
)

// Sexes
const (
	Male   Sex = "Male"
	Female Sex = "Female"
)

// Grades
const (
	Grade7  Grade = "7"
	Grade8  Grade = "8"
	Grade9  Grade = "9"
	Grade10 Grade = "10"
)

// NoMiddleInitial is stored when a student has no middle initial.
const NoMiddleInitial = "N/A"

var (
	Sexes  = []Sex{Male, Female}
	Grades = []Grade{Grade7, Grade8, Grade9, Grade10}

	ErrInvalidGrade = errors.New("invalid grade")
	ErrInvalidSex   = errors.New("invalid sex")
)

type Sex string

func (s Sex) IsValid() bool { return s == Male || s == Female }

// ParseSex accepts "Male"/"Female" in any case, and "M"/"F".
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(core.CleanString(s)) {
	case "male", "m":
		return Male, nil
	case "female", "f":
		return Female, nil
	}
	return "", errors.Wrapf(ErrInvalidSex, "%q", s)
}

// Grade is an ordinal grade level, from Grade7 to Grade10.
type Grade string

// Index returns the position of g in Grades, or -1.
func (g Grade) Index() int {
	for i, grade := range Grades {
		if g == grade {
			return i
		}
	}
	return -1
}

func (g Grade) IsValid() bool { return g.Index() >= 0 }

// IsTop reports whether g is the graduating grade.
func (g Grade) IsTop() bool { return g == Grades[len(Grades)-1] }

// Next returns the grade after g; false if g is the top grade or invalid.
func (g Grade) Next() (Grade, bool) {
	i := g.Index()
	if i < 0 || i >= len(Grades)-1 {
		return "", false
	}
	return Grades[i+1], true
}

// ParseGrade accepts "7", "Grade 7", and spreadsheet floats like "7.0".
func ParseGrade(s string) (Grade, error) {
	s = strings.TrimPrefix(strings.ToLower(core.CleanString(s)), "grade")
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		s = strconv.Itoa(int(f))
	}
	if g := Grade(s); g.IsValid() {
		return g, nil
	}
	return "", errors.Wrapf(ErrInvalidGrade, "%q", s)
}

type Student struct {
	LRN           string `json:"lrn"`
	FirstName     string `json:"firstName"`
	MiddleInitial string `json:"middleInitial"`
	LastName      string `json:"lastName"`
	Sex           Sex    `json:"sex"`
	Grade         Grade  `json:"grade"`
	Attendance    int    `json:"attendance"`
}

// DisplayName returns "Last, First MI"; the middle initial is omitted when unknown.
func (s Student) DisplayName() string {
	return DisplayName(s.FirstName, s.MiddleInitial, s.LastName)
}

func DisplayName(first, mi, last string) string {
	name := last + ", " + first
	if mi != "" && mi != NoMiddleInitial {
		name += " " + mi
	}
	return strings.TrimSpace(name)
}

func cleanMiddleInitial(mi string) string {
	mi = core.CleanString(mi)
	if mi == "" || strings.EqualFold(mi, NoMiddleInitial) {
		return NoMiddleInitial
	}
	return mi
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	LRN           string `json:"lrn" validate:"required,lrn"`
	FirstName     string `json:"firstName" validate:"required,max=64"`
	MiddleInitial string `json:"middleInitial" validate:"max=3"`
	LastName      string `json:"lastName" validate:"required,max=64"`
	Sex           Sex    `json:"sex" validate:"required,sex"`
	Grade         Grade  `json:"grade" validate:"required,grade"`
}

func (ns *NewStudent) Clean() {
	ns.LRN = core.CleanString(ns.LRN)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.MiddleInitial = cleanMiddleInitial(ns.MiddleInitial)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Sex = Sex(core.CleanString(string(ns.Sex)))
	ns.Grade = Grade(core.CleanString(string(ns.Grade)))
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// The LRN is immutable; any attendance value sent by the caller is ignored.
type UpdateStudent struct {
	FirstName     string `json:"firstName" validate:"required,max=64"`
	MiddleInitial string `json:"middleInitial" validate:"max=3"`
	LastName      string `json:"lastName" validate:"required,max=64"`
	Sex           Sex    `json:"sex" validate:"required,sex"`
	Grade         Grade  `json:"grade" validate:"required,grade"`
}

// Validate fills blank fields from orig before validating.
func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if name := core.CleanString(us.FirstName); name != "" {
		us.FirstName = name
	} else {
		us.FirstName = orig.FirstName
	}
	if name := core.CleanString(us.LastName); name != "" {
		us.LastName = name
	} else {
		us.LastName = orig.LastName
	}
	us.MiddleInitial = cleanMiddleInitial(us.MiddleInitial)
	if sex := Sex(core.CleanString(string(us.Sex))); sex != "" {
		us.Sex = sex
	} else {
		us.Sex = orig.Sex
	}
	if grade := Grade(core.CleanString(string(us.Grade))); grade != "" {
		us.Grade = grade
	} else {
		us.Grade = orig.Grade
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	Search string `query:"search"`
	Grade  Grade  `query:"grade"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Grade == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Grade = Grade(core.CleanString(string(qf.Grade)))
}

// Match reports whether s matches the filter: the search term is either an LRN prefix
// or a case-insensitive substring of the full name.
func (qf *QueryFilter) Match(s Student) bool {
	if qf.Grade != "" && s.Grade != qf.Grade {
		return false
	}
	if qf.Search == "" {
		return true
	}
	if strings.HasPrefix(s.LRN, qf.Search) {
		return true
	}
	term := strings.ToLower(qf.Search)
	fullName := strings.ToLower(s.FirstName + " " + s.LastName)
	return strings.Contains(fullName, term) || strings.Contains(strings.ToLower(s.DisplayName()), term)
}
