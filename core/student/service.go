package student

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
)

var (
	// errors
	ErrNotFound  = errors.New("student not found")
	ErrLRNExists = errors.New("a student with this LRN already exists")
)

type (
	Repository interface {
		// AddStudent inserts s with a zeroed attendance; reports false when the LRN is taken.
		AddStudent(ctx context.Context, s Student) (bool, error)
		// GetAllStudents returns every student ordered by LRN.
		GetAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, lrn string) (Student, error)
		// UpdateStudent is a no-op when the LRN is unknown; the stored attendance is preserved.
		UpdateStudent(ctx context.Context, s Student) error
		DeleteStudent(ctx context.Context, lrn string) error
		DeleteAllStudents(ctx context.Context) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Add validates and inserts a new Student. It reports false, without error, when the LRN exists.
func (svc *Service) Add(ctx context.Context, ns NewStudent) (bool, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return false, err
	}
	return svc.repo.AddStudent(ctx, Student{
		LRN:           ns.LRN,
		FirstName:     ns.FirstName,
		MiddleInitial: ns.MiddleInitial,
		LastName:      ns.LastName,
		Sex:           ns.Sex,
		Grade:         ns.Grade,
	})
}

// Create is Add with a uniqueness conflict reported as a core.ValidationError.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Clean()
	added, err := svc.Add(ctx, ns)
	if err != nil {
		return Student{}, err
	}
	if !added {
		return Student{}, core.NewValidationError(ErrLRNExists, core.FieldError{Field: "lrn", Error: ErrLRNExists.Error()})
	}
	return svc.repo.GetStudentByID(ctx, ns.LRN)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.GetAllStudents(ctx)
}

func (svc *Service) GetByLRN(ctx context.Context, lrn string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, core.CleanString(lrn))
}

// Find is GetByLRN with "absent" reported as ok == false instead of an error.
func (svc *Service) Find(ctx context.Context, lrn string) (Student, bool, error) {
	s, err := svc.GetByLRN(ctx, lrn)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, false, nil
		}
		return Student{}, false, err
	}
	return s, true, nil
}

// Filter applies AND operation on available QueryFilter fields, then sorts by orderings.
func (svc *Service) Filter(ctx context.Context, filter QueryFilter, orderings []core.Ordering) ([]Student, error) {
	filter.Clean()
	all, err := svc.repo.GetAllStudents(ctx)
	if err != nil {
		return nil, err
	}
	students := make([]Student, 0, len(all))
	for _, s := range all {
		if filter.Match(s) {
			students = append(students, s)
		}
	}
	Sort(students, orderings)
	return students, nil
}

// Update overwrites the student's fields, except the LRN and attendance. Unknown LRNs are ignored.
func (svc *Service) Update(ctx context.Context, lrn string, us UpdateStudent) error {
	return svc.repo.UpdateStudent(ctx, Student{
		LRN:           core.CleanString(lrn),
		FirstName:     us.FirstName,
		MiddleInitial: us.MiddleInitial,
		LastName:      us.LastName,
		Sex:           us.Sex,
		Grade:         us.Grade,
	})
}

// Delete removes students by LRN. Unknown LRNs are ignored.
func (svc *Service) Delete(ctx context.Context, lrns ...string) error {
	for _, lrn := range lrns {
		if err := svc.repo.DeleteStudent(ctx, core.CleanString(lrn)); err != nil {
			return errors.Wrapf(err, "deleting student %q", lrn)
		}
	}
	return nil
}

func (svc *Service) DeleteAll(ctx context.Context) error {
	return svc.repo.DeleteAllStudents(ctx)
}

var lessFuncs = map[string]func(a, b Student) bool{
	"lrn":        func(a, b Student) bool { return a.LRN < b.LRN },
	"firstName":  func(a, b Student) bool { return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName) },
	"lastName":   func(a, b Student) bool { return strings.ToLower(a.LastName) < strings.ToLower(b.LastName) },
	"sex":        func(a, b Student) bool { return a.Sex < b.Sex },
	"grade":      func(a, b Student) bool { return a.Grade.Index() < b.Grade.Index() },
	"attendance": func(a, b Student) bool { return a.Attendance < b.Attendance },
}

// Sort stable-sorts students by orderings; unknown fields are ignored.
func Sort(students []Student, orderings []core.Ordering) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(students, func(i, j int) bool {
		for _, ord := range orderings {
			less, ok := lessFuncs[ord.Field]
			if !ok {
				continue
			}
			a, b := students[i], students[j]
			if !ord.Ascending {
				a, b = b, a
			}
			if less(a, b) {
				return true
			}
			if less(b, a) {
				return false
			}
		}
		return false
	})
}
