package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/libkiosk/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) AddStudent(_ context.Context, s student.Student) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[s.LRN]; ok {
		return false, nil
	}
	s.Attendance = 0
	repo.db.students[s.LRN] = &s
	return true, nil
}

func (repo *studentRepository) GetAllStudents(_ context.Context) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].LRN < students[j].LRN })
	return students, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, lrn string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[lrn]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.students[s.LRN]
	if !ok {
		return nil
	}
	s.Attendance = orig.Attendance
	repo.db.students[s.LRN] = &s
	return nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, lrn string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.students, lrn)
	return nil
}

func (repo *studentRepository) DeleteAllStudents(_ context.Context) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.students = make(map[string]*student.Student)
	return nil
}
