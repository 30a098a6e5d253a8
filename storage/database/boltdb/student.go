package boltdb

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/libkiosk/core/student"
)

type studentRepository struct {
	db *bolt.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *bolt.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) AddStudent(ctx context.Context, s student.Student) (bool, error) {
	var added bool
	err := update(ctx, repo.db, "add student", func(tx *bolt.Tx) error {
		b, err := bucket(tx, studentsBucket)
		if err != nil {
			return err
		}
		key := []byte(s.LRN)
		if b.Get(key) != nil {
			return nil
		}
		s.Attendance = 0
		if err := put(b, key, s); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (repo *studentRepository) GetAllStudents(ctx context.Context) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := view(ctx, repo.db, "get all students", func(tx *bolt.Tx) error {
		b, err := bucket(tx, studentsBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			var s student.Student
			if _, err := get(b, k, &s); err != nil {
				return err
			}
			students = append(students, s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, lrn string) (student.Student, error) {
	var s student.Student
	err := view(ctx, repo.db, "get student", func(tx *bolt.Tx) error {
		b, err := bucket(tx, studentsBucket)
		if err != nil {
			return err
		}
		found, err := get(b, []byte(lrn), &s)
		if err != nil {
			return err
		}
		if !found {
			return student.ErrNotFound
		}
		return nil
	}, student.ErrNotFound)
	if err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) error {
	return update(ctx, repo.db, "update student", func(tx *bolt.Tx) error {
		b, err := bucket(tx, studentsBucket)
		if err != nil {
			return err
		}
		var orig student.Student
		found, err := get(b, []byte(s.LRN), &orig)
		if err != nil || !found {
			return err
		}
		s.Attendance = orig.Attendance
		return put(b, []byte(s.LRN), s)
	})
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, lrn string) error {
	return update(ctx, repo.db, "delete student", func(tx *bolt.Tx) error {
		b, err := bucket(tx, studentsBucket)
		if err != nil {
			return err
		}
		return b.Delete([]byte(lrn))
	})
}

func (repo *studentRepository) DeleteAllStudents(ctx context.Context) error {
	return update(ctx, repo.db, "delete all students", func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(studentsBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(studentsBucket)
		return err
	})
}
