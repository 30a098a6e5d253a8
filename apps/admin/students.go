package main

import (
	"context"
	"fmt"

	"github.com/trezcool/libkiosk/core/student"
	"github.com/trezcool/libkiosk/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate() error {
	if err := migrateFunc(cli.db); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Database up to date")
	return nil
}

// addStudent creates a student.Student; the sex and grade accept the spreadsheet spellings.
func (cli *commandLine) addStudent(ns student.NewStudent) error {
	if sex, err := student.ParseSex(string(ns.Sex)); err == nil {
		ns.Sex = sex
	}
	if grade, err := student.ParseGrade(string(ns.Grade)); err == nil {
		ns.Grade = grade
	}

	s, err := cli.students.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Student %s added: %s, grade %s\n", s.LRN, s.DisplayName(), s.Grade)
	return nil
}

func (cli *commandLine) deleteAllStudents() error {
	if err := cli.students.DeleteAll(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "All students deleted")
	return nil
}

func (cli *commandLine) promote(force bool) error {
	run := cli.job.Check
	if force {
		run = cli.job.Force
	}
	res, err := run(context.Background())
	if err != nil {
		return err
	}
	if !res.Ran {
		fmt.Fprintf(cli.out, "Grade promotion not due (%d)\n", res.Year)
		return nil
	}
	fmt.Fprintf(cli.out, "Grade promotion %d done: %d promoted, %d graduated\n", res.Year, res.Promoted, res.Graduated)
	return nil
}
