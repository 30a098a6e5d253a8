package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/services/transfer"
)

func (cli *commandLine) importStudents(path string) error {
	format, err := transfer.FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := cli.transfer.ImportStudents(context.Background(), f, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d student(s) imported, %d skipped\n", res.Imported, res.Skipped)
	return nil
}

func (cli *commandLine) exportStudents(path string) error {
	format, err := transfer.FormatOf(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(f *os.File) error {
		return cli.transfer.ExportStudents(context.Background(), f, format)
	})
}

func (cli *commandLine) importStats(path string) error {
	if format, err := transfer.FormatOf(path); err != nil || format != transfer.XLSX {
		return errors.New("daily stats must be a .xlsx file")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := cli.transfer.ImportCounters(context.Background(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d daily stat(s) imported\n", n)
	return nil
}

func (cli *commandLine) exportStats(path string) error {
	return writeFile(path, func(f *os.File) error {
		return cli.transfer.ExportCounters(context.Background(), f)
	})
}

func (cli *commandLine) exportAttendance(path, from, to string) error {
	return writeFile(path, func(f *os.File) error {
		return cli.transfer.ExportAttendance(context.Background(), f, from, to)
	})
}

// writeFile creates path and fills it with write; the file is removed if write fails.
func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = write(f); err != nil {
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck
		return err
	}
	return f.Close()
}
