package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/term"

	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/promotion"
	"github.com/trezcool/libkiosk/core/student"
	"github.com/trezcool/libkiosk/services/transfer"
)

var (
	confirmFunc = confirm // mockable

	errHelp         = errors.New("help provided")
	errNotConfirmed = errors.New("aborted")
)

type commandLine struct {
	db         *bolt.DB
	students   *student.Service
	attendance *attendance.Service
	transfer   *transfer.Service
	job        *promotion.Job
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate - create the database buckets")
	fmt.Fprintln(cli.out, "  addstudent -lrn LRN -first FIRST [-mi MI] -last LAST -sex SEX -grade GRADE - add a student")
	fmt.Fprintln(cli.out, "  deleteallstudents [-yes] - delete every student; the attendance history is kept")
	fmt.Fprintln(cli.out, "  promote [-force] - run the yearly grade promotion if due, or now with -force")
	fmt.Fprintln(cli.out, "  import -file FILE.json|FILE.xlsx - import students")
	fmt.Fprintln(cli.out, "  export -file FILE.json|FILE.xlsx - export students")
	fmt.Fprintln(cli.out, "  importstats -file FILE.xlsx - import the daily stats")
	fmt.Fprintln(cli.out, "  exportstats -file FILE.xlsx - export the daily stats")
	fmt.Fprintln(cli.out, "  exportattendance -from DATE [-to DATE] -file FILE.xlsx - export the attendance of a date range")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ContinueOnError)
	addStudentLRN := addStudentCmd.String("lrn", "", "The student's LRN.")
	addStudentFirst := addStudentCmd.String("first", "", "The student's first name.")
	addStudentMI := addStudentCmd.String("mi", "", "The student's middle initial.")
	addStudentLast := addStudentCmd.String("last", "", "The student's last name.")
	addStudentSex := addStudentCmd.String("sex", "", "Male or Female.")
	addStudentGrade := addStudentCmd.String("grade", "", "7, 8, 9 or 10.")

	deleteAllCmd := flag.NewFlagSet("deleteallstudents", flag.ContinueOnError)
	deleteAllYes := deleteAllCmd.Bool("yes", false, "Do not ask for confirmation.")

	promoteCmd := flag.NewFlagSet("promote", flag.ContinueOnError)
	promoteForce := promoteCmd.Bool("force", false, "Run the promotion now, whatever the date.")

	fileCmd := flag.NewFlagSet(args[1], flag.ContinueOnError)
	file := fileCmd.String("file", "", "The file to read or write.")
	from := fileCmd.String("from", "", "First date (YYYY-MM-DD); exportattendance only.")
	to := fileCmd.String("to", "", "Last date (YYYY-MM-DD), defaults to -from; exportattendance only.")

	for _, fs := range []*flag.FlagSet{addStudentCmd, deleteAllCmd, promoteCmd, fileCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		return cli.migrate()

	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addStudentLRN == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(student.NewStudent{
			LRN:           *addStudentLRN,
			FirstName:     *addStudentFirst,
			MiddleInitial: *addStudentMI,
			LastName:      *addStudentLast,
			Sex:           student.Sex(*addStudentSex),
			Grade:         student.Grade(*addStudentGrade),
		})

	case "deleteallstudents":
		if err := deleteAllCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if !*deleteAllYes {
			ok, err := confirmFunc("Delete ALL students? The attendance history is kept. [y/N]: ")
			if err != nil {
				return err
			}
			if !ok {
				return errNotConfirmed
			}
		}
		return cli.deleteAllStudents()

	case "promote":
		if err := promoteCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.promote(*promoteForce)

	case "import", "export", "importstats", "exportstats", "exportattendance":
		if err := fileCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *file == "" || (args[1] == "exportattendance" && *from == "") {
			fileCmd.Usage()
			return errHelp
		}
		switch args[1] {
		case "import":
			return cli.importStudents(*file)
		case "export":
			return cli.exportStudents(*file)
		case "importstats":
			return cli.importStats(*file)
		case "exportstats":
			return cli.exportStats(*file)
		default:
			return cli.exportAttendance(*file, *from, *to)
		}

	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks a yes/no question on the terminal. It refuses when stdin is not a terminal.
func confirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return false, errors.New("stdin is not a terminal; use -yes to confirm")
	}
	fmt.Print(prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
