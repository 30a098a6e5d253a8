package main

import (
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/promotion"
	"github.com/trezcool/libkiosk/core/student"
	logsvc "github.com/trezcool/libkiosk/services/logger"
	"github.com/trezcool/libkiosk/services/transfer"
	"github.com/trezcool/libkiosk/storage/database"
	"github.com/trezcool/libkiosk/storage/database/boltdb"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logsvc.NewRollbarLogger(logsvc.New(os.Stdout, "ADMIN : "), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	// set up DB
	db, err := database.Setup(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)

	// set up services
	studentRepo := boltdb.NewStudentRepository(db)
	studentSvc := student.NewService(studentRepo, validate)
	attendanceSvc := attendance.NewService(boltdb.NewAttendanceRepository(db), studentRepo, validate, conf.Location())

	// start CLI
	cli := commandLine{
		db:         db,
		students:   studentSvc,
		attendance: attendanceSvc,
		transfer:   transfer.NewService(studentSvc, attendanceSvc, logger),
		job:        promotion.NewJob(studentRepo, boltdb.NewSettingsRepository(db), logger, conf),
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	if cerr := db.Close(); cerr != nil {
		logger.Error("Failed to close database", cerr)
	}
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
