package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/student"
)

// looseString decodes a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.Errorf("want a string or a number, got %s", data)
	}
	*s = looseString(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

type studentRecord struct {
	LRN           looseString `json:"lrn"`
	FirstName     string      `json:"firstName"`
	MiddleInitial string      `json:"middleInitial"`
	LastName      string      `json:"lastName"`
	Sex           string      `json:"sex"`
	Grade         looseString `json:"grade"`
	Attendance    int         `json:"attendance"`
}

// ExportStudentsJSON writes students as an indented JSON array.
func ExportStudentsJSON(w io.Writer, students []student.Student) error {
	if students == nil {
		students = []student.Student{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(students), "encoding students")
}

// ImportStudentsJSON adds every record of a JSON array. Records without an LRN or failing validation
// are skipped and counted. Attendance is not restored.
// On a malformed file, records added so far are kept and a *core.ImportError is returned.
func ImportStudentsJSON(ctx context.Context, r io.Reader, adder StudentAdder) (Result, error) {
	var res Result
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return res, &core.ImportError{Err: errors.Wrap(err, "invalid JSON file")}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return res, &core.ImportError{Err: errors.New("invalid JSON file: want an array of students")}
	}

	for row := 1; dec.More(); row++ {
		var rec studentRecord
		if err := dec.Decode(&rec); err != nil {
			return res, &core.ImportError{Row: row, Imported: res.Imported, Err: errors.Wrap(err, "invalid JSON file")}
		}
		if core.CleanString(string(rec.LRN)) == "" {
			res.Skipped++
			continue
		}
		ns := newStudent(string(rec.LRN), rec.FirstName, rec.MiddleInitial, rec.LastName, rec.Sex, string(rec.Grade))
		if err := addRecord(ctx, adder, ns, &res); err != nil {
			return res, errors.Wrapf(err, "importing row %d", row)
		}
	}

	if _, err := dec.Token(); err != nil {
		return res, &core.ImportError{Imported: res.Imported, Err: errors.Wrap(err, "invalid JSON file")}
	}
	return res, nil
}
