// Package csvcodec converts contacts to CSV and reads CSV files row by row for imports.
//
// Exported files always carry the header
//
//	full_name,phone_number,email,address,company,notes
//
// and absent optional values are written as empty fields. Imported files are matched by column
// name, so the columns may appear in any order and unknown columns are ignored.
package csvcodec

import (
	"encoding/csv"
	"io"
	"strings"

	"gitlab.com/dirk.krummacker/contact-manager/internal/model"
)

// Header is the header row of every exported file.
var Header = []string{
	model.FieldFullName,
	model.FieldPhoneNumber,
	model.FieldEmail,
	model.FieldAddress,
	model.FieldCompany,
	model.FieldNotes,
}

// FileError reports a problem with the file as a whole, such as broken quoting or an encoding
// that is not UTF-8. No row of such a file can be trusted.
type FileError struct {
	Err error
}

func (e *FileError) Error() string {
	return e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Export writes the header and one row per contact in the given order.
func Export(w io.Writer, contacts []model.Contact) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, c := range contacts {
		f := c.Fields()
		err := cw.Write([]string{f.FullName, f.PhoneNumber, f.Email, f.Address, f.Company, f.Notes})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row is one data record of an imported file, keyed by the column names of the header.
type Row struct {
	// Number is the record's position in the file. The header is row 1, so the first data
	// row is row 2.
	Number int
	Values map[string]string
}

// Present reports whether the row has a non-blank value for the column.
func (r Row) Present(column string) bool {
	return strings.TrimSpace(r.Values[column]) != ""
}

// Fields returns the contact fields of the row. Columns that are not contact fields are dropped.
func (r Row) Fields() model.Fields {
	return model.FieldsFromMap(r.Values)
}

// Reader reads rows lazily from a CSV file. It cannot be rewound; to read a file again, create
// a new Reader over its beginning.
type Reader struct {
	csv    *csv.Reader
	header []string
	number int
	err    error
}

// NewReader creates a reader. A UTF-8 byte order mark at the start of the input is skipped.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(newUTF8Reader(skipBOM(r)))
	cr.FieldsPerRecord = -1
	return &Reader{csv: cr, number: 1}
}

// Next returns the next row. It returns io.EOF after the last row and a *FileError if the
// file is malformed. Once an error has been returned, every further call returns it again.
func (r *Reader) Next() (Row, error) {
	if r.err != nil {
		return Row{}, r.err
	}
	if r.header == nil {
		header, err := r.csv.Read()
		if err != nil {
			return Row{}, r.fail(err)
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
		r.header = header
	}
	record, err := r.csv.Read()
	if err != nil {
		return Row{}, r.fail(err)
	}
	r.number++
	values := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if i < len(record) {
			values[name] = record[i]
		}
	}
	return Row{Number: r.number, Values: values}, nil
}

func (r *Reader) fail(err error) error {
	if err == io.EOF {
		r.err = io.EOF
	} else {
		r.err = &FileError{Err: err}
	}
	return r.err
}
