package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
)

type Contact struct {
	Id          int64  `json:"id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

var baseURL string

// Usage examples on the command line:
// > go run main.go -import=contacts.csv
// > go run main.go -export=backup.csv
// > go run main.go -bench
func main() {
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "the base URL of the service")
	importFile := flag.String("import", "", "a CSV file to import")
	exportFile := flag.String("export", "", "the file to write all contacts to as CSV")
	bench := flag.Bool("bench", false, "measure the average duration of the API calls")
	flag.Parse()

	switch {
	case *importFile != "":
		importCSV(*importFile)
	case *exportFile != "":
		exportCSV(*exportFile)
	case *bench:
		benchmark()
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// importCSV uploads the file and prints the import report.
func importCSV(name string) {
	file, err := os.Open(name) // nosemgrep
	if err != nil {
		fmt.Println("could not open file", err)
		os.Exit(1)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("csv_file", filepath.Base(name))
	if err != nil {
		panic(err)
	}
	if _, err := io.Copy(part, file); err != nil {
		fmt.Println("could not read file", err)
		os.Exit(1)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/import", &body)
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resBody, status, _ := sendRequest(req)
	if status != http.StatusOK {
		fmt.Printf("import refused (%d): %s", status, resBody)
		fmt.Println()
		os.Exit(1)
	}

	var report model.ImportReport
	if err := json.Unmarshal(resBody, &report); err != nil {
		fmt.Println("could not unmarshal JSON", err)
		os.Exit(1)
	}
	fmt.Printf("%d rows: %d imported, %d updated, %d skipped", report.Total, report.Imported, report.Updated, report.Skipped)
	fmt.Println()
	for _, msg := range report.Errors {
		fmt.Println("  " + msg)
	}
	if !report.Committed {
		fmt.Println("nothing was changed")
		os.Exit(1)
	}
}

// exportCSV downloads all contacts into the file.
func exportCSV(name string) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/export", nil)
	if err != nil {
		panic(err)
	}
	resBody, status, _ := sendRequest(req)
	if status != http.StatusOK {
		fmt.Printf("export failed (%d): %s", status, resBody)
		fmt.Println()
		os.Exit(1)
	}
	if err := os.WriteFile(name, resBody, 0o644); err != nil {
		fmt.Println("could not write file", err)
		os.Exit(1)
	}
	fmt.Printf("%d bytes written to %s", len(resBody), name)
	fmt.Println()
}

// benchmark prints the average duration in microseconds per API call for growing numbers of
// contacts.
func benchmark() {
	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET    DELETE ")
	fmt.Println("---------------------------------------------------")
	sizes := []int{100, 500, 1000, 5000}
	for _, loops := range sizes {
		fmt.Printf("%10d", loops)
		ids := make([]int64, 0, loops)
		var duration int64
		for i := 0; i < loops; i++ {
			jsonBody := fmt.Sprintf(`{
				"full_name": "Marcus Antonius",
				"phone_number": "+39 999 777 555",
				"email": "marcus.%d.%d@example.com"
			}`, loops, i)
			id, d := sendPostRequest(bytes.NewReader([]byte(jsonBody)))
			ids = append(ids, id)
			duration += d
		}
		fmt.Printf("%10d", duration/int64(loops*1000))

		callInLoop(ids, func(id int64) int64 {
			return sendPutGetDeleteRequest(id, http.MethodPut, bytes.NewReader([]byte(`{"company": "SPQR"}`)))
		})
		callInLoop(ids, func(id int64) int64 {
			return sendPutGetDeleteRequest(id, http.MethodGet, nil)
		})
		callInLoop(ids, func(id int64) int64 {
			return sendPutGetDeleteRequest(id, http.MethodDelete, nil)
		})
		fmt.Println()
	}
}

func callInLoop(ids []int64, f func(id int64) int64) {
	shuffled := append([]int64(nil), ids...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var duration int64
	for _, id := range shuffled {
		duration += f(id)
	}
	fmt.Printf("%10d", duration/int64(len(ids)*1000))
}

func sendPostRequest(bodyReader io.Reader) (int64, int64) {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/contacts", bodyReader)
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resBody, _, duration := sendRequest(req)
	var contact Contact
	err = json.Unmarshal(resBody, &contact)
	if err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	return contact.Id, duration
}

func sendPutGetDeleteRequest(id int64, method string, bodyReader io.Reader) int64 {
	req, err := http.NewRequest(method, fmt.Sprintf("%s/api/contacts/%d", baseURL, id), bodyReader)
	if err != nil {
		panic(err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	_, _, duration := sendRequest(req)
	return duration
}

// sendRequest returns the response body, the status code and the duration in nanoseconds.
func sendRequest(req *http.Request) ([]byte, int, int64) {
	before := time.Now().UnixNano()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	after := time.Now().UnixNano()
	return resBody, res.StatusCode, after - before
}
