package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	liftqcErrors "github.com/liftlab/liftqc/pkg/errors"
)

const sampleCSV = `roll_belt,kurtosis_roll_belt,classe
1.41,#DIV/0!,A
1.42,NA,B
1.48,0.01,C
`

func TestReadCSV(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if df.Nrow() != 3 || df.Ncol() != 3 {
		t.Errorf("dims = (%d, %d), want (3, 3)", df.Nrow(), df.Ncol())
	}

	// NA markers, including the spreadsheet artifact, parse as missing so
	// the column stays numeric.
	records := df.Col("kurtosis_roll_belt").Records()
	if records[0] != "NaN" || records[1] != "NaN" {
		t.Errorf("NA markers should load as NaN, got %v", records)
	}
}

func TestReadCSV_Empty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("roll_belt,classe\n")); err == nil {
		t.Error("expected an error for a header-only table")
	}
}

func TestFetchCSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	df, err := FetchCSV(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchCSV failed: %v", err)
	}
	if df.Nrow() != 3 {
		t.Errorf("Nrow = %d, want 3", df.Nrow())
	}
}

func TestFetchCSV_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := FetchCSV(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}

	var fetchErr *liftqcErrors.DataFetchError
	if !liftqcErrors.As(err, &fetchErr) {
		t.Fatalf("expected *DataFetchError, got %T", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", fetchErr.StatusCode)
	}
}

func TestFetchCSV_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // connection refused from here on

	_, err := FetchCSV(context.Background(), url)
	if err == nil {
		t.Fatal("expected an error for an unreachable server")
	}

	var fetchErr *liftqcErrors.DataFetchError
	if !liftqcErrors.As(err, &fetchErr) {
		t.Fatalf("expected *DataFetchError, got %T", err)
	}
	if fetchErr.StatusCode != 0 {
		t.Errorf("transport failures should carry no status code, got %d", fetchErr.StatusCode)
	}
}
