// Package dataset loads the accelerometer tables and prepares them for
// modeling: fetching, sparse-column removal, target relabeling, schema
// alignment between the training and scoring tables, and conversion to the
// numeric matrices the estimators consume.
package dataset

import (
	"context"
	"io"
	"net/http"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/liftlab/liftqc/pkg/errors"
)

// naMarkers are the strings treated as missing values at load time. The
// accelerometer CSVs use "NA" and the spreadsheet artifact "#DIV/0!".
// The empty string is deliberately not listed: empty cells in text columns
// are counted separately by the cleaner.
var naMarkers = []string{"NA", "NaN", "#DIV/0!"}

// FetchCSV retrieves a CSV resource over HTTP and parses it into a dataframe.
// Transport failures and non-200 statuses return a DataFetchError. The fetch
// is performed once; there is no retry.
func FetchCSV(ctx context.Context, url string) (dataframe.DataFrame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return dataframe.DataFrame{}, errors.NewDataFetchError(url, 0, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return dataframe.DataFrame{}, errors.NewDataFetchError(url, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return dataframe.DataFrame{}, errors.NewDataFetchError(url, resp.StatusCode, nil)
	}

	df, err := ReadCSV(resp.Body)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "parsing %s", url)
	}
	return df, nil
}

// ReadCSV parses CSV data into a dataframe with per-column type detection.
// Columns that fail numeric detection stay as text.
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naMarkers),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(df.Err, "reading csv")
	}
	if df.Nrow() == 0 || df.Ncol() == 0 {
		return dataframe.DataFrame{}, errors.Wrap(errors.ErrEmptyData, "reading csv")
	}
	return df, nil
}
