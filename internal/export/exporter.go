package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/azure/carbon-dashboard/internal/metrics"
	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/azure/carbon-dashboard/internal/storage"
	"github.com/sirupsen/logrus"
)

// Exporter renders chart data and hands the file to a storage backend
type Exporter struct {
	storage storage.StorageInterface
	now     func() time.Time
}

func NewExporter(s storage.StorageInterface) *Exporter {
	return &Exporter{storage: s, now: time.Now}
}

const (
	filePrefix = "emissions-"
	fileSuffix = ".csv"
)

// ErrInvalidName is returned for names that are not export file names
var ErrInvalidName = errors.New("export: not an export file name")

// FileName is the export name for the given instant
func FileName(at time.Time) string {
	return fmt.Sprintf("%s%s%s", filePrefix, at.UTC().Format("2006-01-02_15-04-05"), fileSuffix)
}

// IsFileName reports whether name looks like an export written by FileName
func IsFileName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) &&
		!strings.ContainsAny(name, "/\\")
}

// Render builds the CSV for companies; companyID narrows the trend section to one company
func Render(companies []models.Company, companyID string) ([]byte, error) {
	return BuildCSV(metrics.TimeSeries(companies, companyID), metrics.CompareCompanies(companies))
}

// Export renders the CSV and stores it, returning the stored name
func (e *Exporter) Export(ctx context.Context, companies []models.Company, companyID string) (string, error) {
	data, err := Render(companies, companyID)
	if err != nil {
		return "", err
	}

	name := FileName(e.now())
	if err := e.storage.Store(ctx, name, data); err != nil {
		return "", fmt.Errorf("failed to store export %s: %w", name, err)
	}

	logrus.Infof("Exported %d companies to %s", len(companies), name)
	return name, nil
}

// List returns the stored exports, oldest first
func (e *Exporter) List(ctx context.Context) ([]string, error) {
	names, err := e.storage.List(ctx, filePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	exports := make([]string, 0, len(names))
	for _, name := range names {
		if IsFileName(name) {
			exports = append(exports, name)
		}
	}
	sort.Strings(exports)
	return exports, nil
}

// Open returns the contents of a stored export. Missing exports yield storage.ErrNotFound.
func (e *Exporter) Open(ctx context.Context, name string) ([]byte, error) {
	if !IsFileName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return e.storage.Retrieve(ctx, name)
}

// Prune deletes all but the newest keep exports and returns how many were removed.
// keep <= 0 keeps everything.
func (e *Exporter) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	names, err := e.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(names) <= keep {
		return 0, nil
	}

	removed := 0
	for _, name := range names[:len(names)-keep] {
		err := e.storage.Delete(ctx, name)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return removed, fmt.Errorf("failed to prune export %s: %w", name, err)
		}
		removed++
	}

	logrus.Infof("Pruned %d old exports, keeping %d", removed, keep)
	return removed, nil
}
