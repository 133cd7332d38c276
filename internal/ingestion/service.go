package ingestion

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/rfdados/cnpj-pipeline/internal/database"
	"github.com/rfdados/cnpj-pipeline/internal/encoding"
	"github.com/rfdados/cnpj-pipeline/internal/models"
	"github.com/rfdados/cnpj-pipeline/internal/parser"
	"github.com/rfdados/cnpj-pipeline/internal/schema"
	"github.com/rfdados/cnpj-pipeline/pkg/checksum"
)

// Config parameterizes one run. It is fixed at construction; the service
// never re-reads resources mid-run.
type Config struct {
	BatchSize   int
	Concurrency int
}

// Service drives the load: scan, ledger check, per-file pipeline, report.
type Service struct {
	store database.Store
	cfg   Config
}

func NewService(store database.Store, cfg Config) *Service {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50_000
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Service{store: store, cfg: cfg}
}

// ScanForFiles walks the input directory and classifies each file by its
// name marker. Files with no recognized marker are returned as failed
// reports: they abort that file only, never the run.
func (s *Service) ScanForFiles(rootPath string) ([]models.FileInfo, []models.FileReport, error) {
	var fileInfos []models.FileInfo
	var unrecognized []models.FileReport
	log.Printf("Scanning for files in: %s", rootPath)

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		fileType, ok := schema.DetectFileType(info.Name())
		if !ok {
			log.Printf("WARN: Unknown file type for: %s", info.Name())
			unrecognized = append(unrecognized, models.FileReport{
				Name:   info.Name(),
				Status: models.StatusFailed,
				Err:    fmt.Errorf("unrecognized file type"),
			})
			return nil
		}

		fileInfos = append(fileInfos, models.FileInfo{
			Path:     path,
			Name:     info.Name(),
			Type:     fileType,
			ByteSize: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error walking directory %s: %w", rootPath, err)
	}

	log.Printf("Found %d files to process (%d unrecognized)", len(fileInfos), len(unrecognized))
	return fileInfos, unrecognized, nil
}

// Run loads the given files and returns the per-file outcomes. Files are
// grouped by dependency rank: empresas and the code tables finish before
// the tables that reference them start. Within a rank, files are loaded
// concurrently up to the configured degree; within a file, batches are
// strictly sequential so the ledger is only updated once everything before
// it has committed.
func (s *Service) Run(ctx context.Context, files []models.FileInfo) models.RunSummary {
	var summary models.RunSummary

	for _, rank := range loadRanks(files) {
		var ranked []models.FileInfo
		for _, fi := range files {
			if spec, ok := schema.SpecFor(fi.Type); ok && spec.LoadRank == rank {
				ranked = append(ranked, fi)
			}
		}
		for _, report := range s.runPool(ctx, ranked) {
			summary.Add(report)
		}
	}
	return summary
}

// processFile runs the linear pipeline for one file: normalize, parse,
// transform, batch, upsert, ledger. Any failure leaves the ledger without a
// completion entry so the next run redoes the whole file.
func (s *Service) processFile(ctx context.Context, fi models.FileInfo) models.FileReport {
	report := models.FileReport{Name: fi.Name, Type: fi.Type}

	spec, ok := schema.SpecFor(fi.Type)
	if !ok {
		return failed(report, "spec lookup", fmt.Errorf("no table spec for file type %s", fi.Type))
	}

	sum, err := checksum.GetFileChecksum(fi.Path)
	if err != nil {
		return failed(report, "checksum", err)
	}

	done, err := s.store.IsFileCompleted(ctx, sum)
	if err != nil {
		return failed(report, "ledger lookup", err)
	}
	if done {
		log.Printf("File %s (checksum: %s) already loaded. Skipping.", fi.Name, sum)
		report.Status = models.StatusSkipped
		return report
	}

	if err := s.store.MarkFileProcessing(ctx, sum, fi.Name, fi.ByteSize); err != nil {
		return failed(report, "ledger update", err)
	}

	file, err := os.Open(fi.Path)
	if err != nil {
		return failed(report, "open", err)
	}
	defer file.Close()

	normalizer := encoding.NewNormalizer(file)
	scanner := parser.NewScanner(normalizer, len(spec.Columns))
	batch := make([]schema.Record, 0, s.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.store.BulkUpsert(ctx, spec, batch); err != nil {
			return err
		}
		report.Rows += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		raw, more := scanner.Next()
		if !more {
			break
		}
		record, coerced := spec.Transform(raw)
		report.CoercedNull += int64(coerced)
		batch = append(batch, record)

		if len(batch) >= s.cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return failed(report, "upsert", err)
			}
			if err := flush(); err != nil {
				return failed(report, "upsert", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return failed(report, "read", err)
	}
	if err := flush(); err != nil {
		return failed(report, "upsert", err)
	}

	report.Dropped = scanner.Dropped()
	report.Substitutions = normalizer.Substitutions()

	if err := s.store.MarkFileCompleted(ctx, sum, report.Rows); err != nil {
		return failed(report, "ledger completion", err)
	}

	report.Status = models.StatusCompleted
	return report
}

func failed(report models.FileReport, stage string, err error) models.FileReport {
	report.Status = models.StatusFailed
	report.Err = &models.FileError{FileName: report.Name, Stage: stage, Err: err}
	return report
}

// loadRanks returns the distinct ranks present in the file set, ascending.
func loadRanks(files []models.FileInfo) []int {
	seen := map[int]bool{}
	for _, fi := range files {
		if spec, ok := schema.SpecFor(fi.Type); ok {
			seen[spec.LoadRank] = true
		}
	}
	var ranks []int
	for rank := 0; len(ranks) < len(seen); rank++ {
		if seen[rank] {
			ranks = append(ranks, rank)
		}
	}
	return ranks
}
