package ingestion

import (
	"context"
	"log"
	"sync"

	"github.com/rfdados/cnpj-pipeline/internal/models"
)

// runPool loads a set of independent files through a bounded pool of file
// workers. Target tables are upserted by key, not appended, so there is no
// ordering requirement between files of the same rank.
func (s *Service) runPool(ctx context.Context, files []models.FileInfo) []models.FileReport {
	if len(files) == 0 {
		return nil
	}

	jobs := make(chan models.FileInfo)
	reports := make(chan models.FileReport, len(files))
	var wg sync.WaitGroup

	workers := s.cfg.Concurrency
	if workers > len(files) {
		workers = len(files)
	}

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go s.fileWorker(ctx, w, jobs, reports, &wg)
	}

	for _, fi := range files {
		jobs <- fi
	}
	close(jobs)
	wg.Wait()
	close(reports)

	out := make([]models.FileReport, 0, len(files))
	for report := range reports {
		out = append(out, report)
	}
	return out
}

func (s *Service) fileWorker(ctx context.Context, workerID int, jobs <-chan models.FileInfo, reports chan<- models.FileReport, wg *sync.WaitGroup) {
	defer wg.Done()
	for fi := range jobs {
		if err := ctx.Err(); err != nil {
			reports <- failed(models.FileReport{Name: fi.Name, Type: fi.Type}, "dispatch", err)
			continue
		}
		log.Printf("Worker %d: processing %s", workerID, fi.Name)
		report := s.processFile(ctx, fi)
		log.Printf("Worker %d: %s", workerID, report)
		reports <- report
	}
}
