package pipeline

import (
	"context"
	"fmt"

	"github.com/eunmann/vuln-stats/internal/logctx"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// AppUpdater persists changes to a tracked app. *store.SQLStore implements it.
type AppUpdater interface {
	UpdateApp(ctx context.Context, app store.App) error
}

// JobMetadata links apps to their scan job and copies the package and
// version names reported by the scanner. Run it over the apps that still
// lack metadata.
type JobMetadata struct {
	apps    AppUpdater
	updated int
	rec     recorder
}

func NewJobMetadata(apps AppUpdater) *JobMetadata {
	return &JobMetadata{apps: apps}
}

func (p *JobMetadata) Name() string { return NameJobMetadata }

// ProcessJob updates app once the job has finished and carries metadata.
// Jobs without either are left alone.
func (p *JobMetadata) ProcessJob(ctx context.Context, app store.App, job *vusc.Job) error {
	if job.Status == nil || job.Status.FinishDate == nil || job.Metadata == nil {
		log := logctx.FromContext(ctx)
		log.Debug().Msg("job lacks finish date or metadata")
		return nil
	}

	app.JobID = job.ID
	if job.Metadata.Type == vusc.MetadataAPK {
		app.PackageName = job.Metadata.PackageName
		app.VersionName = job.Metadata.VersionName
	}
	if err := p.apps.UpdateApp(ctx, app); err != nil {
		return fmt.Errorf("update app %d: %w", app.ID, err)
	}
	p.updated++
	p.rec.written.Increment(store.TableApps)
	return nil
}

func (p *JobMetadata) Finish(ctx context.Context) error {
	log := logctx.FromContext(ctx)
	log.Info().Int("apps", p.updated).Msg("associated scan jobs with apps")
	return nil
}

func (p *JobMetadata) Stats() Stats { return p.rec.stats(nil) }
