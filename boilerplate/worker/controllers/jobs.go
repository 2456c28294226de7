package controllers

import (
	"context"
	"log"

	"packit-service/pkg/events"
	"packit-service/pkg/providers/pagure"
	"packit-service/pkg/worker"
)

// commitFlagger is implemented by dist-git projects.
type commitFlagger interface {
	SetCommitFlag(ctx context.Context, commit string, flag pagure.Flag) error
}

// HandleProjectEvent loads the package config of the repository the event
// points at and reports the jobs configured for its trigger.
func HandleProjectEvent(ctx context.Context, d *worker.Delivery) error {
	cfg, err := d.PackageConfig(ctx)
	if err != nil {
		log.Printf("topic=%s trigger=%s package config: %v", d.Topic, d.Trigger(), err)
		return err
	}
	jobs := cfg.JobsFor(d.Trigger().String())
	log.Printf("topic=%s trigger=%s upstream=%s jobs=%d", d.Topic, d.Trigger(), cfg.UpstreamProjectURL, len(jobs))
	for _, job := range jobs {
		log.Printf("job=%s trigger=%s", job.Job, job.Trigger)
	}
	return nil
}

// HandleDistGitCommit flags the pushed commit when it has jobs to run.
func HandleDistGitCommit(ctx context.Context, d *worker.Delivery) error {
	evt, ok := d.Event.(*events.DistGitEvent)
	if !ok {
		return HandleProjectEvent(ctx, d)
	}
	project, err := d.Project(ctx)
	if err != nil {
		return err
	}
	cfg, err := d.PackageConfig(ctx)
	if err != nil {
		log.Printf("dist-git %s@%s package config: %v", project.FullRepoName(), evt.Ref, err)
		return err
	}
	jobs := cfg.JobsFor(events.TriggerCommit.String())
	if len(jobs) == 0 {
		return nil
	}
	flagger, ok := project.(commitFlagger)
	if !ok {
		return nil
	}
	return flagger.SetCommitFlag(ctx, evt.Ref, pagure.Flag{
		Username: "packit",
		Comment:  "packit jobs scheduled",
		Status:   "pending",
		UID:      evt.MsgID,
	})
}

// HandleInstallation logs new installations waiting for approval.
func HandleInstallation(ctx context.Context, d *worker.Delivery) error {
	evt, ok := d.Event.(*events.InstallationEvent)
	if !ok {
		return nil
	}
	log.Printf("installation=%d account=%s status=%s", evt.InstallationID, evt.AccountLogin, evt.Status)
	return nil
}
