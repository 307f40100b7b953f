package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vepbot/internal/delivery"
	"vepbot/internal/logger"
)

// Store is the persistence surface the worker drives.
type Store interface {
	ListByStatus(ctx context.Context, status Status) ([]Job, error)
	Claim(ctx context.Context, id uint64) (*Job, error)
	UpdateStatus(ctx context.Context, id uint64, from, to Status, executedAt *time.Time, lastErr *string) error
	UpdateRecipientSent(ctx context.Context, jobID uint64, flags []SentFlag) error
	RecordDelivery(ctx context.Context, d *Delivery) error
}

type TemplateResolver interface {
	Resolve(ctx context.Context, category Category) (string, error)
}

type AttachmentResolver interface {
	Resolve(ctx context.Context, rcp Recipient, folder string) ([]delivery.Document, error)
}

type Renderer interface {
	Render(tmpl string, rcp Recipient, job Job) string
}

type Deliverer interface {
	IsConnected(ctx context.Context) bool
	Deliver(ctx context.Context, address, message string, docs []delivery.Document) ([]string, error)
}

// ContactTouch records the last successful delivery on the contact directory.
type ContactTouch interface {
	TouchLastExecution(ctx context.Context, recipientID uint64, at time.Time) error
}

// Worker polls for due jobs, claims them and delivers to every recipient in
// order. Only one pass runs at a time; manual triggers wait for a running tick.
type Worker struct {
	ID          string
	Repo        Store
	Templates   TemplateResolver
	Attachments AttachmentResolver
	Renderer    Renderer
	Gateway     Deliverer
	Contacts    ContactTouch

	Window   Window
	Interval time.Duration
	Pause    time.Duration
	Log      *zap.SugaredLogger

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	mu sync.Mutex
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log().Infow("scheduler started", "worker", w.ID, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			w.log().Infow("scheduler stopped", "worker", w.ID)
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log().Warnw("scheduler tick failed", logger.FieldError, err)
			}
		}
	}
}

// RunOnce selects executable jobs, claims and executes them sequentially.
// A failing job never stops the pass; the error returned is only for the
// candidate listing itself or a recovered panic.
func (w *Worker) RunOnce(ctx context.Context) (report *Report, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	report = &Report{RunID: uuid.NewString(), StartedAt: w.now(), Jobs: []JobReport{}}
	log := w.log().With(logger.FieldRunID, report.RunID)

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("scheduler pass panicked: %v", r)
			log.Errorw("scheduler pass panicked", logger.FieldError, r)
		}
		report.FinishedAt = w.now()
	}()

	pending, err := w.Repo.ListByStatus(ctx, StatusPending)
	if err != nil {
		return report, errors.Wrap(err, "listing pending jobs")
	}
	report.Pending = len(pending)

	now := w.now()
	for _, job := range pending {
		if !w.Window.Executable(job, now) {
			continue
		}
		report.Selected++

		claimed, err := w.Repo.Claim(ctx, job.ID)
		if err != nil {
			log.Warnw("claim failed", logger.FieldJobID, job.ID, logger.FieldError, err)
			continue
		}
		if claimed == nil {
			report.Skipped++
			log.Debugw("job already claimed", logger.FieldJobID, job.ID)
			continue
		}

		report.Jobs = append(report.Jobs, w.execute(ctx, *claimed, log))
	}

	log.Infow("scheduler pass done",
		"pending", report.Pending,
		"selected", report.Selected,
		"executed", len(report.Jobs))
	return report, nil
}

// execute runs one claimed job and moves it to FINISHED or ERROR.
func (w *Worker) execute(ctx context.Context, job Job, log *zap.SugaredLogger) JobReport {
	jr := JobReport{JobID: job.ID, Category: job.Category, Outcomes: []Outcome{}}
	log = log.With(logger.FieldJobID, job.ID, logger.FieldCategory, job.Category)
	log.Infow("job started", logger.FieldCount, len(job.Users))

	err := w.process(ctx, job, &jr, log)

	status := StatusFinished
	var lastErr *string
	if err != nil {
		status = StatusError
		msg := err.Error()
		lastErr = &msg
		jr.Error = msg
		log.Errorw("job failed", logger.FieldError, err)
	}

	executedAt := w.now()
	if uerr := w.Repo.UpdateStatus(context.WithoutCancel(ctx), job.ID, StatusRunning, status, &executedAt, lastErr); uerr != nil {
		log.Errorw("could not finalize job", logger.FieldStatus, status, logger.FieldError, uerr)
	}
	jr.Status = status

	log.Infow("job done", logger.FieldStatus, status, "sent", jr.Sent, "failed", jr.Failed)
	return jr
}

// process returns only job-level errors; recipient failures are recorded in jr.
func (w *Worker) process(ctx context.Context, job Job, jr *JobReport, log *zap.SugaredLogger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("job panicked: %v", r)
		}
	}()

	if !w.Gateway.IsConnected(ctx) {
		return errors.Wrap(delivery.ErrChannelDisconnected, "channel not connected at job start")
	}

	tmpl, err := w.Templates.Resolve(ctx, job.Category)
	if err != nil {
		return err
	}

	for i, rcp := range job.Users {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "job interrupted")
		}

		jr.add(w.deliverOne(ctx, job, rcp, tmpl, log))

		if i < len(job.Users)-1 {
			if err := w.sleep(ctx, w.Pause); err != nil {
				return errors.Wrap(err, "job interrupted")
			}
		}
	}
	return nil
}

func (w *Worker) deliverOne(ctx context.Context, job Job, rcp Recipient, tmpl string, log *zap.SugaredLogger) Outcome {
	out := Outcome{RecipientID: rcp.ID, Name: rcp.DisplayName()}
	address := rcp.Address()
	log = log.With(logger.FieldRecipientID, rcp.ID, logger.FieldAddress, address)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Newf("recipient panicked: %v", r)
			}
		}()

		docs, err := w.Attachments.Resolve(ctx, rcp, job.Folder)
		if err != nil {
			return err
		}
		msg := w.Renderer.Render(tmpl, rcp, job)
		out.Files, err = w.Gateway.Deliver(ctx, address, msg, docs)
		return err
	}()

	out.Sent = err == nil
	if err != nil {
		out.Error = err.Error()
		log.Warnw("delivery failed", logger.FieldError, err)
	} else {
		log.Infow("delivered", "files", out.Files)
	}

	// bookkeeping must survive a cancelled pass
	bctx := context.WithoutCancel(ctx)

	if perr := w.Repo.UpdateRecipientSent(bctx, job.ID, []SentFlag{{RecipientID: rcp.ID, Sent: out.Sent}}); perr != nil {
		log.Errorw("could not persist sent flag", logger.FieldError, perr)
	}

	d := &Delivery{JobID: job.ID, RecipientID: rcp.ID, Address: address, Sent: out.Sent, Files: out.Files}
	if err != nil {
		msg := out.Error
		d.Error = &msg
	}
	if perr := w.Repo.RecordDelivery(bctx, d); perr != nil {
		log.Warnw("could not record delivery", logger.FieldError, perr)
	}

	if out.Sent && w.Contacts != nil {
		if perr := w.Contacts.TouchLastExecution(bctx, rcp.ID, w.now()); perr != nil {
			log.Warnw("could not update last execution", logger.FieldError, perr)
		}
	}
	return out
}

func (w *Worker) log() *zap.SugaredLogger {
	if w.Log == nil {
		return logger.Nop()
	}
	return w.Log
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) error {
	if w.Sleep != nil {
		return w.Sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
