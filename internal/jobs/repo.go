package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrJobRunning        = errors.New("job is running")
)

type Repo struct {
	DB *gorm.DB
}

func (r *Repo) Create(ctx context.Context, j *Job) error {
	if j.Status == "" {
		j.Status = StatusPending
	}
	if j.Users == nil {
		j.Users = []Recipient{}
	}
	return r.DB.WithContext(ctx).Create(j).Error
}

func (r *Repo) Get(ctx context.Context, id uint64) (*Job, error) {
	var j Job
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

// List returns the most recent jobs first, optionally filtered by status.
func (r *Repo) List(ctx context.Context, status *Status, limit int) ([]Job, error) {
	q := r.DB.WithContext(ctx).Model(&Job{})
	if status != nil {
		q = q.Where("status = ?", string(*status))
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []Job
	err := q.Order("execution_time desc, id desc").Limit(limit).Find(&out).Error
	return out, err
}

// Delete removes a job unless it is being executed.
func (r *Repo) Delete(ctx context.Context, id uint64) error {
	res := r.DB.WithContext(ctx).Exec(`delete from jobs where id = ? and status <> ?`, id, string(StatusRunning))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrJobRunning
}

// ListByStatus returns candidates in execution order.
func (r *Repo) ListByStatus(ctx context.Context, status Status) ([]Job, error) {
	var out []Job
	err := r.DB.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("execution_time asc, id asc").
		Find(&out).Error
	return out, err
}

// Claim moves one job from PENDING to RUNNING in a single conditional
// update. It returns nil, nil when the job was already claimed or is no
// longer pending.
func (r *Repo) Claim(ctx context.Context, id uint64) (*Job, error) {
	var job Job
	err := r.DB.WithContext(ctx).Raw(`
update jobs
set status = ?, updated_at = now()
where id = ? and status = ?
returning *
`, string(StatusRunning), id, string(StatusPending)).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

// UpdateStatus applies a validated transition, conditional on the job still
// being in from.
func (r *Repo) UpdateStatus(ctx context.Context, id uint64, from, to Status, executedAt *time.Time, lastErr *string) error {
	if !from.CanTransitionTo(to) {
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
	}
	res := r.DB.WithContext(ctx).Exec(`
update jobs
set status = ?, executed_at = ?, last_error = ?, updated_at = now()
where id = ? and status = ?
`, string(to), executedAt, lastErr, id, string(from))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrIllegalTransition, "job %d is not %s", id, from)
	}
	return nil
}

// UpdateRecipientSent rewrites the sent flags on the embedded recipients.
// Flags match by recipient id; Users order is preserved.
func (r *Repo) UpdateRecipientSent(ctx context.Context, jobID uint64, flags []SentFlag) error {
	if len(flags) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var j Job
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "users").
			Where("id = ?", jobID).
			First(&j).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		users := ApplySentFlags(j.Users, flags)
		return tx.Model(&Job{}).Where("id = ?", jobID).Updates(map[string]any{
			"users":      users,
			"updated_at": time.Now(),
		}).Error
	})
}

// ApplySentFlags returns users with Sent updated from flags.
func ApplySentFlags(users []Recipient, flags []SentFlag) []Recipient {
	byID := make(map[uint64]bool, len(flags))
	for _, f := range flags {
		byID[f.RecipientID] = f.Sent
	}
	out := make([]Recipient, len(users))
	copy(out, users)
	for i := range out {
		if sent, ok := byID[out[i].ID]; ok {
			out[i].Sent = sent
		}
	}
	return out
}

func (r *Repo) RecordDelivery(ctx context.Context, d *Delivery) error {
	if d.Files == nil {
		d.Files = []string{}
	}
	return r.DB.WithContext(ctx).Create(d).Error
}

func (r *Repo) ListDeliveries(ctx context.Context, jobID uint64) ([]Delivery, error) {
	var out []Delivery
	err := r.DB.WithContext(ctx).Where("job_id = ?", jobID).Order("id asc").Find(&out).Error
	return out, err
}

// CountByStatus returns a count for every status, zero included.
func (r *Repo) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := r.DB.WithContext(ctx).Raw(`select status, count(*) as count from jobs group by status`).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[Status]int64, len(AllStatuses))
	for _, s := range AllStatuses {
		out[s] = 0
	}
	for _, r := range rows {
		out[Status(r.Status)] = r.Count
	}
	return out, nil
}
