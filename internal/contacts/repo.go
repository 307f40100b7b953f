package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("contact not found")
	ErrInvalid  = errors.New("invalid contact")
)

type Repo struct {
	DB *gorm.DB
}

func (r *Repo) Create(ctx context.Context, c *Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" || c.Phone == "" {
		return errors.Wrap(ErrInvalid, "name and phone are required")
	}
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *Repo) List(ctx context.Context) ([]Contact, error) {
	var out []Contact
	err := r.DB.WithContext(ctx).Order("name asc, id asc").Find(&out).Error
	return out, err
}

// TouchLastExecution stamps the last successful delivery. Recipients with no
// directory entry are ignored.
func (r *Repo) TouchLastExecution(ctx context.Context, id uint64, at time.Time) error {
	return r.DB.WithContext(ctx).Exec(`update contacts set last_execution = ? where id = ?`, at, id).Error
}
