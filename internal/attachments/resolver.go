package attachments

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"vepbot/internal/delivery"
	"vepbot/internal/jobs"
	"vepbot/internal/logger"
)

var ErrNoAttachments = errors.New("no attachments found")

// Fetcher loads one document by tax id from a storage folder.
type Fetcher interface {
	Fetch(ctx context.Context, cuit, folder string) ([]byte, error)
}

type Resolver struct {
	Fetcher Fetcher
	Log     *zap.SugaredLogger
}

func NewResolver(f Fetcher, log *zap.SugaredLogger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{Fetcher: f, Log: log}
}

// Resolve returns the primary recipient's document first (when found),
// followed by each linked recipient's document in list order. Linked tax ids
// equal to the primary, or repeated among linked entries, are fetched once.
func (r *Resolver) Resolve(ctx context.Context, rcp jobs.Recipient, folder string) ([]delivery.Document, error) {
	var (
		docs      []delivery.Document
		attempted []string
		seen      = map[string]struct{}{}
	)

	fetch := func(cuit, owner string) {
		attempted = append(attempted, cuit)
		seen[cuit] = struct{}{}
		data, err := r.Fetcher.Fetch(ctx, cuit, folder)
		if err != nil {
			r.Log.Warnw("attachment not available",
				logger.FieldRecipientID, rcp.ID,
				logger.FieldCuit, cuit,
				logger.FieldFolder, folder,
				logger.FieldError, err)
			return
		}
		docs = append(docs, delivery.Document{Cuit: cuit, Owner: owner, Data: data})
	}

	if rcp.Cuit != nil && strings.TrimSpace(*rcp.Cuit) != "" {
		fetch(*rcp.Cuit, rcp.Name)
	}

	for _, l := range rcp.Linked {
		if l.Cuit == "" {
			continue
		}
		if _, dup := seen[l.Cuit]; dup {
			continue
		}
		fetch(l.Cuit, l.Name)
	}

	if len(docs) == 0 {
		if len(attempted) == 0 {
			return nil, errors.Wrapf(ErrNoAttachments, "recipient %d in folder %q has no tax ids", rcp.ID, folder)
		}
		return nil, errors.Wrapf(ErrNoAttachments, "recipient %d in folder %q, tried: %s",
			rcp.ID, folder, strings.Join(attempted, ", "))
	}
	return docs, nil
}
