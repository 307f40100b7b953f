package templates

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"vepbot/internal/jobs"
)

var ErrTemplateMissing = errors.New("template missing")

// Store is the persistence lookup used by the resolver.
type Store interface {
	GetTemplate(ctx context.Context, category string) (*Template, error)
}

// Resolver caches resolved template text per category for the life of the
// process. Entries are never invalidated; edits apply after a restart.
type Resolver struct {
	store Store

	mu    sync.Mutex
	cache map[jobs.Category]string
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, cache: map[jobs.Category]string{}}
}

func (r *Resolver) Resolve(ctx context.Context, category jobs.Category) (string, error) {
	r.mu.Lock()
	cached := r.cache[category]
	r.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	row, err := r.store.GetTemplate(ctx, string(category))
	if err != nil {
		return "", errors.Wrapf(err, "loading template %s", category)
	}

	var text string
	switch {
	case row != nil && strings.TrimSpace(row.Text) == "":
		// stored but blank: sending is blocked for this category
		return "", errors.WithDetail(
			errors.Wrapf(ErrTemplateMissing, "template %s is blank", category),
			"a blank stored template cancels delivery; fill it in to resume")
	case row != nil:
		text = row.Text
	default:
		def, ok := defaults[category]
		if !ok || strings.TrimSpace(def) == "" {
			return "", errors.Wrapf(ErrTemplateMissing, "no template for category %q", category)
		}
		text = def
	}

	r.mu.Lock()
	r.cache[category] = text
	r.mu.Unlock()
	return text, nil
}

// Default returns the built-in text for category.
func Default(category jobs.Category) (string, bool) {
	t, ok := defaults[category]
	return t, ok
}

var defaults = map[jobs.Category]string{
	jobs.CategoryMonotributo: "Hola {nombre}! Te enviamos el VEP de monotributo de {mes_anio}. " +
		"Recordá que vence el {caducate}.\\n\\n",
	jobs.CategoryAutonomos: "Hola {nombre}! Adjuntamos el VEP de autónomos correspondiente a {mes_anio}. " +
		"El vencimiento es el {caducate}.\\n\\n",
	jobs.CategoryDomestica: "Hola {nombre}! Te compartimos el VEP de servicio doméstico de {mes_anio}, " +
		"con vencimiento el {caducate}.\\n\\n",
}
