package templates

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vepbot/internal/jobs"
)

type mockStore struct {
	calls           int
	MockGetTemplate func(category string) (*Template, error)
}

func (m *mockStore) GetTemplate(ctx context.Context, category string) (*Template, error) {
	m.calls++
	return m.MockGetTemplate(category)
}

func TestResolve_StoredTemplateIsCached(t *testing.T) {
	store := &mockStore{MockGetTemplate: func(string) (*Template, error) {
		return &Template{Category: "AUTONOMOS", Text: "Hola {nombre}"}, nil
	}}
	r := NewResolver(store)

	for i := 0; i < 2; i++ {
		text, err := r.Resolve(context.Background(), jobs.CategoryAutonomos)
		require.NoError(t, err)
		assert.Equal(t, "Hola {nombre}", text)
	}
	assert.Equal(t, 1, store.calls)
}

func TestResolve_BlankStoredTemplateFailsEveryTime(t *testing.T) {
	store := &mockStore{MockGetTemplate: func(string) (*Template, error) {
		return &Template{Category: "AUTONOMOS", Text: "   \n"}, nil
	}}
	r := NewResolver(store)

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), jobs.CategoryAutonomos)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTemplateMissing))
	}
}

func TestResolve_FallsBackToDefaultAndCachesIt(t *testing.T) {
	store := &mockStore{MockGetTemplate: func(string) (*Template, error) { return nil, nil }}
	r := NewResolver(store)

	text, err := r.Resolve(context.Background(), jobs.CategoryMonotributo)
	require.NoError(t, err)
	def, _ := Default(jobs.CategoryMonotributo)
	assert.Equal(t, def, text)

	_, err = r.Resolve(context.Background(), jobs.CategoryMonotributo)
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestResolve_UnknownCategoryWithoutRowFails(t *testing.T) {
	store := &mockStore{MockGetTemplate: func(string) (*Template, error) { return nil, nil }}
	r := NewResolver(store)

	_, err := r.Resolve(context.Background(), jobs.Category("IIBB"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateMissing))
}

func TestResolve_StoreErrorPropagates(t *testing.T) {
	store := &mockStore{MockGetTemplate: func(string) (*Template, error) {
		return nil, errors.New("connection reset")
	}}
	r := NewResolver(store)

	_, err := r.Resolve(context.Background(), jobs.CategoryMonotributo)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTemplateMissing))
	assert.Contains(t, err.Error(), "connection reset")

	// failures are not cached
	store.MockGetTemplate = func(string) (*Template, error) { return &Template{Text: "ok"}, nil }
	text, err := r.Resolve(context.Background(), jobs.CategoryMonotributo)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}
