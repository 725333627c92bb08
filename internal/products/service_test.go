package products

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/store"
)

type fakeRemote struct {
	fail    bool
	nextID  int
	deletes []int
}

func (f *fakeRemote) CreateProduct(_ context.Context, p store.Product) (store.Product, error) {
	if f.fail {
		return store.Product{}, errors.New("network down")
	}
	p.ID = f.nextID
	return p, nil
}

func (f *fakeRemote) UpdateProduct(_ context.Context, p store.Product) error {
	if f.fail {
		return errors.New("network down")
	}
	return nil
}

func (f *fakeRemote) DeleteProduct(_ context.Context, id int) error {
	if f.fail {
		return errors.New("network down")
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeRemote) GetProduct(_ context.Context, id int) (store.Product, error) {
	return store.Product{}, errors.New("network down")
}

type fakeFallback struct {
	productSaves int
	assocSaves   int
}

func (f *fakeFallback) SaveProducts(_ context.Context, _ []store.Product) error {
	f.productSaves++
	return nil
}

func (f *fakeFallback) SaveAssociations(_ context.Context, _ []store.Association) error {
	f.assocSaves++
	return nil
}

func newTestService(remote *fakeRemote) (*Service, *store.Store, *fakeFallback) {
	st := store.New()
	fb := &fakeFallback{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(st, remote, fb, logger), st, fb
}

func TestCreateAdoptsServerID(t *testing.T) {
	svc, st, fb := newTestService(&fakeRemote{nextID: 42})
	p, err := svc.Create(context.Background(), CreateInput{Name: "Hot Dog Tradicional", Price: 12, Category: "Hot Dogs", Active: true})
	require.NoError(t, err)
	require.Equal(t, 42, p.ID)
	require.False(t, st.Degraded())
	require.Equal(t, 1, fb.productSaves)
}

func TestCreateSynthesizesIDWhenRemoteFails(t *testing.T) {
	svc, st, _ := newTestService(&fakeRemote{fail: true})
	st.UpsertProduct(store.Product{ID: 7, Name: "Batata Frita"})

	p, err := svc.Create(context.Background(), CreateInput{Name: "Hot Dog Bacon", Price: 15, Category: "Hot Dogs"})
	require.NoError(t, err)
	require.Equal(t, 8, p.ID, "local ids follow max+1")
	require.True(t, st.Degraded())
}

func TestCreateValidation(t *testing.T) {
	svc, st, fb := newTestService(&fakeRemote{})

	_, err := svc.Create(context.Background(), CreateInput{Name: "", Category: "Hot Dogs"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Hot Dog", Price: -1, Category: "Hot Dogs"})
	require.ErrorIs(t, err, shared.ErrValidation)

	require.Empty(t, st.Products())
	require.Zero(t, fb.productSaves)
}

func TestUpdateUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(&fakeRemote{})
	err := svc.Update(context.Background(), store.Product{ID: 99, Name: "X"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteCascadesAssociations(t *testing.T) {
	remote := &fakeRemote{}
	svc, st, fb := newTestService(remote)
	st.UpsertProduct(store.Product{ID: 1, Name: "Hot Dog"})
	st.UpsertStockItem(store.StockItem{ID: 1, Name: "Pão"})
	st.PutAssociation(store.Association{ProductID: 1, StockItemID: 1, QuantityPerUnit: 1})

	require.NoError(t, svc.Delete(context.Background(), 1))
	require.Empty(t, st.Products())
	require.Empty(t, st.Associations())
	require.Equal(t, []int{1}, remote.deletes)
	require.Equal(t, 1, fb.assocSaves)
}

func TestDeleteKeepsWorkingWhenRemoteFails(t *testing.T) {
	svc, st, _ := newTestService(&fakeRemote{fail: true})
	st.UpsertProduct(store.Product{ID: 1, Name: "Hot Dog"})

	require.NoError(t, svc.Delete(context.Background(), 1))
	require.Empty(t, st.Products())
	require.True(t, st.Degraded())
}

func TestGetServesLocalCopyOnFailure(t *testing.T) {
	svc, st, _ := newTestService(&fakeRemote{})
	st.UpsertProduct(store.Product{ID: 5, Name: "Refrigerante Lata"})

	p, err := svc.Get(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, "Refrigerante Lata", p.Name)

	_, err = svc.Get(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
