package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/store"
)

type fakeRemote struct {
	fail   bool
	nextID int
}

func (f *fakeRemote) CreateOrder(_ context.Context, o store.Order) (store.Order, error) {
	if f.fail {
		return store.Order{}, errors.New("network down")
	}
	o.ID = f.nextID
	return o, nil
}

func (f *fakeRemote) UpdateOrder(_ context.Context, o store.Order) error {
	if f.fail {
		return errors.New("network down")
	}
	return nil
}

func (f *fakeRemote) DeleteOrder(_ context.Context, id int) error {
	if f.fail {
		return errors.New("network down")
	}
	return nil
}

func (f *fakeRemote) GetOrder(_ context.Context, id int) (store.Order, error) {
	return store.Order{}, errors.New("network down")
}

type fakeFallback struct {
	saves int
}

func (f *fakeFallback) SaveOrders(_ context.Context, _ []store.Order) error {
	f.saves++
	return nil
}

type fakeDirectory struct {
	known      map[string]store.Client
	registered []string
	history    map[string][]int
	failReg    bool
}

func (d *fakeDirectory) ByName(name string) (store.Client, bool) {
	c, ok := d.known[name]
	return c, ok
}

func (d *fakeDirectory) Register(_ context.Context, name string) (store.Client, error) {
	if d.failReg {
		return store.Client{}, errors.New("network down")
	}
	c := store.Client{ID: "cli-" + name, Name: name}
	d.known[name] = c
	d.registered = append(d.registered, name)
	return c, nil
}

func (d *fakeDirectory) AppendOrderHistory(_ context.Context, clientID string, orderID int) error {
	d.history[clientID] = append(d.history[clientID], orderID)
	return nil
}

type fakeSales struct {
	recorded []store.Sale
}

func (f *fakeSales) Record(_ context.Context, sale store.Sale) (store.Sale, error) {
	sale.ID = len(f.recorded) + 1
	f.recorded = append(f.recorded, sale)
	return sale, nil
}

func newTestService(remote *fakeRemote) (*Service, *store.Store, *fakeDirectory, *fakeSales) {
	st := store.New()
	dir := &fakeDirectory{known: map[string]store.Client{}, history: map[string][]int{}}
	sales := &fakeSales{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(st, remote, &fakeFallback{}, dir, sales, logger)
	svc.now = func() time.Time { return time.Date(2025, 8, 30, 18, 0, 0, 0, time.UTC) }
	return svc, st, dir, sales
}

func hotDogOrder() CreateInput {
	return CreateInput{
		Table:      "Mesa 1",
		ClientName: "João Silva",
		Items: []ItemInput{
			{Name: "Hot Dog Tradicional", Quantity: 2, UnitPrice: 12},
			{Name: "Refrigerante Lata", Quantity: 1, UnitPrice: 6},
		},
	}
}

func TestCreateComputesTotalAndRegistersClient(t *testing.T) {
	svc, st, dir, _ := newTestService(&fakeRemote{nextID: 1})

	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)
	require.Equal(t, 1, o.ID)
	require.Equal(t, store.OrderStatusOpen, o.Status)
	require.InDelta(t, 30.0, o.Total, 0.0001)
	require.Equal(t, "cli-João Silva", o.ClientID)
	require.Equal(t, []string{"João Silva"}, dir.registered)
	require.Equal(t, []int{1}, dir.history["cli-João Silva"])
	require.Len(t, st.Orders(), 1)
}

func TestCreateReusesKnownClient(t *testing.T) {
	svc, _, dir, _ := newTestService(&fakeRemote{nextID: 1})
	dir.known["João Silva"] = store.Client{ID: "c1", Name: "João Silva"}

	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)
	require.Equal(t, "c1", o.ClientID)
	require.Empty(t, dir.registered)
	require.Equal(t, []int{1}, dir.history["c1"])
}

func TestCreateSurvivesRegistrationFailure(t *testing.T) {
	svc, st, dir, _ := newTestService(&fakeRemote{nextID: 1})
	dir.failReg = true

	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err, "a failed registration never blocks the comanda")
	require.Empty(t, o.ClientID)
	require.Len(t, st.Orders(), 1)
}

func TestCreateSynthesizesIDWhenRemoteFails(t *testing.T) {
	svc, st, _, _ := newTestService(&fakeRemote{fail: true})
	st.UpsertOrder(store.Order{ID: 9, Status: store.OrderStatusPaid})

	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)
	require.Equal(t, 10, o.ID, "local ids follow max+1")
	require.True(t, st.Degraded())
}

func TestCreateValidation(t *testing.T) {
	svc, st, _, _ := newTestService(&fakeRemote{nextID: 1})

	in := hotDogOrder()
	in.Items = nil
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = hotDogOrder()
	in.Items[0].Quantity = 0
	_, err = svc.Create(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidation)

	require.Empty(t, st.Orders())
}

func TestUpdateItemsRecomputesTotal(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeRemote{nextID: 1})
	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)

	updated, err := svc.UpdateItems(context.Background(), o.ID, []store.OrderItem{
		{Name: "Hot Dog Bacon", Quantity: 3, UnitPrice: 15},
	})
	require.NoError(t, err)
	require.InDelta(t, 45.0, updated.Total, 0.0001)

	// applying the same items again leaves the total unchanged
	updated, err = svc.UpdateItems(context.Background(), o.ID, updated.Items)
	require.NoError(t, err)
	require.InDelta(t, 45.0, updated.Total, 0.0001)
}

func TestUpdateItemsOnlyWhileOpen(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeRemote{nextID: 1})
	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = svc.UpdateItems(context.Background(), o.ID, []store.OrderItem{{Name: "X", Quantity: 1, UnitPrice: 1}})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestLifecycleTransitions(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeRemote{nextID: 1})
	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)

	// paying an open comanda is rejected, it must be closed first
	_, _, err = svc.Pay(context.Background(), PayInput{OrderID: o.ID, Method: store.PaymentPix})
	require.ErrorIs(t, err, ErrInvalidStatus)

	closed, err := svc.Close(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, store.OrderStatusClosed, closed.Status)

	// closing twice is rejected
	_, err = svc.Close(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)

	reopened, err := svc.Reopen(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, store.OrderStatusOpen, reopened.Status)

	_, err = svc.Close(context.Background(), o.ID)
	require.NoError(t, err)
	paid, _, err := svc.Pay(context.Background(), PayInput{OrderID: o.ID, Method: store.PaymentPix})
	require.NoError(t, err)
	require.Equal(t, store.OrderStatusPaid, paid.Status)

	// a paid comanda is final
	_, err = svc.Reopen(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, _, err = svc.Pay(context.Background(), PayInput{OrderID: o.ID, Method: store.PaymentPix})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestPayCashComputesChange(t *testing.T) {
	svc, _, _, sales := newTestService(&fakeRemote{nextID: 1})
	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), o.ID)
	require.NoError(t, err)

	paid, sale, err := svc.Pay(context.Background(), PayInput{OrderID: o.ID, Method: store.PaymentCash, AmountReceived: 50})
	require.NoError(t, err)
	require.InDelta(t, 50.0, paid.AmountReceived, 0.0001)
	require.InDelta(t, 20.0, paid.Change, 0.0001)
	require.InDelta(t, 30.0, sale.Amount, 0.0001)
	require.Equal(t, "dinheiro", sale.PaymentMethod)
	require.Len(t, sales.recorded, 1, "exactly one sale per payment")
	require.Len(t, sale.Items, 2)
}

func TestPayCashRequiresAmount(t *testing.T) {
	svc, _, _, sales := newTestService(&fakeRemote{nextID: 1})
	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), o.ID)
	require.NoError(t, err)

	_, _, err = svc.Pay(context.Background(), PayInput{OrderID: o.ID, Method: store.PaymentCash})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, sales.recorded)

	// exact payment produces zero change
	_, sale, err := svc.Pay(context.Background(), PayInput{OrderID: o.ID, Method: store.PaymentCash, AmountReceived: 30})
	require.NoError(t, err)
	require.InDelta(t, 30.0, sale.Amount, 0.0001)
	paid, _ := svc.GetLocal(o.ID)
	require.InDelta(t, 0.0, paid.Change, 0.0001)
}

func TestPayNonCashRecordsTotalAsReceived(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeRemote{nextID: 1})
	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), o.ID)
	require.NoError(t, err)

	paid, _, err := svc.Pay(context.Background(), PayInput{OrderID: o.ID, Method: store.PaymentCredit, AmountReceived: 999})
	require.NoError(t, err)
	require.InDelta(t, 30.0, paid.AmountReceived, 0.0001)
	require.InDelta(t, 0.0, paid.Change, 0.0001)
}

func TestDelete(t *testing.T) {
	svc, st, _, _ := newTestService(&fakeRemote{nextID: 1})
	o, err := svc.Create(context.Background(), hotDogOrder())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), o.ID))
	require.Empty(t, st.Orders())

	err = svc.Delete(context.Background(), o.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
