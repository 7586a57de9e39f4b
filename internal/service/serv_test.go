package service_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/bookshop/internal/domain/models"
	"github.com/linemk/bookshop/internal/gateway"
	"github.com/linemk/bookshop/internal/lock"
	"github.com/linemk/bookshop/internal/notify"
	"github.com/linemk/bookshop/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ---- книги ----

type fakeBookRepo struct {
	books map[int64]*models.Book
}

var _ storage.BookStorage = (*fakeBookRepo)(nil)

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: map[int64]*models.Book{
		1: {ID: 1, Title: "Dom Casmurro", Author: "Machado de Assis", Price: price("10.00"), Stock: 10},
		2: {ID: 2, Title: "Vidas Secas", Author: "Graciliano Ramos", Price: price("5.50"), Stock: 10},
	}}
}

func (f *fakeBookRepo) GetBookByID(ctx context.Context, id int64) (*models.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, storage.ErrBookNotFound
	}
	return b, nil
}

// ---- корзина ----

type fakeCartRepo struct {
	books  *fakeBookRepo
	items  map[int64]map[int64]*models.CartItem // userID -> bookID -> строка
	nextID int64
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo(books *fakeBookRepo) *fakeCartRepo {
	return &fakeCartRepo{books: books, items: map[int64]map[int64]*models.CartItem{}}
}

func (f *fakeCartRepo) withPrice(item *models.CartItem) *models.CartItem {
	out := *item
	if b, ok := f.books.books[item.BookID]; ok {
		out.BookTitle = b.Title
		out.UnitPrice = b.Price
	}
	return &out
}

func (f *fakeCartRepo) UpsertItem(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error) {
	if _, ok := f.books.books[bookID]; !ok {
		return nil, storage.ErrBookNotFound
	}
	if f.items[userID] == nil {
		f.items[userID] = map[int64]*models.CartItem{}
	}
	item, ok := f.items[userID][bookID]
	if !ok {
		f.nextID++
		item = &models.CartItem{ID: f.nextID, UserID: userID, BookID: bookID}
		f.items[userID][bookID] = item
	}
	item.Quantity += qty
	return f.withPrice(item), nil
}

func (f *fakeCartRepo) ListByUser(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	out := []*models.CartItem{}
	for _, item := range f.items[userID] {
		out = append(out, f.withPrice(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCartRepo) SetQuantity(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error) {
	item, ok := f.items[userID][bookID]
	if !ok {
		return nil, storage.ErrCartItemNotFound
	}
	item.Quantity = qty
	return f.withPrice(item), nil
}

func (f *fakeCartRepo) DeleteItem(ctx context.Context, userID, bookID int64) (*models.CartItem, error) {
	item, ok := f.items[userID][bookID]
	if !ok {
		return nil, storage.ErrCartItemNotFound
	}
	delete(f.items[userID], bookID)
	return f.withPrice(item), nil
}

func (f *fakeCartRepo) ClearByUser(ctx context.Context, userID int64) (int64, error) {
	n := int64(len(f.items[userID]))
	delete(f.items, userID)
	return n, nil
}

func (f *fakeCartRepo) LockByUserTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error) {
	return f.ListByUser(ctx, userID)
}

func (f *fakeCartRepo) DeleteItemsTx(ctx context.Context, tx *sql.Tx, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		for userID, lines := range f.items {
			for bookID, item := range lines {
				if item.ID == id {
					delete(f.items[userID], bookID)
					n++
				}
			}
		}
	}
	return n, nil
}

// ---- заказы ----

type fakeOrderRepo struct {
	orders     map[int64]*models.Order
	nextID     int64
	addItemErr error
	advanceErr error
	lastFilter storage.OrderFilter
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]*models.Order{}}
}

// seed добавляет заказ с позициями по ценам вида "10.00"
func (f *fakeOrderRepo) seed(userID int64, status models.OrderStatus, prices ...string) *models.Order {
	f.nextID++
	o := &models.Order{ID: f.nextID, UserID: userID, Status: status, Items: []*models.OrderItem{}, CreatedAt: time.Now()}
	for i, p := range prices {
		o.Items = append(o.Items, &models.OrderItem{ID: int64(i + 1), OrderID: o.ID, BookID: int64(i + 1), Quantity: 1, UnitPrice: price(p)})
	}
	f.orders[o.ID] = o
	return o
}

func (f *fakeOrderRepo) userOrders(userID int64) []*models.Order {
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, userID int64, status models.OrderStatus) (*models.Order, error) {
	o := f.seed(userID, status)
	cp := *o
	cp.Items = []*models.OrderItem{}
	return &cp, nil
}

func (f *fakeOrderRepo) AddItemTx(ctx context.Context, tx *sql.Tx, orderID, bookID int64, qty int, unitPrice decimal.Decimal) (*models.OrderItem, error) {
	if f.addItemErr != nil {
		return nil, f.addItemErr
	}
	item := &models.OrderItem{ID: bookID, OrderID: orderID, BookID: bookID, Quantity: qty, UnitPrice: unitPrice}
	f.orders[orderID].Items = append(f.orders[orderID].Items, item)
	return item, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return f.GetOrderByID(ctx, id)
}

func (f *fakeOrderRepo) ListByUser(ctx context.Context, userID int64, filter storage.OrderFilter) ([]*models.Order, error) {
	f.lastFilter = filter
	out := []*models.Order{}
	for _, o := range f.userOrders(userID) {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, o)
		}
	}
	if filter.Newest {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus) error {
	o, ok := f.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeOrderRepo) AdvanceStatus(ctx context.Context, id int64, from, to models.OrderStatus) (bool, error) {
	if f.advanceErr != nil {
		return false, f.advanceErr
	}
	o, ok := f.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (f *fakeOrderRepo) StatsByUser(ctx context.Context, userID int64) ([]storage.StatusStat, error) {
	byStatus := map[models.OrderStatus]*storage.StatusStat{}
	var out []storage.StatusStat
	for _, o := range f.userOrders(userID) {
		st, ok := byStatus[o.Status]
		if !ok {
			st = &storage.StatusStat{Status: o.Status, Spent: decimal.Zero}
			byStatus[o.Status] = st
		}
		st.Count++
		st.Spent = st.Spent.Add(o.Total())
	}
	for _, st := range byStatus {
		out = append(out, *st)
	}
	return out, nil
}

// ---- платежи ----

type fakePaymentRepo struct {
	orders    *fakeOrderRepo
	payments  map[int64]*models.Payment
	nextID    int64
	updateErr error
	// updateFails — сколько ближайших UpdateResult вернут updateErr
	updateFails int
	updateCalls int
}

var _ storage.PaymentStorage = (*fakePaymentRepo)(nil)

func newFakePaymentRepo(orders *fakeOrderRepo) *fakePaymentRepo {
	return &fakePaymentRepo{orders: orders, payments: map[int64]*models.Payment{}}
}

func (f *fakePaymentRepo) CreatePaymentTx(ctx context.Context, tx *sql.Tx, p *models.Payment) (*models.Payment, error) {
	if _, err := f.FindLiveByOrderTx(ctx, tx, p.OrderID); err == nil {
		return nil, storage.ErrLivePaymentExists
	}
	f.nextID++
	cp := *p
	cp.ID = f.nextID
	f.payments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakePaymentRepo) FindLiveByOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.OrderID == orderID && p.Status.IsLive() {
			return p, nil
		}
	}
	return nil, storage.ErrPaymentNotFound
}

func (f *fakePaymentRepo) UpdateResult(ctx context.Context, id int64, status models.PaymentStatus, reference, message string) (*models.Payment, error) {
	f.updateCalls++
	if f.updateErr != nil && f.updateFails > 0 {
		f.updateFails--
		return nil, f.updateErr
	}
	p, ok := f.payments[id]
	if !ok {
		return nil, storage.ErrPaymentNotFound
	}
	p.Status, p.GatewayReference, p.Message = status, reference, message
	out := *p
	return &out, nil
}

func (f *fakePaymentRepo) GetPaymentForUser(ctx context.Context, id, userID int64) (*models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, storage.ErrPaymentNotFound
	}
	o, ok := f.orders.orders[p.OrderID]
	if !ok || o.UserID != userID {
		return nil, storage.ErrPaymentNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakePaymentRepo) ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error) {
	out := []*models.Payment{}
	for _, p := range f.payments {
		if p.OrderID == orderID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ---- инфраструктура ----

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

var _ lock.Locker = (*fakeLocker)(nil)

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) Lock(ctx context.Context, key string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, lock.ErrLocked
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
	}, nil
}

type fakePublisher struct {
	events []notify.Event
	err    error
}

var _ notify.Publisher = (*fakePublisher)(nil)

func (f *fakePublisher) Publish(ctx context.Context, ev notify.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type failingGateway struct{}

var _ gateway.Authorizer = failingGateway{}

func (failingGateway) Authorize(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	return gateway.Result{}, errors.New("gateway timeout")
}
