package checkout

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-reconciler/internal/ordernumber"
	"github.com/angelmondragon/checkout-reconciler/internal/orders"
	"github.com/angelmondragon/checkout-reconciler/internal/payments"
	"github.com/angelmondragon/checkout-reconciler/internal/tracker"
	dbpkg "github.com/angelmondragon/checkout-reconciler/pkg/db"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/dbtest"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox"
	"github.com/angelmondragon/checkout-reconciler/pkg/types"
)

var apiRefPattern = regexp.MustCompile(`^order_\d+_[a-z0-9]{6}$`)

type fixedNumbers struct {
	values []string
	calls  int
}

func (f *fixedNumbers) Generate(context.Context) (string, error) {
	v := f.values[f.calls%len(f.values)]
	f.calls++
	return v, nil
}

type env struct {
	db      *gorm.DB
	svc     *Service
	orders  *orders.Store
	tracker *tracker.Memory
}

func newEnv(t *testing.T, numbers numberGenerator) *env {
	t.Helper()
	db := dbtest.Open(t)
	e := &env{db: db, orders: orders.NewStore(db), tracker: tracker.NewMemory(0)}
	if numbers == nil {
		numbers = ordernumber.New(e.orders)
	}
	svc, err := NewService(ServiceParams{
		DB:       dbpkg.Wrap(db),
		Orders:   e.orders,
		Payments: payments.NewStore(db),
		Numbers:  numbers,
		Outbox:   outbox.NewService(outbox.NewRepository(db), logger.Nop()),
		Tracker:  e.tracker,
		Currency: "kes",
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)
	e.svc = svc
	return e
}

func validInput(provider enums.PaymentProvider) Input {
	return Input{
		UserID:   "user-1",
		Provider: provider,
		Subtotal: decimal.RequireFromString("100.00"),
		Tax:      decimal.RequireFromString("16.00"),
		Shipping: decimal.RequireFromString("4.50"),
		ShippingInfo: types.ShippingInfo{
			Name: "Jane", Phone: "0700000000", Line1: "Moi Ave", City: "Nairobi", Country: "KE",
		},
	}
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestInitiateCreatesOrderAndPayment(t *testing.T) {
	e := newEnv(t, nil)

	res, err := e.svc.Initiate(context.Background(), validInput(enums.ProviderCardGateway))
	require.NoError(t, err)

	assert.Regexp(t, apiRefPattern, res.APIRef)
	assert.Regexp(t, `^Order-\d{8}-\d{6}$`, res.OrderNumber)
	assert.True(t, res.Total.Equal(decimal.RequireFromString("120.50")))
	assert.Equal(t, "KES", res.Currency)
	assert.Equal(t, enums.PaymentStatusPending, res.Status)

	order, err := e.orders.FindByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentMethodCard, order.PaymentMethod)

	var payment models.Payment
	require.NoError(t, e.db.Where("id = ?", res.PaymentID).First(&payment).Error)
	require.NotNil(t, payment.OrderID)
	assert.Equal(t, res.OrderID, *payment.OrderID)
	assert.Equal(t, res.APIRef, payment.APIRef)

	var event models.OutboxEvent
	require.NoError(t, e.db.First(&event).Error)
	assert.Equal(t, enums.EventOrderCreated, event.EventType)
	assert.Equal(t, res.OrderID, event.AggregateID)
}

func TestInitiateSeedsTrackerForMobileMoney(t *testing.T) {
	e := newEnv(t, nil)

	res, err := e.svc.Initiate(context.Background(), validInput(enums.ProviderMobileMoney))
	require.NoError(t, err)

	rec, err := e.tracker.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.PaymentID, rec.PaymentID)
	assert.Equal(t, enums.PaymentStatusPending, rec.Status)
}

func TestInitiateDoesNotSeedTrackerForCard(t *testing.T) {
	e := newEnv(t, nil)

	res, err := e.svc.Initiate(context.Background(), validInput(enums.ProviderAggregator))
	require.NoError(t, err)

	_, err = e.tracker.Get(context.Background(), res.OrderID)
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestInitiateRetriesOrderNumberCollision(t *testing.T) {
	numbers := &fixedNumbers{values: []string{"Order-20250101-000001", "Order-20250101-000001", "Order-20250101-000002"}}
	e := newEnv(t, numbers)

	_, err := e.svc.Initiate(context.Background(), validInput(enums.ProviderCardGateway))
	require.NoError(t, err)

	res, err := e.svc.Initiate(context.Background(), validInput(enums.ProviderCardGateway))
	require.NoError(t, err)
	assert.Equal(t, "Order-20250101-000002", res.OrderNumber)
	assert.Equal(t, 3, numbers.calls)
	assert.Equal(t, int64(2), count(t, e.db, &models.Order{}))
	assert.Equal(t, int64(2), count(t, e.db, &models.Payment{}))
}

func TestInitiateLeavesNoOrderWhenPaymentFails(t *testing.T) {
	e := newEnv(t, nil)
	e.svc.newRef = func(time.Time) string { return "order_1700000000_fixed1" }

	_, err := e.svc.Initiate(context.Background(), validInput(enums.ProviderCardGateway))
	require.NoError(t, err)

	_, err = e.svc.Initiate(context.Background(), validInput(enums.ProviderCardGateway))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.CodeOf(err))
	assert.Equal(t, int64(1), count(t, e.db, &models.Order{}))
	assert.Equal(t, int64(1), count(t, e.db, &models.OutboxEvent{}))
}

func TestInitiateValidation(t *testing.T) {
	e := newEnv(t, nil)

	cases := map[string]func(*Input){
		"missing user":     func(in *Input) { in.UserID = " " },
		"unknown provider": func(in *Input) { in.Provider = "paypal" },
		"negative tax":     func(in *Input) { in.Tax = decimal.NewFromInt(-1) },
		"zero total":       func(in *Input) { in.Subtotal, in.Tax, in.Shipping = decimal.Zero, decimal.Zero, decimal.Zero },
		"foreign currency": func(in *Input) { in.Currency = "USD" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput(enums.ProviderCardGateway)
			mutate(&in)
			_, err := e.svc.Initiate(context.Background(), in)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
	assert.Equal(t, int64(0), count(t, e.db, &models.Order{}))
}

func TestNewAPIRefFormat(t *testing.T) {
	at := time.Unix(1700000000, 0)
	ref := NewAPIRef(at)
	assert.Regexp(t, `^order_1700000000_[a-z0-9]{6}$`, ref)
	assert.NotEqual(t, ref, NewAPIRef(at))
}
