package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domcart "example.com/shoecart/internal/domain/cart"
	domproduct "example.com/shoecart/internal/domain/product"
)

const (
	MsgAddFailed    = "Erro na adição do produto"
	MsgRemoveFailed = "Erro na remoção do produto"
	MsgUpdateFailed = "Erro na alteração de quantidade do produto"
	MsgOutOfStock   = "Quantidade solicitada fora de estoque"
)

const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpUpdate = "update"

	OutcomeOK         = "ok"
	OutcomeNoop       = "noop"
	OutcomeOutOfStock = "out_of_stock"
	OutcomeMissing    = "missing_item"
	OutcomeInventory  = "inventory_error"
	OutcomeStorage    = "storage_error"
)

var (
	ErrInventory = domproduct.ErrInventoryUnavailable
	ErrStorage   = errors.New("cart storage failed")
)

type InventoryClient interface {
	domproduct.Inventory
}

type SnapshotStore interface {
	domcart.SnapshotStore
}

type Notifier interface {
	domcart.Notifier
}

// MetricsRecorder counts finished operations by outcome.
type MetricsRecorder interface {
	ObserveOperation(op, outcome string)
}

type Dependencies struct {
	Inventory InventoryClient
	Storage   SnapshotStore
	Notifier  Notifier
	Metrics   MetricsRecorder
	Logger    zerolog.Logger
}

// Store owns one shopper's cart and its persisted mirror.
type Store struct {
	key       string
	session   string
	inventory InventoryClient
	storage   SnapshotStore
	notifier  Notifier
	metrics   MetricsRecorder
	log       zerolog.Logger
	tracer    trace.Tracer

	mu   sync.Mutex
	cart domcart.Cart
}

// NewStore restores the cart saved under key. A missing or undecodable snapshot
// starts an empty cart. A failed read is returned as ErrStorage.
func NewStore(ctx context.Context, key string, deps Dependencies) (*Store, error) {
	s := &Store{
		key:       key,
		session:   domcart.SessionFromContext(ctx),
		inventory: deps.Inventory,
		storage:   deps.Storage,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		log:       deps.Logger.With().Str("cart_key", key).Logger(),
		tracer:    otel.Tracer("example.com/shoecart/internal/usecase/cart"),
		cart:      domcart.Cart{},
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	c, err := s.restore(ctx)
	if err != nil {
		return nil, err
	}
	s.cart = c
	return s, nil
}

func (s *Store) restore(ctx context.Context) (domcart.Cart, error) {
	data, err := s.storage.Load(ctx, s.key)
	if errors.Is(err, domcart.ErrSnapshotNotFound) {
		return domcart.Cart{}, nil
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("load cart snapshot")
		return nil, fmt.Errorf("%w: load snapshot: %w", ErrStorage, err)
	}
	c, err := domcart.Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("discard unreadable cart snapshot")
		return domcart.Cart{}, nil
	}
	return c, nil
}

func (s *Store) Key() string {
	return s.key
}

// Cart returns a copy of the committed cart.
func (s *Store) Cart() domcart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Store) Totals() domcart.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Totals()
}

func (s *Store) AddProduct(ctx context.Context, productID int64) error {
	ctx, span := s.startSpan(ctx, OpAdd, productID)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.cart
	existing := current.AmountOf(productID)

	stock, err := s.inventory.GetStock(ctx, productID)
	if err != nil {
		return s.fail(ctx, span, OpAdd, OutcomeInventory, MsgAddFailed, fmt.Errorf("%w: get stock %d: %w", ErrInventory, productID, err))
	}

	amount := existing + 1
	if !stock.Covers(amount) {
		return s.fail(ctx, span, OpAdd, OutcomeOutOfStock, MsgOutOfStock, domproduct.ErrOutOfStock)
	}

	var next domcart.Cart
	if existing > 0 {
		next, err = current.WithAmount(productID, amount)
		if err != nil {
			return s.fail(ctx, span, OpAdd, OutcomeMissing, MsgAddFailed, err)
		}
	} else {
		p, err := s.inventory.GetProduct(ctx, productID)
		if err != nil {
			return s.fail(ctx, span, OpAdd, OutcomeInventory, MsgAddFailed, fmt.Errorf("%w: get product %d: %w", ErrInventory, productID, err))
		}
		next = current.WithItem(domcart.NewItem(p, 1))
	}

	if err := s.commit(ctx, next); err != nil {
		return s.fail(ctx, span, OpAdd, OutcomeStorage, MsgAddFailed, err)
	}
	s.metrics.ObserveOperation(OpAdd, OutcomeOK)
	return nil
}

func (s *Store) RemoveProduct(ctx context.Context, productID int64) error {
	ctx, span := s.startSpan(ctx, OpRemove, productID)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.cart.Without(productID)
	if err != nil {
		return s.fail(ctx, span, OpRemove, OutcomeMissing, MsgRemoveFailed, err)
	}

	if err := s.commit(ctx, next); err != nil {
		return s.fail(ctx, span, OpRemove, OutcomeStorage, MsgRemoveFailed, err)
	}
	s.metrics.ObserveOperation(OpRemove, OutcomeOK)
	return nil
}

// UpdateProductAmount sets the amount of a product already in the cart.
// A non-positive amount is ignored; removal goes through RemoveProduct.
func (s *Store) UpdateProductAmount(ctx context.Context, productID, amount int64) error {
	if amount <= 0 {
		s.metrics.ObserveOperation(OpUpdate, OutcomeNoop)
		return nil
	}

	ctx, span := s.startSpan(ctx, OpUpdate, productID)
	defer span.End()
	span.SetAttributes(attribute.Int64("cart.amount", amount))

	s.mu.Lock()
	defer s.mu.Unlock()

	stock, err := s.inventory.GetStock(ctx, productID)
	if err != nil {
		return s.fail(ctx, span, OpUpdate, OutcomeInventory, MsgUpdateFailed, fmt.Errorf("%w: get stock %d: %w", ErrInventory, productID, err))
	}
	if !stock.Covers(amount) {
		return s.fail(ctx, span, OpUpdate, OutcomeOutOfStock, MsgOutOfStock, domproduct.ErrOutOfStock)
	}

	next, err := s.cart.WithAmount(productID, amount)
	if err != nil {
		return s.fail(ctx, span, OpUpdate, OutcomeMissing, MsgUpdateFailed, err)
	}

	if err := s.commit(ctx, next); err != nil {
		return s.fail(ctx, span, OpUpdate, OutcomeStorage, MsgUpdateFailed, err)
	}
	s.metrics.ObserveOperation(OpUpdate, OutcomeOK)
	return nil
}

// commit persists next and then swaps it in. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next domcart.Cart) error {
	data, err := domcart.Encode(next)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: save snapshot: %w", ErrStorage, err)
	}
	s.cart = next
	s.log.Debug().Int("lines", len(next)).Msg("cart committed")
	return nil
}

func (s *Store) fail(ctx context.Context, span trace.Span, op, outcome, message string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	s.metrics.ObserveOperation(op, outcome)
	s.log.Warn().Err(err).Str("op", op).Str("outcome", outcome).Msg("cart operation failed")
	if s.notifier != nil {
		s.notifier.Error(s.notifyContext(ctx), message)
	}
	return err
}

func (s *Store) notifyContext(ctx context.Context) context.Context {
	if s.session != "" && domcart.SessionFromContext(ctx) == "" {
		return domcart.WithSession(ctx, s.session)
	}
	return ctx
}

func (s *Store) startSpan(ctx context.Context, op string, productID int64) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "cart."+op, trace.WithAttributes(
		attribute.String("cart.key", s.key),
		attribute.Int64("cart.product_id", productID),
	))
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, string) {}
