// Package cart владеет корзиной клиента: мутации, пересчёт сумм и сохранение снапшотов.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/idgen"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
)

// StorageKey — ключ, под которым корзина лежит в KV-хранилище.
const StorageKey = "cart"

const (
	opAdd    = "add"
	opUpdate = "update"
	opRemove = "remove"
	opClear  = "clear"
	opSettle = "settle"
)

// Options задаёт необязательные зависимости Store.
type Options struct {
	IDs     idgen.Generator
	Metrics *metrics.CartMetrics
	Logger  *log.Entry
}

// Option настраивает Store.
type Option func(*Options)

// WithIDGenerator задаёт генератор идентификаторов позиций.
func WithIDGenerator(ids idgen.Generator) Option {
	return func(o *Options) { o.IDs = ids }
}

// WithMetrics подключает prometheus-метрики.
func WithMetrics(m *metrics.CartMetrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(o *Options) { o.Logger = logger }
}

// Store — единственный владелец и мутатор корзины.
type Store struct {
	mu    sync.Mutex
	cart  domain.Cart
	byKey map[domain.LineKey]int
	byID  map[int64]int
	rev   uint64

	writer  *snapshotWriter
	ids     idgen.Generator
	metrics *metrics.CartMetrics
	logger  *log.Entry
}

// New создаёт Store и восстанавливает корзину из kv. Ошибки чтения не фатальны:
// при отсутствии или повреждении блоба корзина начинается пустой.
func New(ctx context.Context, kv domain.KVStore, options ...Option) *Store {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	if opts.IDs == nil {
		opts.IDs = idgen.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "cart-store")
	}

	s := &Store{
		writer:  newSnapshotWriter(kv, StorageKey),
		ids:     opts.IDs,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}

	restored, err := load(ctx, kv)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.logger.WithError(err).Warn("persisted cart is unreadable, starting with empty cart")
			s.metrics.RecordRehydrateFallback()
		}
		restored = domain.Cart{}
	}
	s.cart = restored
	s.reindex()

	return s
}

// load читает и проверяет сохранённую корзину.
func load(ctx context.Context, kv domain.KVStore) (domain.Cart, error) {
	if kv == nil {
		return domain.Cart{}, domain.ErrKeyNotFound
	}
	blob, ok, err := kv.Get(ctx, StorageKey)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("%w: read: %v", domain.ErrPersistenceRead, err)
	}
	if !ok || len(blob) == 0 {
		return domain.Cart{}, domain.ErrKeyNotFound
	}
	return Decode(blob)
}

// Decode разбирает блоб корзины. Суммы пересчитываются из цены и количества;
// блоб с нарушенными инвариантами считается повреждённым.
func Decode(blob []byte) (domain.Cart, error) {
	var c domain.Cart
	if err := json.Unmarshal(blob, &c); err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %v", domain.ErrPersistenceRead, err)
	}
	c.Recalculate()
	if errs := c.ValidateInvariants(); len(errs) > 0 {
		return domain.Cart{}, fmt.Errorf("%w: %v", domain.ErrPersistenceRead, errors.Join(errs...))
	}
	for _, line := range c.Lines {
		if line.ID == 0 {
			return domain.Cart{}, fmt.Errorf("%w: line without id", domain.ErrPersistenceRead)
		}
	}
	if c.Lines == nil {
		c.Lines = []domain.CartLine{}
	}
	return c, nil
}

// Encode сериализует корзину в формат хранилища.
func Encode(c domain.Cart) ([]byte, error) {
	if c.Lines == nil {
		c.Lines = []domain.CartLine{}
	}
	return json.Marshal(c)
}

// AddItem добавляет позицию или увеличивает количество существующей с тем же
// (menuItemId, variationName).
func (s *Store) AddItem(ctx context.Context, candidate domain.LineCandidate) (domain.CartLine, error) {
	if candidate.Quantity <= 0 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}
	if candidate.UnitPrice.IsNegative() {
		return domain.CartLine{}, domain.ErrInvalidPrice
	}

	s.mu.Lock()
	key := domain.LineKey{MenuItemID: candidate.MenuItemID, VariationName: candidate.VariationName}
	var line domain.CartLine
	if pos, ok := s.byKey[key]; ok {
		existing := &s.cart.Lines[pos]
		existing.Quantity += candidate.Quantity
		if existing.Notes == "" {
			existing.Notes = candidate.Notes
		}
		if existing.VariationID == nil && candidate.VariationID != nil {
			id := *candidate.VariationID
			existing.VariationID = &id
		}
		existing.Recalculate()
		line = *existing
	} else {
		line = domain.CartLine{
			ID:            s.ids.Next(),
			MenuItemID:    candidate.MenuItemID,
			Name:          candidate.Name,
			VariationName: candidate.VariationName,
			Quantity:      candidate.Quantity,
			UnitPrice:     candidate.UnitPrice,
			Notes:         candidate.Notes,
		}
		if candidate.VariationID != nil {
			id := *candidate.VariationID
			line.VariationID = &id
		}
		line.Recalculate()
		s.cart.Lines = append(s.cart.Lines, line)
		s.byKey[key] = len(s.cart.Lines) - 1
		s.byID[line.ID] = len(s.cart.Lines) - 1
	}
	snap := s.commitLocked(opAdd)
	s.mu.Unlock()

	s.persist(ctx, snap)
	return line, nil
}

// AddMenuItem добавляет блюдо из каталога; цена берётся как base + priceDifference вариации.
func (s *Store) AddMenuItem(ctx context.Context, item domain.MenuItem, variationName string, quantity int, notes string) (domain.CartLine, error) {
	price, variation, err := item.UnitPrice(variationName)
	if err != nil {
		return domain.CartLine{}, err
	}
	candidate := domain.LineCandidate{
		MenuItemID:    item.ID,
		Name:          item.Name,
		VariationName: variationName,
		Quantity:      quantity,
		UnitPrice:     price,
		Notes:         notes,
	}
	if variation != nil {
		id := variation.ID
		candidate.VariationID = &id
	}
	return s.AddItem(ctx, candidate)
}

// UpdateQuantity задаёт новое количество позиции. quantity <= 0 удаляет позицию.
// Возвращает false, если позиции нет.
func (s *Store) UpdateQuantity(ctx context.Context, lineID int64, quantity int) bool {
	if quantity <= 0 {
		return s.RemoveItem(ctx, lineID)
	}

	s.mu.Lock()
	pos, ok := s.byID[lineID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	line := &s.cart.Lines[pos]
	line.Quantity = quantity
	line.Recalculate()
	snap := s.commitLocked(opUpdate)
	s.mu.Unlock()

	s.persist(ctx, snap)
	return true
}

// RemoveItem удаляет позицию. Возвращает false, если позиции нет.
func (s *Store) RemoveItem(ctx context.Context, lineID int64) bool {
	s.mu.Lock()
	pos, ok := s.byID[lineID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.cart.Lines = append(s.cart.Lines[:pos], s.cart.Lines[pos+1:]...)
	s.reindex()
	snap := s.commitLocked(opRemove)
	s.mu.Unlock()

	s.persist(ctx, snap)
	return true
}

// Clear очищает корзину.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.cart = domain.Cart{Lines: []domain.CartLine{}}
	s.reindex()
	snap := s.commitLocked(opClear)
	s.mu.Unlock()

	s.persist(ctx, snap)
}

// Settle убирает из корзины заказанные позиции после принятого заказа.
// Позиция, которую за время отправки увеличили, уменьшается на заказанное
// количество и получает новый ID. Позиции, добавленные за это время, остаются.
func (s *Store) Settle(ctx context.Context, ordered []domain.CartLine) {
	orderedQty := make(map[int64]int, len(ordered))
	for _, line := range ordered {
		orderedQty[line.ID] += line.Quantity
	}

	s.mu.Lock()
	kept := make([]domain.CartLine, 0, len(s.cart.Lines))
	changed := false
	for _, line := range s.cart.Lines {
		qty, ok := orderedQty[line.ID]
		if !ok {
			kept = append(kept, line)
			continue
		}
		changed = true
		if line.Quantity <= qty {
			continue
		}
		line.Quantity -= qty
		line.ID = s.ids.Next()
		line.Recalculate()
		kept = append(kept, line)
	}
	if !changed {
		s.mu.Unlock()
		return
	}
	s.cart.Lines = kept
	s.reindex()
	snap := s.commitLocked(opSettle)
	s.mu.Unlock()

	s.persist(ctx, snap)
}

// IsInCart сообщает, есть ли в корзине пара (menuItemID, variationName).
func (s *Store) IsInCart(menuItemID int64, variationName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byKey[domain.LineKey{MenuItemID: menuItemID, VariationName: variationName}]
	return ok
}

// Line возвращает позицию по ID.
func (s *Store) Line(lineID int64) (domain.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.byID[lineID]
	if !ok {
		return domain.CartLine{}, false
	}
	return s.cart.Clone().Lines[pos], true
}

// Snapshot возвращает копию текущей корзины.
func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Revision возвращает номер последней мутации.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// snapshot — состояние корзины, зафиксированное в момент мутации.
type snapshot struct {
	rev  uint64
	cart domain.Cart
}

// commitLocked пересчитывает итог, увеличивает ревизию и снимает снапшот. Требует s.mu.
func (s *Store) commitLocked(op string) snapshot {
	s.cart.Recalculate()
	s.rev++
	s.metrics.RecordCartMutation(op, len(s.cart.Lines))
	return snapshot{rev: s.rev, cart: s.cart.Clone()}
}

// persist пишет снапшот; ошибки логируются и не влияют на состояние в памяти.
func (s *Store) persist(ctx context.Context, snap snapshot) {
	if s.writer == nil {
		return
	}
	blob, err := Encode(snap.cart)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode cart snapshot")
		s.metrics.RecordPersistFailure()
		return
	}
	switch err := s.writer.write(ctx, snap.rev, blob); {
	case err == nil:
	case errors.Is(err, errStaleSnapshot):
		s.metrics.RecordPersistStaleSkip()
		s.logger.WithField("revision", snap.rev).Debug("skipped stale cart snapshot")
	default:
		s.metrics.RecordPersistFailure()
		s.logger.WithError(err).WithField("revision", snap.rev).Warn("failed to persist cart snapshot")
	}
}

// reindex перестраивает индексы по ключу и ID. Требует s.mu.
func (s *Store) reindex() {
	s.byKey = make(map[domain.LineKey]int, len(s.cart.Lines))
	s.byID = make(map[int64]int, len(s.cart.Lines))
	for i, line := range s.cart.Lines {
		s.byKey[line.Key()] = i
		s.byID[line.ID] = i
	}
}
