package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace/internal/entity"
	"marketplace/internal/payment"
	"marketplace/internal/repository"
)

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[int64]*entity.Product
}

func newFakeProductRepo(products ...*entity.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[int64]*entity.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) GetByID(_ context.Context, id int64) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) List(context.Context) ([]entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = int64(len(r.products) + 1)
	r.products[p.ID] = p
	return nil
}

type fakeBidRepo struct {
	mu       sync.Mutex
	bids     []*entity.AuctionBid
	nextID   int64
	products *fakeProductRepo
}

func newFakeBidRepo(products *fakeProductRepo) *fakeBidRepo {
	return &fakeBidRepo{products: products}
}

func (r *fakeBidRepo) PlaceWinningBid(_ context.Context, bid *entity.AuctionBid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products.mu.Lock()
	product, ok := r.products.products[bid.ProductID]
	r.products.mu.Unlock()
	if !ok {
		return repository.ErrNotFound
	}

	highest := product.StartingPrice
	for _, b := range r.bids {
		if b.ProductID == bid.ProductID && b.BidAmount > highest {
			highest = b.BidAmount
		}
	}
	if bid.BidAmount <= highest {
		return repository.ErrBidTooLow
	}

	r.nextID++
	bid.ID = r.nextID
	bid.Status = entity.BidWinning
	for _, b := range r.bids {
		if b.ProductID == bid.ProductID {
			b.Status = entity.BidOutbid
		}
	}
	cp := *bid
	r.bids = append(r.bids, &cp)

	r.products.mu.Lock()
	product.CurrentBid = bid.BidAmount
	product.HighestBidder = bid.UserID
	r.products.mu.Unlock()
	return nil
}

func (r *fakeBidRepo) ListByProduct(_ context.Context, productID int64) ([]entity.AuctionBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.AuctionBid
	for i := len(r.bids) - 1; i >= 0; i-- {
		if r.bids[i].ProductID == productID {
			out = append(out, *r.bids[i])
		}
	}
	return out, nil
}

func (r *fakeBidRepo) HighestByProduct(_ context.Context, productID int64) (*entity.AuctionBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var highest *entity.AuctionBid
	for _, b := range r.bids {
		if b.ProductID == productID && (highest == nil || b.BidAmount > highest.BidAmount) {
			highest = b
		}
	}
	if highest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *highest
	return &cp, nil
}

func (r *fakeBidRepo) ListByUser(_ context.Context, userID int64) ([]entity.AuctionBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.AuctionBid
	for i := len(r.bids) - 1; i >= 0; i-- {
		if r.bids[i].UserID == userID {
			out = append(out, *r.bids[i])
		}
	}
	return out, nil
}

func (r *fakeBidRepo) winningCount(productID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.bids {
		if b.ProductID == productID && b.Status == entity.BidWinning {
			n++
		}
	}
	return n
}

type fakeCartRepo struct {
	mu    sync.Mutex
	items map[int64]map[int64]int
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{items: make(map[int64]map[int64]int)}
}

func (r *fakeCartRepo) GetItems(_ context.Context, userID int64) ([]entity.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.CartLine
	for productID, qty := range r.items[userID] {
		out = append(out, entity.CartLine{ProductID: productID, Quantity: qty})
	}
	return out, nil
}

func (r *fakeCartRepo) AddItem(_ context.Context, userID, productID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items[userID] == nil {
		r.items[userID] = make(map[int64]int)
	}
	r.items[userID][productID] += quantity
	return nil
}

func (r *fakeCartRepo) UpdateQuantity(_ context.Context, userID, productID int64, quantity int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[userID][productID]; !ok {
		return false, nil
	}
	r.items[userID][productID] = quantity
	return true, nil
}

func (r *fakeCartRepo) RemoveItem(_ context.Context, userID, productID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[userID][productID]; !ok {
		return false, nil
	}
	delete(r.items[userID], productID)
	return true, nil
}

func (r *fakeCartRepo) MergeItems(_ context.Context, userID int64, lines []entity.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items[userID] == nil {
		r.items[userID] = make(map[int64]int)
	}
	for _, line := range lines {
		r.items[userID][line.ProductID] += line.Quantity
	}
	return nil
}

func (r *fakeCartRepo) Clear(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, userID)
	return nil
}

type fakeCouponRepo struct {
	mu     sync.Mutex
	byCode map[string]*entity.Coupon
}

func newFakeCouponRepo(coupons ...*entity.Coupon) *fakeCouponRepo {
	r := &fakeCouponRepo{byCode: make(map[string]*entity.Coupon)}
	for _, c := range coupons {
		r.byCode[c.Code] = c
	}
	return r
}

func (r *fakeCouponRepo) Create(_ context.Context, c *entity.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[c.Code]; ok {
		return repository.ErrDuplicate
	}
	c.ID = int64(len(r.byCode) + 1)
	r.byCode[c.Code] = c
	return nil
}

func (r *fakeCouponRepo) GetByCode(_ context.Context, code string) (*entity.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCouponRepo) ListByProduct(_ context.Context, productID int64) ([]entity.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Coupon
	for _, c := range r.byCode {
		if c.ProductID == productID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCouponRepo) ConsumeUsage(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byCode[code]
	if !ok || c.UsageCount >= c.MaxUsage {
		return false, nil
	}
	c.UsageCount++
	return true, nil
}

type fakeOrderRepo struct {
	mu       sync.Mutex
	orders   map[int64]*entity.Order
	nextID   int64
	products *fakeProductRepo
}

func newFakeOrderRepo(products *fakeProductRepo) *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]*entity.Order), products: products}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		o.Items[i].ID = int64(i + 1)
	}
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) get(id int64) (*entity.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *fakeOrderRepo) GetByPaymentRef(_ context.Context, ref string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.orders {
		if o.PaymentRef == ref {
			return r.get(id)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeOrderRepo) ListRecent(_ context.Context, limit int) ([]entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Order
	for _, o := range r.orders {
		out = append(out, *o)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListByBuyer(_ context.Context, buyerID int64) ([]entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Order
	for _, o := range r.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id int64, status entity.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	return nil
}

func (r *fakeOrderRepo) Settle(_ context.Context, o *entity.Order, paymentDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != entity.OrderShipping {
		return repository.ErrAlreadyProcessed
	}

	r.products.mu.Lock()
	defer r.products.mu.Unlock()
	for _, item := range stored.Items {
		p, ok := r.products.products[item.ProductID]
		if !ok || p.Quantity < item.Quantity {
			return &repository.InsufficientStockError{ProductID: item.ProductID}
		}
	}
	for _, item := range stored.Items {
		r.products.products[item.ProductID].Quantity -= item.Quantity
	}
	stored.Status = entity.OrderCompleted
	stored.PaymentDate = &paymentDate
	o.Status = entity.OrderCompleted
	o.PaymentDate = &paymentDate
	return nil
}

func (r *fakeOrderRepo) FindStalePending(_ context.Context, cutoff time.Time) ([]entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Order
	for _, o := range r.orders {
		if o.Status == entity.OrderShipping && o.OrderDate.Before(cutoff) {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeReturnRepo struct {
	mu       sync.Mutex
	requests map[int64]*entity.ReturnRequest
	nextID   int64
}

func newFakeReturnRepo() *fakeReturnRepo {
	return &fakeReturnRepo{requests: make(map[int64]*entity.ReturnRequest)}
}

func (r *fakeReturnRepo) Create(_ context.Context, req *entity.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeReturnRepo) GetByID(_ context.Context, id int64) (*entity.ReturnRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeReturnRepo) GetPendingByOrder(_ context.Context, orderID int64) (*entity.ReturnRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.OrderID == orderID && req.Status == entity.ReturnPending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeReturnRepo) ListByUser(_ context.Context, userID int64) ([]entity.ReturnRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.ReturnRequest
	for _, req := range r.requests {
		if req.UserID == userID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeReturnRepo) UpdateStatus(_ context.Context, id int64, status entity.ReturnStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	req.Status = status
	return nil
}

type fakeUserRepo struct {
	ids map[int64]bool
}

func (r *fakeUserRepo) Exists(_ context.Context, id int64) (bool, error) {
	return r.ids[id], nil
}

type fakeAddressRepo struct {
	addresses map[int64]*entity.Address
}

func (r *fakeAddressRepo) GetForUser(_ context.Context, id, userID int64) (*entity.Address, error) {
	a, ok := r.addresses[id]
	if !ok || a.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

type publishedEvent struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) byTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e)
		}
	}
	return out
}

type fakeProcessor struct {
	mu         sync.Mutex
	created    int
	captures   []string
	createErr  error
	captureErr error
}

func (p *fakeProcessor) CreateOrder(_ context.Context, amount int64, currency string) (*payment.PayableOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.created++
	ref := fmt.Sprintf("PAY-%d", p.created)
	return &payment.PayableOrder{ID: ref, ApprovalURL: "https://payments.test/approve/" + ref}, nil
}

func (p *fakeProcessor) CaptureOrder(_ context.Context, orderID string) (*payment.Capture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	p.captures = append(p.captures, orderID)
	return &payment.Capture{PayerID: "PAYER-1", Status: "COMPLETED"}, nil
}
