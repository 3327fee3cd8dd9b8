package services

import (
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/tiendasmegan/megan-bot-backend/internal/catalog"
	"github.com/tiendasmegan/megan-bot-backend/internal/models"
	"github.com/tiendasmegan/megan-bot-backend/internal/storage"
	"github.com/tiendasmegan/megan-bot-backend/internal/utils"
)

var (
	// A run of 3+ letters reads as "looks like it has a name"
	nameishRegex = regexp.MustCompile(`(?i)[a-záéíóúñ]{3,}`)
	dniRegex     = regexp.MustCompile(`\d{8}`)
)

// PurchaseFields is the structured result of the free-text heuristic
type PurchaseFields struct {
	Name  string
	DNI   string
	Place string
}

// ParsePurchaseFields runs the completeness heuristic over the whole
// accumulated buffer. Lima needs a name-looking run and two non-blank
// lines; Provincia additionally needs an 8-digit DNI and a third line.
//
// Extraction is positional: first line is taken as the name, the DNI line is
// excluded from the place. A user typing data out of order is extracted
// wrong without complaint; the confirmation summary is their chance to
// notice.
func ParsePurchaseFields(buffer string, region models.Region) (PurchaseFields, bool) {
	var lines []string
	for _, line := range strings.Split(buffer, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if !nameishRegex.MatchString(buffer) || len(lines) < 2 {
		return PurchaseFields{}, false
	}

	dni := ""
	if region == models.RegionProvincia {
		dni = dniRegex.FindString(buffer)
		if dni == "" || len(lines) < 3 {
			return PurchaseFields{}, false
		}
	}

	fields := PurchaseFields{Name: lines[0], DNI: dni}

	var rest []string
	for _, line := range lines[1:] {
		if dni != "" && dniRegex.FindString(line) == dni {
			continue
		}
		rest = append(rest, line)
	}
	fields.Place = strings.Join(rest, ", ")

	return fields, true
}

// OrderService accumulates purchase data and finalizes orders
type OrderService struct {
	sessions *SessionManager
	store    storage.Store
	sender   Sender
	catalog  *catalog.Catalog
}

// NewOrderService creates the purchase-flow service
func NewOrderService(sessions *SessionManager, store storage.Store, sender Sender, cat *catalog.Catalog) *OrderService {
	return &OrderService{
		sessions: sessions,
		store:    store,
		sender:   sender,
		catalog:  cat,
	}
}

// Begin puts a session into the data-collection state for a region and
// prompts for the required fields
func (o *OrderService) Begin(sess *Session, region models.Region) {
	sess.State = StateAwaitingOrderData
	sess.Region = region
	sess.PendingOrderText = ""
	SendAll(o.sender, sess.UserID, OrderDataPrompt(region))
}

// Append adds one inbound message to the order buffer and either finalizes
// the order or restarts the grace countdown. Called with the session locked.
func (o *OrderService) Append(sess *Session, text string) {
	if sess.PendingOrderText == "" {
		sess.PendingOrderText = text
	} else {
		sess.PendingOrderText += "\n" + text
	}

	fields, complete := ParsePurchaseFields(sess.PendingOrderText, sess.Region)
	if complete {
		o.sessions.StopGrace(sess)
		o.Finalize(sess, fields)
		return
	}

	o.sessions.StartGrace(sess, o.onGraceExpired)
}

// onGraceExpired fires when an incomplete buffer got no new fragments
func (o *OrderService) onGraceExpired(userID string) {
	sess, ok := o.sessions.Peek(userID)
	if !ok {
		return
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.State != StateAwaitingOrderData {
		return
	}

	// One last check: the final fragment may have completed the buffer
	if fields, complete := ParsePurchaseFields(sess.PendingOrderText, sess.Region); complete {
		o.Finalize(sess, fields)
		return
	}

	sess.State = StateNone
	sess.Region = ""
	sess.PendingOrderText = ""
	SendAll(o.sender, userID, models.Text(msgMissingData), MainMenu())
}

// Finalize turns the collected buffer into a persisted order and branches on
// region. Called with the session locked.
func (o *OrderService) Finalize(sess *Session, fields PurchaseFields) {
	if sess.ActiveOrder == nil || sess.ActiveOrder.ProductCode == "" {
		// Never proceed with undefined data: ask which product instead
		sess.State = StateNone
		sess.Region = ""
		sess.PendingOrderText = ""
		SendAll(o.sender, sess.UserID, models.Text(msgWhichProduct))
		return
	}

	product, found := o.catalog.FindProduct(sess.ActiveOrder.ProductCode)
	if !found {
		sess.State = StateNone
		sess.Region = ""
		sess.PendingOrderText = ""
		SendAll(o.sender, sess.UserID, models.Text(msgModelNotFound))
		return
	}

	order := &models.Order{
		Reference:    utils.GenerateOrderReference(),
		UserPhone:    sess.UserID,
		ProductCode:  product.Code,
		ProductName:  product.Name,
		Region:       sess.Region,
		CustomerName: fields.Name,
		DNI:          fields.DNI,
		Place:        fields.Place,
		BasePrice:    product.Price,
		Total:        product.Price,
		Status:       models.OrderStatusConfirmed,
	}
	if order.Region == models.RegionLima {
		order.Surcharge = models.LimaSurcharge
		order.Total += models.LimaSurcharge
	} else {
		order.Status = models.OrderStatusAwaitingPayment
	}

	if _, err := o.store.CreateOrder(order); err != nil {
		log.Printf("❌ Failed to persist order for %s: %v", sess.UserID, err)
	}

	SendAll(o.sender, sess.UserID, OrderSummary(order))

	if order.Region == models.RegionProvincia {
		SendAll(o.sender, sess.UserID, PaymentInstructions(order))
		sess.State = StateAwaitingPaymentProof
		sess.Region = ""
		sess.PendingOrderText = ""
		o.sessions.StartHibernation(sess, o.onHibernationExpired)
		return
	}

	// Lima: done. State goes away, conversation memory stays.
	o.sessions.Clear(sess.UserID, true)
}

// HandlePaymentProof consumes the next message while awaiting proof. The
// content is not inspected: any reply counts as the comprobante and a human
// validates it. Called with the session locked.
func (o *OrderService) HandlePaymentProof(sess *Session) {
	order, err := o.store.GetLatestOrderForUser(sess.UserID)
	if err == nil && order.Status == models.OrderStatusAwaitingPayment {
		now := time.Now()
		order.Status = models.OrderStatusConfirmed
		order.ConfirmedAt = &now
		if err := o.store.UpdateOrder(order); err != nil {
			log.Printf("❌ Failed to confirm order %s: %v", order.Reference, err)
		}
	}

	SendAll(o.sender, sess.UserID, models.Text(msgProofReceived))
	o.sessions.Clear(sess.UserID, true)
}

// onHibernationExpired releases an order whose proof never arrived
func (o *OrderService) onHibernationExpired(userID string) {
	sess, ok := o.sessions.Peek(userID)
	if !ok {
		return
	}

	sess.Lock()
	if sess.State != StateAwaitingPaymentProof {
		sess.Unlock()
		return
	}

	if order, err := o.store.GetLatestOrderForUser(userID); err == nil && order.Status == models.OrderStatusAwaitingPayment {
		order.Status = models.OrderStatusExpired
		if err := o.store.UpdateOrder(order); err != nil {
			log.Printf("❌ Failed to expire order %s: %v", order.Reference, err)
		}
	}

	o.sessions.Clear(userID, false)
	sess.Unlock()

	SendAll(o.sender, userID, models.Text(msgProofExpired))
}
