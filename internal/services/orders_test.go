package services

import (
	"strings"
	"sync"
	"testing"

	"github.com/tiendasmegan/megan-bot-backend/internal/catalog"
	"github.com/tiendasmegan/megan-bot-backend/internal/models"
	"github.com/tiendasmegan/megan-bot-backend/internal/storage"
)

type sentMessage struct {
	To  string
	Msg models.OutboundMessage
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) Send(to string, msg models.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Msg: msg})
	return nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSender) contains(substr string) bool {
	for _, m := range f.messages() {
		if strings.Contains(m.Msg.Body, substr) || strings.Contains(m.Msg.Caption, substr) {
			return true
		}
	}
	return false
}

func testCatalog() *catalog.Catalog {
	return catalog.New(map[string][]models.Product{
		models.CategoryCaballerosAuto: {
			{Code: "X1", Name: "Megan Classic", Description: "Automático acero", Price: 250, ImageURL: "https://img.example/x1.jpg"},
			{Code: "X2", Name: "Megan Sport", Description: "Automático deportivo", Price: 300, ImageURL: "https://img.example/x2.jpg"},
		},
		models.CategoryDamasCuarzo: {
			{Code: "D1", Name: "Megan Dama", Description: "Cuarzo elegante", Price: 180, ImageURL: "https://img.example/d1.jpg"},
		},
	}, map[string]models.Promo{
		"X1": {ImageURL: "https://img.example/promo-x1.jpg", Description: "Oferta exclusiva"},
	}, "prompt de prueba")
}

func newTestSessionManager() *SessionManager {
	return NewSessionManager()
}

func newOrderFixture(t *testing.T) (*OrderService, *SessionManager, *fakeSender, *storage.MemoryStore) {
	t.Helper()
	sm := newTestSessionManager()
	store := storage.NewMemoryStore()
	sender := &fakeSender{}
	orders := NewOrderService(sm, store, sender, testCatalog())
	return orders, sm, sender, store
}

func TestParsePurchaseFieldsLima(t *testing.T) {
	buffer := "Juan Perez\nAv. Siempre Viva 123\ncerca al parque"

	fields, ok := ParsePurchaseFields(buffer, models.RegionLima)
	if !ok {
		t.Fatal("expected Lima buffer to be complete")
	}
	if fields.Name != "Juan Perez" {
		t.Errorf("expected name 'Juan Perez', got %q", fields.Name)
	}
	if !strings.Contains(fields.Place, "Av. Siempre Viva 123") || !strings.Contains(fields.Place, "cerca al parque") {
		t.Errorf("expected place to contain remaining lines, got %q", fields.Place)
	}
	if fields.DNI != "" {
		t.Errorf("Lima orders carry no DNI, got %q", fields.DNI)
	}
}

func TestParsePurchaseFieldsLimaIncomplete(t *testing.T) {
	cases := []string{
		"",
		"Juan Perez",
		"123\n456",
	}
	for _, buffer := range cases {
		if _, ok := ParsePurchaseFields(buffer, models.RegionLima); ok {
			t.Errorf("expected %q to be incomplete", buffer)
		}
	}
}

func TestParsePurchaseFieldsProvincia(t *testing.T) {
	buffer := "Maria Lopez\n12345678\nAgencia Shalom Centro"

	fields, ok := ParsePurchaseFields(buffer, models.RegionProvincia)
	if !ok {
		t.Fatal("expected Provincia buffer to be complete")
	}
	if fields.Name != "Maria Lopez" {
		t.Errorf("expected name 'Maria Lopez', got %q", fields.Name)
	}
	if fields.DNI != "12345678" {
		t.Errorf("expected dni '12345678', got %q", fields.DNI)
	}
	if fields.Place != "Agencia Shalom Centro" {
		t.Errorf("expected the DNI line excluded from place, got %q", fields.Place)
	}
}

func TestParsePurchaseFieldsProvinciaNeedsDNI(t *testing.T) {
	// Two address lines but no 8-digit run
	buffer := "Maria Lopez\nAgencia Shalom\nCentro de Lima"
	if _, ok := ParsePurchaseFields(buffer, models.RegionProvincia); ok {
		t.Fatal("expected Provincia buffer without DNI to be incomplete")
	}

	// DNI present but only two non-blank lines
	buffer = "Maria Lopez\n12345678"
	if _, ok := ParsePurchaseFields(buffer, models.RegionProvincia); ok {
		t.Fatal("expected two-line Provincia buffer to be incomplete")
	}
}

func TestFinalizeLimaAppliesSurcharge(t *testing.T) {
	orders, sm, sender, store := newOrderFixture(t)

	sess := sm.Get("51999000111")
	sess.Lock()
	sess.ActiveOrder = &ActiveOrder{ProductCode: "X1"}
	orders.Begin(sess, models.RegionLima)
	orders.Append(sess, "Juan Perez\nAv. Siempre Viva 123\ncerca al parque")
	sess.Unlock()

	created, err := store.GetLatestOrderForUser("51999000111")
	if err != nil {
		t.Fatalf("expected a persisted order: %v", err)
	}
	if created.Total != 260 {
		t.Errorf("expected total 260 (250 + 10 delivery), got %.0f", created.Total)
	}
	if created.Surcharge != models.LimaSurcharge {
		t.Errorf("expected Lima surcharge, got %.0f", created.Surcharge)
	}
	if created.Status != models.OrderStatusConfirmed {
		t.Errorf("Lima orders confirm immediately, got %q", created.Status)
	}

	// State cleared, history kept
	if sess.State != StateNone {
		t.Errorf("expected state cleared after Lima finalize, got %q", sess.State)
	}
	if sess.PendingOrderText != "" {
		t.Errorf("expected pending buffer cleared, got %q", sess.PendingOrderText)
	}
	if _, alive := sm.Peek("51999000111"); !alive {
		t.Error("Lima completion keeps the session (history retained)")
	}
	if !sender.contains("Resumen de tu pedido") {
		t.Error("expected an order summary message")
	}
}

func TestFinalizeProvinciaAwaitsPaymentProof(t *testing.T) {
	orders, sm, sender, store := newOrderFixture(t)

	sess := sm.Get("51999000222")
	sess.Lock()
	sess.ActiveOrder = &ActiveOrder{ProductCode: "X2"}
	orders.Begin(sess, models.RegionProvincia)
	orders.Append(sess, "Maria Lopez")
	orders.Append(sess, "12345678")
	orders.Append(sess, "Agencia Shalom Centro")
	state := sess.State
	sess.Unlock()

	if state != StateAwaitingPaymentProof {
		t.Fatalf("expected payment-proof state, got %q", state)
	}

	created, err := store.GetLatestOrderForUser("51999000222")
	if err != nil {
		t.Fatalf("expected a persisted order: %v", err)
	}
	if created.Status != models.OrderStatusAwaitingPayment {
		t.Errorf("expected awaiting_payment, got %q", created.Status)
	}
	if created.DNI != "12345678" {
		t.Errorf("expected extracted dni, got %q", created.DNI)
	}
	if created.Total != 300 {
		t.Errorf("Provincia has no surcharge, got %.0f", created.Total)
	}
	if !sender.contains("adelanto") {
		t.Error("expected payment instructions")
	}
	if sess.hibernateTimer == nil {
		t.Error("expected the hibernation timer to be armed")
	}
}

func TestFinalizeWithoutProductAsksWhichProduct(t *testing.T) {
	orders, sm, sender, _ := newOrderFixture(t)

	sess := sm.Get("51999000333")
	sess.Lock()
	orders.Begin(sess, models.RegionLima)
	orders.Append(sess, "Juan Perez\nAv. Siempre Viva 123\ncerca al parque")
	state := sess.State
	sess.Unlock()

	if state != StateNone {
		t.Errorf("expected state reset when no product is selected, got %q", state)
	}
	if !sender.contains("Qué modelo deseas comprar") {
		t.Error("expected the which-product prompt instead of a blind finalize")
	}
}

func TestHandlePaymentProofConfirmsOrder(t *testing.T) {
	orders, sm, sender, store := newOrderFixture(t)

	sess := sm.Get("51999000444")
	sess.Lock()
	sess.ActiveOrder = &ActiveOrder{ProductCode: "X1"}
	orders.Begin(sess, models.RegionProvincia)
	orders.Append(sess, "Maria Lopez\n12345678\nAgencia Shalom Centro")
	orders.HandlePaymentProof(sess)
	sess.Unlock()

	created, err := store.GetLatestOrderForUser("51999000444")
	if err != nil {
		t.Fatalf("expected a persisted order: %v", err)
	}
	if created.Status != models.OrderStatusConfirmed {
		t.Errorf("expected order confirmed after proof, got %q", created.Status)
	}
	if created.ConfirmedAt == nil {
		t.Error("expected ConfirmedAt to be set")
	}
	if sess.State != StateNone {
		t.Errorf("expected state cleared after proof, got %q", sess.State)
	}
	if !sender.contains("Comprobante recibido") {
		t.Error("expected the proof acknowledgment")
	}
}
