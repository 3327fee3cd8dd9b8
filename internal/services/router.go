package services

import (
	"log"
	"os"
	"strings"

	"github.com/tiendasmegan/megan-bot-backend/internal/catalog"
	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

// Symbolic button actions carried in interactive replies
const (
	ActionCaballeros       = "CABALLEROS"
	ActionDamas            = "DAMAS"
	ActionAsesor           = "ASESOR"
	ActionSalir            = "SALIR"
	ActionComprarPrefix    = "COMPRAR_PRODUCTO_"
	ActionComprarLima      = "COMPRAR_LIMA"
	ActionComprarProvincia = "COMPRAR_PROVINCIA"
)

// categoryForAction maps gender+type button ids onto catalog keys
var categoryForAction = map[string]string{
	"CABALLEROS_AUTO":   models.CategoryCaballerosAuto,
	"CABALLEROS_CUARZO": models.CategoryCaballerosCuarzo,
	"DAMAS_AUTO":        models.CategoryDamasAuto,
	"DAMAS_CUARZO":      models.CategoryDamasCuarzo,
}

// Promo-interest phrases that show the bound promo product directly,
// bypassing the advisor
var promoTriggers = []string{
	"me interesa este reloj exclusivo",
	"me interesa este reloj de lujo",
}

var thanksTriggers = []string{
	"gracias",
	"muchas gracias",
	"mil gracias",
	"gracias!",
}

// Router decides which handler runs for a normalized inbound event. The
// precedence is load-bearing: an active purchase flow swallows everything,
// advisor mode comes second, then button actions, trigger phrases and the
// first-contact/advisor fallback.
type Router struct {
	sessions  *SessionManager
	orders    *OrderService
	advisor   *AdvisorService
	catalog   *catalog.Catalog
	sender    Sender
	promoCode string
}

// NewRouter wires the dispatcher
func NewRouter(sessions *SessionManager, orders *OrderService, advisor *AdvisorService, cat *catalog.Catalog, sender Sender) *Router {
	promoCode := os.Getenv("PROMO_PRODUCT_CODE")
	if promoCode == "" {
		if codes := cat.PromoCodes(); len(codes) > 0 {
			promoCode = codes[0]
		}
	}

	return &Router{
		sessions:  sessions,
		orders:    orders,
		advisor:   advisor,
		catalog:   cat,
		sender:    sender,
		promoCode: promoCode,
	}
}

// HandleText routes one free-text inbound message
func (r *Router) HandleText(userID, text string) {
	text = strings.TrimSpace(text)
	if userID == "" || text == "" {
		return
	}

	sess := r.sessions.Get(userID)
	sess.Lock()
	defer sess.Unlock()
	r.sessions.Touch(sess)

	// 1. Active purchase data collection wins over everything, including
	// trigger phrases: a "gracias" mid-flow is order data, not gratitude.
	if sess.State == StateAwaitingOrderData {
		r.orders.Append(sess, text)
		return
	}

	// 2. Advisor mode: "salir" exits, anything else is a conversation turn
	if sess.State == StateAdvisor {
		if strings.EqualFold(text, "salir") {
			sess.State = StateNone
			sess.History = nil
			SendAll(r.sender, userID, MainMenu())
			return
		}
		r.completeAsync(sess, text)
		return
	}

	// Pending payment proof: the next message is the comprobante
	if sess.State == StateAwaitingPaymentProof {
		r.orders.HandlePaymentProof(sess)
		return
	}

	// Follow-ups to advisor-driven questions answered as free text. A gender
	// answer moves the chain on to the watch-type question.
	if sess.State == StateAwaitingGender {
		if gender, ok := matchGender(text); ok {
			sess.State = StateAwaitingWatchType
			sess.Gender = gender
			SendAll(r.sender, userID, WatchTypeMenu(gender))
			return
		}
	}
	if sess.State == StateAwaitingWatchType {
		if category, ok := matchWatchType(sess.Gender, text); ok {
			sess.State = StateNone
			sess.Gender = ""
			SendAll(r.sender, userID, CatalogCards(r.catalog.Products(category))...)
			return
		}
	}

	// 4. Trigger phrases, matched against the whole trimmed message
	lower := strings.ToLower(text)
	if lower == "hola" {
		sess.HasGreeted = true
		SendAll(r.sender, userID, MainMenu())
		return
	}
	for _, trigger := range thanksTriggers {
		if lower == trigger {
			SendAll(r.sender, userID, models.Text(msgThanks))
			return
		}
	}
	for _, trigger := range promoTriggers {
		if lower == trigger {
			r.showProduct(sess, r.promoCode)
			return
		}
	}

	// 5. Fallback: the first-ever message is absorbed into the main menu;
	// afterwards free text goes to the completion service
	if !sess.HasGreeted {
		sess.HasGreeted = true
		SendAll(r.sender, userID, MainMenu())
		return
	}
	r.completeAsync(sess, text)
}

// HandleAction routes one button/quick-reply action
func (r *Router) HandleAction(userID, action string) {
	action = strings.TrimSpace(action)
	if userID == "" || action == "" {
		return
	}

	sess := r.sessions.Get(userID)
	sess.Lock()
	defer sess.Unlock()
	r.sessions.Touch(sess)
	sess.HasGreeted = true

	log.Printf("🛠 Action from %s: %s", userID, action)

	if category, ok := categoryForAction[action]; ok {
		sess.State = StateNone
		sess.Gender = ""
		SendAll(r.sender, userID, CatalogCards(r.catalog.Products(category))...)
		return
	}

	switch {
	case action == ActionCaballeros || action == ActionDamas:
		SendAll(r.sender, userID, WatchTypeMenu(action))

	case action == ActionAsesor:
		sess.State = StateAdvisor
		sess.History = nil
		SendAll(r.sender, userID, models.Text(msgAdvisorWelcome))

	case action == ActionSalir:
		// Explicit exit tears everything down, history included
		r.sessions.Clear(userID, false)
		SendAll(r.sender, userID, MainMenu())

	case strings.HasPrefix(action, ActionComprarPrefix):
		code := strings.TrimPrefix(action, ActionComprarPrefix)
		product, found := r.catalog.FindProduct(code)
		if !found {
			SendAll(r.sender, userID, models.Text(msgModelNotFound))
			return
		}
		sess.ActiveOrder = &ActiveOrder{ProductCode: product.Code, LastViewed: product.Code}
		SendAll(r.sender, userID, RegionQuestion(product))

	case action == ActionComprarLima || action == ActionComprarProvincia:
		if sess.ActiveOrder == nil || sess.ActiveOrder.ProductCode == "" {
			SendAll(r.sender, userID, models.Text(msgWhichProduct))
			return
		}
		region := models.RegionLima
		if action == ActionComprarProvincia {
			region = models.RegionProvincia
		}
		r.orders.Begin(sess, region)

	default:
		SendAll(r.sender, userID, models.Text(msgDidNotUnderstand))
	}
}

// Nudge sends the inactivity reminder (SessionManager callback)
func (r *Router) Nudge(userID string) {
	SendAll(r.sender, userID, models.Text(msgNudge))
}

// SessionEnded notifies the user their session was closed (SessionManager
// callback; the session itself is already gone)
func (r *Router) SessionEnded(userID string) {
	SendAll(r.sender, userID, models.Text(msgSessionEnd))
}

// completeAsync runs the completion out-of-band: the webhook is acknowledged
// immediately and the real answer is pushed when ready. Called with the
// session locked; the user turn is appended before the call so a failure
// leaves a retryable history.
func (r *Router) completeAsync(sess *Session, text string) {
	if r.advisor == nil {
		SendAll(r.sender, sess.UserID, models.Text(msgAdvisorProblem))
		return
	}

	sess.History = append(sess.History, models.ChatMessage{Role: "user", Content: text})
	history := make([]models.ChatMessage, len(sess.History))
	copy(history, sess.History)

	SendAll(r.sender, sess.UserID, models.Text(msgPleaseWait))

	go func() {
		cmd, err := r.advisor.Complete(history)

		sess.Lock()
		defer sess.Unlock()

		if err != nil {
			log.Printf("❌ Advisor error for %s: %v", sess.UserID, err)
			SendAll(r.sender, sess.UserID, models.Text(msgAdvisorProblem))
			return
		}

		sess.History = append(sess.History, models.ChatMessage{Role: "assistant", Content: cmd.Raw})
		r.dispatchAdvisorCommand(sess, cmd)
	}()
}

// dispatchAdvisorCommand applies one parsed completion reply. Called with
// the session locked.
func (r *Router) dispatchAdvisorCommand(sess *Session, cmd AdvisorCommand) {
	switch cmd.Kind {
	case CommandShowProduct:
		r.showProduct(sess, cmd.Code)
	case CommandShowCatalog:
		SendAll(r.sender, sess.UserID, CatalogCards(r.catalog.Products(cmd.Category))...)
	case CommandAskGender:
		sess.State = StateAwaitingGender
		SendAll(r.sender, sess.UserID, models.Text(msgAskGender))
	case CommandAskWatchType:
		sess.State = StateAwaitingWatchType
		sess.Gender = cmd.Gender
		SendAll(r.sender, sess.UserID, WatchTypeMenu(cmd.Gender))
	default:
		SendAll(r.sender, sess.UserID, ExitPrompt(cmd.Text))
	}
}

// showProduct sends the promo card for a product code, or the apology when
// the code is unknown. Remembers the product as last viewed.
func (r *Router) showProduct(sess *Session, code string) {
	product, found := r.catalog.FindProduct(code)
	if !found {
		SendAll(r.sender, sess.UserID, models.Text(msgModelNotFound))
		return
	}

	if sess.ActiveOrder == nil {
		sess.ActiveOrder = &ActiveOrder{}
	}
	sess.ActiveOrder.LastViewed = product.Code

	promo, hasPromo := r.catalog.Promo(product.Code)
	SendAll(r.sender, sess.UserID, PromoCard(product, promo, hasPromo)...)
}

func matchGender(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(lower, "caballero"), strings.Contains(lower, "hombre"):
		return ActionCaballeros, true
	case strings.Contains(lower, "dama"), strings.Contains(lower, "mujer"):
		return ActionDamas, true
	}
	return "", false
}

func matchWatchType(gender, text string) (string, bool) {
	if gender == "" {
		return "", false
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(lower, "autom"):
		return categoryForAction[gender+"_AUTO"], true
	case strings.Contains(lower, "cuarzo"), strings.Contains(lower, "quartz"):
		return categoryForAction[gender+"_CUARZO"], true
	}
	return "", false
}
