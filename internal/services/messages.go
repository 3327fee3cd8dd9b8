package services

import (
	"fmt"
	"strings"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

// Canned reply texts. Builders below are pure: same input, same payload.
const (
	msgDidNotUnderstand = "❓ No entendí tu selección, por favor intenta de nuevo."
	msgThanks           = "🙏 ¡Gracias a ti! Estamos para ayudarte."
	msgAdvisorWelcome   = "💬 ¡Hola! Soy tu asesor de Tiendas Megan. Cuéntame qué buscas y te ayudo. Escribe *salir* para volver al menú."
	msgAdvisorProblem   = "⚠️ Hubo un problema con el asesor. Por favor intenta de nuevo en un momento."
	msgAskGender        = "😊 ¿Ver catálogo para caballeros o damas?"
	msgModelNotFound    = "😔 No encontramos ese modelo."
	msgNoProducts       = "😔 Lo siento, no hay productos disponibles para esa categoría."
	msgWhichProduct     = "🤔 ¿Qué modelo deseas comprar? Indícame el código del reloj para continuar."
	msgMissingData      = "😕 Parece que faltan datos para completar tu pedido. Volvamos a empezar cuando tengas todo a la mano."
	msgNudge            = "👋 ¿Sigues ahí? Si necesitas ayuda con tu reloj ideal, aquí estoy."
	msgSessionEnd       = "🕒 Cerramos esta conversación por inactividad. Escríbenos cuando quieras, ¡estaremos atentos!"
	msgPleaseWait       = "⏳ Un momento por favor..."
	msgProofReceived    = "✅ ¡Comprobante recibido! Estamos validando tu pago y coordinaremos el envío de tu pedido. 🙌"
	msgProofExpired     = "🕒 No recibimos tu comprobante de pago, así que liberamos tu pedido. Si aún deseas tu reloj, vuelve a escribirnos."
)

// MainMenu builds the greeting menu with the three entry buttons
func MainMenu() models.OutboundMessage {
	return models.WithButtons(
		"👋 ¡Hola! Bienvenido a Tiendas Megan\n⌚💎 Descubre tu reloj ideal o el regalo perfecto 🎁",
		models.Button{ID: ActionCaballeros, Title: "⌚ Para Caballeros"},
		models.Button{ID: ActionDamas, Title: "🕒 Para Damas"},
		models.Button{ID: ActionAsesor, Title: "💬 Hablar con Asesor"},
	)
}

// WatchTypeMenu builds the automatic/quartz submenu for a gender. The gender
// travels inside the button ids, no extra state needed.
func WatchTypeMenu(gender string) models.OutboundMessage {
	label := "caballeros"
	if strings.EqualFold(gender, ActionDamas) {
		label = "damas"
	}
	gender = strings.ToUpper(gender)
	return models.WithButtons(
		fmt.Sprintf("📦 ¿Qué tipo de reloj deseas ver para %s?", label),
		models.Button{ID: gender + "_AUTO", Title: "⛓ Automáticos"},
		models.Button{ID: gender + "_CUARZO", Title: "⚙ Cuarzo"},
	)
}

// ProductCard builds the image+caption card for one catalog product
func ProductCard(p models.Product) models.OutboundMessage {
	caption := fmt.Sprintf("*%s*\n%s\n💲 %.0f soles\nCódigo: %s", p.Name, p.Description, p.Price, p.Code)
	return models.Image(p.ImageURL, caption)
}

// CatalogCards builds the card sequence for a catalog section, followed by
// the exit prompt. Empty sections degrade to a short apology.
func CatalogCards(products []models.Product) []models.OutboundMessage {
	if len(products) == 0 {
		return []models.OutboundMessage{models.Text(msgNoProducts)}
	}
	messages := make([]models.OutboundMessage, 0, len(products)+1)
	for _, p := range products {
		card := ProductCard(p)
		card.Buttons = []models.Button{{ID: ActionComprarPrefix + p.Code, Title: "🛒 Comprar"}}
		messages = append(messages, card)
	}
	messages = append(messages, ExitPrompt("¿Deseas ver otra sección?"))
	return messages
}

// PromoCard builds the promo image (when bound) plus the product info card
func PromoCard(p models.Product, promo models.Promo, hasPromo bool) []models.OutboundMessage {
	var messages []models.OutboundMessage
	if hasPromo {
		messages = append(messages, models.Image(promo.ImageURL, promo.Description))
	}
	info := ProductCard(p)
	info.Buttons = []models.Button{{ID: ActionComprarPrefix + p.Code, Title: "🛒 Comprar"}}
	messages = append(messages, info, ExitPrompt("¿Necesitas algo más?"))
	return messages
}

// ExitPrompt builds a text with the single back-to-menu button
func ExitPrompt(text string) models.OutboundMessage {
	return models.WithButtons(text, models.Button{ID: ActionSalir, Title: "🔙 Salir"})
}

// RegionQuestion asks where the order ships, remembering nothing: the answer
// arrives as a button action carrying the region.
func RegionQuestion(p models.Product) models.OutboundMessage {
	return models.WithButtons(
		fmt.Sprintf("🛒 ¡Buena elección! *%s*\n¿Tu pedido es para Lima o Provincia?", p.Name),
		models.Button{ID: ActionComprarLima, Title: "🏠 Lima"},
		models.Button{ID: ActionComprarProvincia, Title: "📦 Provincia"},
	)
}

// OrderDataPrompt lists the fields required for a region
func OrderDataPrompt(region models.Region) models.OutboundMessage {
	if region == models.RegionLima {
		return models.Text("📝 Para coordinar la entrega en Lima envíanos:\n\n1️⃣ Tu nombre completo\n2️⃣ Tu dirección exacta\n3️⃣ Una referencia cercana\n\nPuedes escribirlo en varios mensajes.")
	}
	return models.Text("📝 Para el envío a Provincia envíanos:\n\n1️⃣ Tu nombre completo\n2️⃣ Tu DNI (8 dígitos)\n3️⃣ La agencia donde recoges (ej. Shalom, Olva)\n\nPuedes escribirlo en varios mensajes.")
}

// OrderSummary builds the confirmation text for a finalized order
func OrderSummary(order *models.Order) models.OutboundMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 *Resumen de tu pedido %s*\n\n", order.Reference)
	fmt.Fprintf(&b, "⌚ Producto: %s (%s)\n", order.ProductName, order.ProductCode)
	fmt.Fprintf(&b, "🙋 Nombre: %s\n", order.CustomerName)
	if order.Region == models.RegionLima {
		fmt.Fprintf(&b, "🏠 Entrega en Lima: %s\n", order.Place)
		fmt.Fprintf(&b, "💲 Precio: %.0f soles (incluye %.0f de delivery)\n", order.Total, order.Surcharge)
		b.WriteString("\n🚚 Pagas al recibir tu pedido. ¡Gracias por tu compra!")
	} else {
		fmt.Fprintf(&b, "🪪 DNI: %s\n", order.DNI)
		fmt.Fprintf(&b, "📦 Recojo en: %s\n", order.Place)
		fmt.Fprintf(&b, "💲 Precio: %.0f soles\n", order.Total)
	}
	return models.Text(b.String())
}

// PaymentInstructions builds the Provincia prepayment message
func PaymentInstructions(order *models.Order) models.OutboundMessage {
	return models.Text(fmt.Sprintf(
		"💳 Para confirmar tu envío a Provincia deposita el adelanto de %.0f soles:\n\n"+
			"🏦 BCP: 191-12345678-0-01\n📱 Yape/Plin: 999 888 777 (Tiendas Megan)\n\n"+
			"Cuando tengas el comprobante envíalo por aquí. Tu pedido %s queda reservado por 1 hora.",
		models.ProvinciaDeposit, order.Reference))
}
