package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
	"github.com/tiendasmegan/megan-bot-backend/internal/services"
	"github.com/tiendasmegan/megan-bot-backend/internal/storage"
)

// ReminderJob nudges users whose Provincia order is still waiting for the
// payment proof. One reminder per order, then the hibernation timer decides.
type ReminderJob struct {
	store     storage.Store
	sender    services.Sender
	interval  time.Duration
	olderThan time.Duration
	stop      chan struct{}
	isRunning bool
}

// NewReminderJob creates the payment reminder scheduler
func NewReminderJob(store storage.Store, sender services.Sender) *ReminderJob {
	return &ReminderJob{
		store:     store,
		sender:    sender,
		interval:  5 * time.Minute,
		olderThan: 20 * time.Minute,
		stop:      make(chan struct{}),
	}
}

// Start begins the reminder loop
func (r *ReminderJob) Start() {
	if r.isRunning {
		log.Println("Reminder job already running")
		return
	}
	r.isRunning = true
	log.Println("Starting payment reminder job...")

	go r.run()
}

// Stop halts the reminder loop
func (r *ReminderJob) Stop() {
	if !r.isRunning {
		return
	}
	r.isRunning = false
	close(r.stop)
	log.Println("Stopping payment reminder job...")
}

func (r *ReminderJob) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sendReminders()
		}
	}
}

// sendReminders finds stale awaiting-payment orders and nudges each user once
func (r *ReminderJob) sendReminders() {
	orders, err := r.store.GetStaleOrders(models.OrderStatusAwaitingPayment, r.olderThan)
	if err != nil {
		log.Printf("Error getting stale orders: %v", err)
		return
	}

	sent := 0
	for _, order := range orders {
		if order.Reminded {
			continue
		}

		msg := models.Text(fmt.Sprintf(
			"⏰ Tu pedido %s sigue reservado. Recuerda enviar el comprobante del adelanto de %.0f soles para confirmar tu envío. 🙌",
			order.Reference, models.ProvinciaDeposit))
		if err := r.sender.Send(order.UserPhone, msg); err != nil {
			log.Printf("Failed to send payment reminder for %s: %v", order.Reference, err)
			continue
		}

		order.Reminded = true
		if err := r.store.UpdateOrder(order); err != nil {
			log.Printf("Failed to mark order %s reminded: %v", order.Reference, err)
		}
		sent++
	}

	if sent > 0 {
		log.Printf("Sent %d payment reminders", sent)
	}
}
