package sales

import (
	EventBus "github.com/asaskevich/EventBus"
)

// TopicSaleCompleted is published with a Receipt after every successful commit.
const TopicSaleCompleted = "sale:completed"

// Notifier is told about completed sales. Delivery is best effort. Each call
// receives its own copy of the receipt, so implementations may hand it to
// other goroutines.
type Notifier interface {
	SaleCompleted(receipt Receipt)
}

// BusNotifier publishes completed sales on an in-process event bus so
// dashboards can refresh.
type BusNotifier struct {
	bus EventBus.Bus
}

func NewBusNotifier(bus EventBus.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) SaleCompleted(receipt Receipt) {
	if !n.bus.HasCallback(TopicSaleCompleted) {
		return
	}
	// async subscribers outlive the call; they must not share the caller's slices
	n.bus.Publish(TopicSaleCompleted, receipt.Clone())
}

type nopNotifier struct{}

func (nopNotifier) SaleCompleted(Receipt) {}
