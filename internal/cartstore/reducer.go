package cartstore

import "grocery-storefront/internal/domain"

// State is the client-local view of one session's cart.
type State struct {
	Cart    *domain.Cart `json:"cart"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
	IsOpen  bool         `json:"is_open"`
}

type action interface {
	isAction()
}

// opStarted clears the previous banner error.
type opStarted struct{}

// snapshotReceived replaces the cart wholesale.
type snapshotReceived struct {
	cart *domain.Cart
	open bool
}

type opFailed struct {
	message string
}

type panelToggled struct {
	open bool
}

type errorDismissed struct{}

func (opStarted) isAction()        {}
func (snapshotReceived) isAction() {}
func (opFailed) isAction()         {}
func (panelToggled) isAction()     {}
func (errorDismissed) isAction()   {}

// reduce is the only place State changes. Loading is owned by the Store
// because it depends on how many operations are in flight.
func reduce(s State, a action) State {
	switch a := a.(type) {
	case opStarted:
		s.Error = ""
	case snapshotReceived:
		s.Cart = a.cart
		s.Error = ""
		if a.open {
			s.IsOpen = true
		}
	case opFailed:
		s.Error = a.message
	case panelToggled:
		s.IsOpen = a.open
	case errorDismissed:
		s.Error = ""
	}
	return s
}

func summarize(cart *domain.Cart) domain.CartSummary {
	if cart == nil {
		return domain.CartSummary{}
	}
	return domain.CartSummary{
		TotalItems:    cart.TotalItems,
		TotalQuantity: cart.TotalQuantity,
		ItemCount:     len(cart.Items),
	}
}
