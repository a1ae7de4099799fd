// Package view projects session state into the four screens of the stall
// UI and gates destructive actions behind a confirmation step.
package view

import (
	"fmt"

	"bbqpos/internal/models"
	"bbqpos/internal/pos"
)

type Section string

const (
	NewOrder        Section = "newOrder"
	ActiveOrders    Section = "activeOrders"
	CompletedOrders Section = "completedOrders"
	Setup           Section = "setup"
)

var Sections = []Section{NewOrder, ActiveOrders, CompletedOrders, Setup}

func ParseSection(s string) (Section, error) {
	for _, section := range Sections {
		if string(section) == s {
			return section, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", s)
}

// View is the payload for one section. Only the fields that section shows
// are set.
type View struct {
	Section   Section            `json:"section"`
	Owner     string             `json:"owner"`
	Connected bool               `json:"connected"`
	Menu      []models.MenuItem  `json:"menu,omitempty"`
	Cart      []models.OrderItem `json:"cart,omitempty"`
	CartTotal string             `json:"cartTotal,omitempty"`
	Orders    []models.Order     `json:"orders,omitempty"`
	Totals    []pos.ItemTotal    `json:"totals,omitempty"`
	Counter   int                `json:"counter,omitempty"`
}

// Project is a pure function of state and section.
func Project(state pos.State, section Section) View {
	v := View{
		Section:   section,
		Owner:     state.Owner,
		Connected: state.Connected,
	}

	switch section {
	case NewOrder:
		v.Menu = state.Menu
		v.Cart = state.Cart
		v.CartTotal = state.CartTotal
		v.Counter = state.Counter
	case ActiveOrders:
		v.Orders = pos.FilterOrders(state.Orders, models.OrderStatusActive)
		v.Totals = pos.SumActiveItems(state.Orders)
	case CompletedOrders:
		v.Orders = pos.FilterOrders(state.Orders, models.OrderStatusCompleted)
	case Setup:
		v.Menu = state.Menu
		v.Counter = state.Counter
	}
	return v
}
