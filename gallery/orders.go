package gallery

import (
	"net/http"
	"strconv"
	"time"

	"github.com/galerie-tech/galerie/core/logger"
	"github.com/galerie-tech/galerie/core/notify"
)

type createOrderRequest struct {
	Address       string `json:"address"`
	PaymentMethod string `json:"payment_method"`
}

// createOrder turns the user's cart into an order. The order row, its
// items, the payment transaction and the cart cleanup all happen in one
// database transaction; the order event is published only after commit.
func (b *Backend) createOrder(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	var request createOrderRequest
	if err := readJSON(r, &request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	defer tx.Rollback()
	txf := b.facade.WithTx(tx)

	cart, err := txf.Read(ctx, "shopping_cart",
		map[string]string{"id_u": strconv.FormatInt(session.UserID, 10)},
		"shopping_cart.id_p, painting.price",
		"JOIN "+b.db.Schema+".painting ON painting.id = shopping_cart.id_p",
		"shopping_cart")
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if len(cart) == 0 {
		http.Error(w, "shopping cart is empty", http.StatusBadRequest)
		return
	}

	var total float64
	for _, item := range cart {
		price, _ := item["price"].(float64)
		total += price
	}

	orderID, err := txf.Create(ctx, "orders", map[string]interface{}{
		"id_u":           session.UserID,
		"status":         "created",
		"address":        request.Address,
		"payment_method": request.PaymentMethod,
		"total_price":    total,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	for _, item := range cart {
		if _, err = txf.Create(ctx, "order_items", map[string]interface{}{
			"id_o":     orderID,
			"id_p":     item["id_p"],
			"quantity": 1,
		}); err != nil {
			writeStoreError(w, r, err)
			return
		}
	}
	if _, err = txf.Create(ctx, "transactions", map[string]interface{}{
		"id_o":    orderID,
		"id_u":    session.UserID,
		"amount":  total,
		"details": request.PaymentMethod,
	}); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if _, err = txf.Delete(ctx, "shopping_cart", map[string]interface{}{
		"id_u": session.UserID,
	}); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if err = tx.Commit(); err != nil {
		writeStoreError(w, r, err)
		return
	}

	id, _ := orderID.(int64)
	if err = b.notifier.OrderCreated(ctx, notify.OrderEvent{
		OrderID:   id,
		UserID:    session.UserID,
		Amount:    total,
		Items:     len(cart),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		// the order is committed, a lost notification must not fail it
		logger.FromContext(ctx).WithError(err).Errorln("cannot publish order event")
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":          id,
		"total_price": total,
		"items":       len(cart),
	})
}

func (b *Backend) listOrders(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	orders, err := b.facade.Read(r.Context(), "orders",
		map[string]string{"id_u": strconv.FormatInt(session.UserID, 10)}, "", "", "")
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	for _, order := range orders {
		id, _ := order["id"].(int64)
		items, err := b.facade.Read(r.Context(), "order_items",
			map[string]string{"id_o": strconv.FormatInt(id, 10)},
			"order_items.id, order_items.id_p, order_items.quantity, "+
				"painting.title, painting.author, painting.price, painting.image",
			"JOIN "+b.db.Schema+".painting ON painting.id = order_items.id_p",
			"order_items")
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		order["items"] = items
	}
	writeJSON(w, http.StatusOK, orders)
}
