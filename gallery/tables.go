package gallery

import "github.com/galerie-tech/galerie/core/registry"

// Tables returns the schema registry for the gallery store. This is the
// allow-list the facade validates every table and column name against.
//
// The users table is deliberately not exposed through the generic table
// API: it holds credential hashes. It is still registered so the typed
// auth handlers can go through the facade.
func Tables() *registry.Registry {
	return registry.New([]registry.Table{
		{
			Name: "users", Primary: "id", Generated: true,
			Columns: []registry.Column{
				{Name: "first_name", Type: registry.String},
				{Name: "last_name", Type: registry.String},
				{Name: "email", Type: registry.String, Required: true},
				{Name: "password", Type: registry.String, Required: true},
				{Name: "phone", Type: registry.String},
			},
		},
		{
			Name: "painting", Primary: "id", Generated: true, Exposed: true,
			Columns: []registry.Column{
				{Name: "title", Type: registry.String, Required: true},
				{Name: "author", Type: registry.String, Required: true},
				{Name: "price", Type: registry.Number, Required: true},
				{Name: "width", Type: registry.Integer},
				{Name: "height", Type: registry.Integer},
				{Name: "image", Type: registry.String},
			},
		},
		{
			Name: "review", Primary: "id", Generated: true, Exposed: true,
			Columns: []registry.Column{
				{Name: "id_u", Type: registry.Integer, Required: true},
				{Name: "id_p", Type: registry.Integer, Required: true},
				{Name: "comment", Type: registry.String, Required: true},
				{Name: "date", Type: registry.Time},
			},
		},
		{
			Name: "shopping_cart", Primary: "id", Exposed: true,
			Columns: []registry.Column{
				{Name: "id_u", Type: registry.Integer, Required: true},
				{Name: "id_p", Type: registry.Integer, Required: true},
				{Name: "added_at", Type: registry.Time},
			},
		},
		{
			Name: "orders", Primary: "id", Generated: true, Exposed: true,
			Columns: []registry.Column{
				{Name: "id_u", Type: registry.Integer, Required: true},
				{Name: "date", Type: registry.Time},
				{Name: "status", Type: registry.String},
				{Name: "address", Type: registry.String},
				{Name: "payment_method", Type: registry.String},
				{Name: "total_price", Type: registry.Number},
			},
		},
		{
			Name: "order_items", Primary: "id", Generated: true, Exposed: true,
			Columns: []registry.Column{
				{Name: "id_o", Type: registry.Integer, Required: true},
				{Name: "id_p", Type: registry.Integer, Required: true},
				{Name: "quantity", Type: registry.Integer},
			},
		},
		{
			Name: "transactions", Primary: "id", Generated: true, Exposed: true,
			Columns: []registry.Column{
				{Name: "id_o", Type: registry.Integer, Required: true},
				{Name: "id_u", Type: registry.Integer, Required: true},
				{Name: "amount", Type: registry.Number, Required: true},
				{Name: "date", Type: registry.Time},
				{Name: "details", Type: registry.String},
			},
		},
		{
			Name: "event", Primary: "id", Generated: true, Exposed: true,
			Columns: []registry.Column{
				{Name: "title", Type: registry.String, Required: true},
				{Name: "description", Type: registry.String},
				{Name: "date", Type: registry.Time},
			},
		},
		{
			Name: "event_paintings", Primary: "id", Generated: true, Exposed: true,
			Columns: []registry.Column{
				{Name: "id_e", Type: registry.Integer, Required: true},
				{Name: "id_p", Type: registry.Integer, Required: true},
			},
		},
	})
}
