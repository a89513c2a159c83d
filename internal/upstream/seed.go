package upstream

import (
	"github.com/ashendes/store-console/internal/models"
	"github.com/shopspring/decimal"
)

// Seed loads sample data covering every supported record shape, including
// one malformed native order and one order whose declared total is off
func (s *Server) Seed() {
	s.PutOrders(models.SourceNative,
		map[string]interface{}{
			"_id":     "ord-1001",
			"orderId": "SO-1001",
			"shippingAddress": map[string]interface{}{
				"firstName": "Asha", "lastName": "Menon", "email": "asha@example.com", "phone": "9847000001",
				"addressLine1": "12 Spice Lane", "city": "Kochi", "state": "Kerala", "pinCode": "682001", "country": "India",
			},
			"products": []interface{}{
				map[string]interface{}{"productId": "prod-pepper", "name": "Black Pepper", "quantity": 2, "price": 90},
				map[string]interface{}{"productId": "prod-saffron", "name": "Saffron", "quantity": 1, "price": 650},
			},
			"total":         830,
			"paymentMethod": "COD",
			"status":        "Pending",
			"createdAt":     "2024-03-01T10:00:00Z",
		},
		map[string]interface{}{
			"_id":     "ord-1002",
			"orderId": "SO-1002",
			"shippingAddress": map[string]interface{}{
				"firstName": "Ravi", "lastName": "Nair", "email": "ravi@example.com",
				"addressLine1": "4 Market Road", "city": "Kozhikode", "state": "Kerala", "pincode": 673001, "country": "India",
			},
			"products": []interface{}{
				map[string]interface{}{"productId": "prod-cardamom", "name": "Cardamom", "quantity": 3, "price": "150"},
			},
			"total":         450,
			"paymentMethod": "UPI",
			"status":        "processing",
			"createdAt":     "2024-03-02T09:30:00Z",
		},
		map[string]interface{}{
			"_id":     "ord-1003",
			"orderId": "SO-1003",
			"shippingAddress": map[string]interface{}{
				"firstName": "Meera", "lastName": "Iyer", "addressLine1": "88 Temple Street",
				"city": "Chennai", "state": "Tamil Nadu", "postalCode": "600004", "country": "India",
			},
			"products": []interface{}{
				map[string]interface{}{"productId": "prod-cumin", "name": "Cumin", "quantity": 5, "price": 199.9},
			},
			"total":         1000,
			"paymentMethod": "Card",
			"status":        "Shipped",
			"createdAt":     "2024-03-03T14:15:00Z",
		},
		map[string]interface{}{
			"_id":     "ord-1004",
			"orderId": "SO-1004",
			"shippingAddress": map[string]interface{}{
				"firstName": "John", "lastName": "Mathew", "addressLine1": "7 Hill View",
				"city": "Munnar", "state": "Kerala", "pinCode": "685612", "country": "India",
			},
			"products": []interface{}{
				map[string]interface{}{"productId": "prod-pepper", "name": "Black Pepper", "quantity": 1, "price": 90},
			},
			"total":         90,
			"paymentMethod": "COD",
			"status":        "Delivered",
			"createdAt":     "2024-02-20T08:00:00Z",
		},
		map[string]interface{}{
			"_id":      "ord-1005",
			"orderId":  "SO-1005",
			"products": []interface{}{map[string]interface{}{"name": "Clove", "quantity": 1, "price": 120}},
			"total":    120,
		},
	)

	s.PutOrders(models.SourceFulfillment,
		map[string]interface{}{
			"order_id":      "SHP-2001",
			"order_number":  "FX-2001",
			"customer_name": "Priya Das",
			"shipping_address": map[string]interface{}{
				"first_name": "Priya", "last_name": "Das", "address_line1": "21 Lake Road",
				"city": "Kolkata", "state": "West Bengal", "postal_code": "700029", "country": "India",
			},
			"order_items": []interface{}{
				map[string]interface{}{"sku": "PEP-100", "item_name": "Black Pepper 100g", "units": 4, "unit_price": "90.00"},
			},
			"total_order_value": "360.00",
			"payment_method":    "Prepaid",
			"status":            "in_transit",
			"created_at":        "2024-03-04 11:20:00",
		},
		map[string]interface{}{
			"order_id": "SHP-2002",
			"shipping_address": map[string]interface{}{
				"first_name": "Arun", "last_name": "Kumar", "address_line1": "3 MG Road",
				"city": "Bengaluru", "state": "Karnataka", "pincode": "560001", "country": "India",
			},
			"order_items": []interface{}{
				map[string]interface{}{"sku": "SAF-1", "item_name": "Saffron 1g", "units": "2", "unit_price": 650},
			},
			"total_order_value": 1300,
			"status":            "label_created",
			"created_at":        "2024-03-05",
		},
	)

	s.PutOrders(models.SourceLegacyCart,
		map[string]interface{}{
			"_id":     "cart-3001",
			"name":    "Fathima Rahman",
			"email":   "fathima@example.com",
			"mobile":  9847000003,
			"address": "55 Beach Road",
			"city":    "Alappuzha",
			"state":   "Kerala",
			"pincode": "688001",
			"cartItems": []interface{}{
				map[string]interface{}{"productId": "prod-cardamom", "name": "Cardamom", "price": 150, "quantity": 2, "category": "Whole Spices", "status": "Pending"},
				map[string]interface{}{"productId": "prod-masala", "name": "Garam Masala", "price": 80, "quantity": 1, "category": "Blends", "status": "Pending"},
			},
			"totalAmount": 380,
			"status":      "pending",
			"order_date":  "2023-12-18T16:45:00Z",
		},
		map[string]interface{}{
			"_id":      "cart-3002",
			"username": "vinod",
			"address":  "9 Fort Lane",
			"city":     "Kannur",
			"state":    "Kerala",
			"pincode":  670001,
			"cartItems": []interface{}{
				map[string]interface{}{"productId": "prod-pepper", "name": "Black Pepper", "price": 90, "quantity": 3, "status": "Shipped"},
			},
			"totalAmount": 270,
			"status":      "Shipped",
		},
	)

	s.PutCategories(
		CategoryDoc{ID: "cat-whole", Category: "Whole Spices"},
		CategoryDoc{ID: "cat-blends", Category: "Blends"},
		CategoryDoc{ID: "cat-premium", Category: "Premium"},
	)

	saffronPrice := decimal.NewFromInt(650)
	s.PutProducts(
		ProductDoc{
			ID: "prod-pepper", Name: "Black Pepper", Category: "Whole Spices", CategoryID: "cat-whole",
			Description: "Malabar garbled pepper", Stock: 120, Images: []string{"/uploads/pepper-1.jpg"},
			Variants: []VariantDoc{
				{Quantity: "100g", Price: decimal.NewFromInt(90)},
				{Quantity: "500g", Price: decimal.RequireFromString("399.50")},
			},
		},
		ProductDoc{
			ID: "prod-cardamom", Name: "Cardamom", Category: "Whole Spices", CategoryID: "cat-whole",
			Description: "Green cardamom, 8mm bold", Stock: 60,
			Variants: []VariantDoc{{Quantity: "100g", Price: decimal.NewFromInt(150)}},
		},
		ProductDoc{
			ID: "prod-masala", Name: "Garam Masala", Category: "Blends", CategoryID: "cat-blends",
			Details: "Stone ground in small batches", Stock: 45,
			Variants: []VariantDoc{
				{Quantity: "50g", Price: decimal.NewFromInt(80)},
				{Quantity: "200g", Price: decimal.NewFromInt(280)},
			},
		},
		ProductDoc{
			ID: "prod-saffron", Name: "Saffron", Category: "Premium", CategoryID: "cat-premium",
			Stock: 10, Price: &saffronPrice, Quantity: "1g",
		},
	)
}
