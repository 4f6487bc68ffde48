package sandbox

import (
	"time"

	"github.com/ashendes/order-edit/internal/models"
)

// Seed fills s with one restaurant, two orders, promo codes and a customer
// address book
func Seed(s *Store, now time.Time) {
	s.PutRestaurant(Restaurant{
		ID:       "rest-1",
		Name:     "Spice Route",
		Location: models.Coordinates{Longitude: 73.8567, Latitude: 18.5204},
		Menu: []models.Category{
			{ID: "cat-mains", Name: "Mains", Items: []models.Product{
				{ID: "prod-biryani", Name: "Chicken Biryani", Price: money(100), Description: "Slow cooked basmati rice", Stock: 50},
				{ID: "prod-paneer", Name: "Paneer Tikka", Price: money(180), Description: "Grilled cottage cheese", Stock: 40},
			}},
			{ID: "cat-sides", Name: "Sides", Items: []models.Product{
				{ID: "prod-naan", Name: "Butter Naan", Price: money(30), Description: "Tandoor baked bread", Stock: 200},
				{ID: "prod-raita", Name: "Raita", Price: money(40), Description: "Yogurt with cucumber", Stock: 80},
			}},
			{ID: "cat-drinks", Name: "Drinks", Items: []models.Product{
				{ID: "prod-lassi", Name: "Mango Lassi", Price: money(60), Stock: 100},
			}},
		},
	})

	home := models.Address{
		ID:      "addr-home",
		Type:    "home",
		Street:  "12 MG Road",
		Area:    "Camp",
		City:    "Pune",
		State:   "Maharashtra",
		ZipCode: "411001",
		Country: "India",
	}
	home.SetCoordinates(models.Coordinates{Longitude: 73.8777, Latitude: 18.5167})
	work := models.Address{
		ID:      "addr-work",
		Type:    "work",
		Street:  "Tower B, Magarpatta City",
		Area:    "Hadapsar",
		City:    "Pune",
		State:   "Maharashtra",
		ZipCode: "411028",
		Country: "India",
	}
	work.SetCoordinates(models.Coordinates{Longitude: 73.9260, Latitude: 18.5158})
	s.PutAddress("user-1", home)
	s.PutAddress("user-1", work)
	s.SetLoyalty("user-1", 120)

	s.PutOrder(models.Order{
		ID:               "order-1",
		Status:           models.OrderStatusPending,
		CustomerID:       "user-1",
		RestaurantID:     "rest-1",
		OrderType:        models.OrderTypeDelivery,
		DeliveryAddress:  home,
		DeliveryLocation: home.Location,
		PaymentMethod:    "cod",
		CartID:           "cart-1",
		Items: []models.LineItem{
			{LineID: "line-1", ProductID: "prod-biryani", Name: "Chicken Biryani", UnitPrice: money(100), Quantity: 2, TotalPrice: money(200)},
			{LineID: "line-2", ProductID: "prod-naan", Name: "Butter Naan", UnitPrice: money(30), Quantity: 1, TotalPrice: money(30)},
		},
		Pricing: models.PriceSummary{
			Subtotal:           money(230),
			TotalPackingCharge: money(10),
			Tax:                money(11.5),
			FinalAmount:        money(251.5),
		},
		AdditionalInfo: "Ring the bell twice",
	})
	s.PutOrder(models.Order{
		ID:           "order-2",
		Status:       models.OrderStatusPreparing,
		CustomerID:   "user-1",
		RestaurantID: "rest-1",
		OrderType:    models.OrderTypePickup,
		CartID:       "cart-2",
		Items: []models.LineItem{
			{LineID: "line-3", ProductID: "prod-paneer", Name: "Paneer Tikka", UnitPrice: money(180), Quantity: 1, TotalPrice: money(180)},
		},
		Pricing: models.PriceSummary{Subtotal: money(180), FinalAmount: money(180)},
	})

	lastWeek := now.AddDate(0, 0, -7)
	nextMonth := now.AddDate(0, 1, 0)
	yesterday := now.AddDate(0, 0, -1)
	s.PutCoupon(models.Coupon{
		ID: "promo-1", Code: "SAVE10", Description: "10% off orders above 200",
		DiscountType: models.DiscountPercentage, DiscountValue: money(10), MinOrderValue: money(200),
		IsActive: true, ValidFrom: &lastWeek, ValidTill: &nextMonth,
	})
	s.PutCoupon(models.Coupon{
		ID: "promo-2", Code: "FLAT50", Description: "50 off any order",
		DiscountType: models.DiscountFixed, DiscountValue: money(50),
		IsActive: true,
	})
	s.PutCoupon(models.Coupon{
		ID: "promo-3", Code: "SUMMER", Description: "Seasonal offer",
		DiscountType: models.DiscountPercentage, DiscountValue: money(20),
		IsActive: true, ValidTill: &yesterday,
	})
	s.PutCoupon(models.Coupon{
		ID: "promo-4", Code: "RETIRED", Description: "No longer offered",
		DiscountType: models.DiscountFixed, DiscountValue: money(100),
		IsActive: false,
	})
}
