package constants

// Static route constants
const (
	PublicRoute   = "/"
	PetsRoute     = "/pets"
	StoriesRoute  = "/stories"
	PricingRoute  = "/pricing"
	CheckoutRoute = "/billing/checkout"
)
